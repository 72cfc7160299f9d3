package stream

import (
	"testing"
	"time"

	"ICSFlowGen/internal/model"
)

func TestEncodeDecodeRecord(t *testing.T) {
	in := model.FlowRecord{
		SrcIP:     "192.168.0.1",
		DstIP:     "192.168.0.2",
		Message:   "{protocol:iec104,asdu_type:45,causetx_type:6}",
		Timestamp: time.Date(2024, 5, 6, 7, 8, 9, 123000000, time.UTC),
		Sequence:  model.SequenceMarker,
		SrcMAC:    "001422aabbcc",
		DstMAC:    "001b1b010203",
		Protocol:  "iec104",
		Direction: model.Response,
	}

	data, err := EncodeRecord(in)
	if err != nil {
		t.Fatalf("EncodeRecord failed: %v", err)
	}
	out, err := DecodeRecord(data)
	if err != nil {
		t.Fatalf("DecodeRecord failed: %v", err)
	}

	if !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("Timestamp changed: %s vs %s", out.Timestamp, in.Timestamp)
	}
	out.Timestamp = in.Timestamp
	if out != in {
		t.Errorf("Decoded record differs:\n got: %+v\nwant: %+v", out, in)
	}
	if out.String() != in.String() {
		t.Errorf("Rendered lines differ: %s vs %s", out.String(), in.String())
	}
}

func TestDecodeRecord_Garbage(t *testing.T) {
	if _, err := DecodeRecord([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Error("Expected error for malformed payload")
	}
}
