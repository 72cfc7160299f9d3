package pcap

import (
	"ICSFlowGen/internal/model"
	"ICSFlowGen/internal/writer"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func writeCapture(t *testing.T, records []model.FlowRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flows.pcap")
	w, err := writer.NewPcapWriter(path, 65536)
	if err != nil {
		t.Fatalf("NewPcapWriter failed: %v", err)
	}
	if err := w.Write(records); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func TestReader_RecoversFlowLines(t *testing.T) {
	ts := time.Date(2024, 6, 1, 8, 30, 0, 250*int(time.Millisecond), time.UTC)
	req := model.FlowRecord{
		SrcIP:     "192.168.0.10",
		DstIP:     "192.168.1.0",
		Message:   "{protocol:modbus,func:3,startaddr:1000,endaddr:1}",
		Timestamp: ts,
		Sequence:  model.SequenceMarker,
		SrcMAC:    "0050563a1b2c",
		DstMAC:    "001b1b0c4d5e",
		Protocol:  "modbus",
		Direction: model.Request,
	}
	resp := req
	resp.SrcIP, resp.DstIP = req.DstIP, req.SrcIP
	resp.SrcMAC, resp.DstMAC = req.DstMAC, req.SrcMAC
	resp.Direction = model.Response
	records := []model.FlowRecord{req, resp}

	r, err := NewReader(writeCapture(t, records))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	packets, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(packets) != 2 {
		t.Fatalf("Expected 2 packets, got %d", len(packets))
	}

	for i, p := range packets {
		got := p.Record()
		got.Timestamp = got.Timestamp.UTC()
		if got.String() != records[i].String() {
			t.Errorf("Packet %d:\n got: %s\nwant: %s", i, got.String(), records[i].String())
		}
		if p.Transport != layers.IPProtocolTCP {
			t.Errorf("Packet %d: expected TCP, got %s", i, p.Transport)
		}
	}
	if packets[0].DstPort != 502 || packets[1].SrcPort != 502 {
		t.Errorf("Expected modbus port 502, got %d / %d", packets[0].DstPort, packets[1].SrcPort)
	}
}

func TestNewReader_NotACapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.txt")
	if err := os.WriteFile(path, []byte("not a pcap file at all"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := NewReader(path); err == nil {
		t.Error("Expected error for a non-pcap file")
	}
}

func TestParsePacket_NotEthernetIPv4(t *testing.T) {
	if _, err := ParsePacket([]byte{0x01, 0x02}, gopacket.CaptureInfo{}); err == nil {
		t.Error("Expected error for a truncated frame")
	}
}
