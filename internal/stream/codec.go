package stream

import (
	"fmt"
	"time"

	"ICSFlowGen/internal/model"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EncodeRecord serializes a FlowRecord as a protobuf Struct.
func EncodeRecord(r model.FlowRecord) ([]byte, error) {
	pb, err := structpb.NewStruct(map[string]interface{}{
		"src_ip":    r.SrcIP,
		"dst_ip":    r.DstIP,
		"message":   r.Message,
		"timestamp": r.Timestamp.UTC().Format(time.RFC3339Nano),
		"sequence":  r.Sequence,
		"src_mac":   r.SrcMAC,
		"dst_mac":   r.DstMAC,
		"protocol":  r.Protocol,
		"direction": string(r.Direction),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build protobuf struct: %w", err)
	}
	return proto.Marshal(pb)
}

// DecodeRecord is the inverse of EncodeRecord.
func DecodeRecord(data []byte) (model.FlowRecord, error) {
	var pb structpb.Struct
	if err := proto.Unmarshal(data, &pb); err != nil {
		return model.FlowRecord{}, fmt.Errorf("failed to unmarshal protobuf: %w", err)
	}

	fields := pb.GetFields()
	str := func(key string) string {
		return fields[key].GetStringValue()
	}

	ts, err := time.Parse(time.RFC3339Nano, str("timestamp"))
	if err != nil {
		return model.FlowRecord{}, fmt.Errorf("invalid record timestamp: %w", err)
	}

	return model.FlowRecord{
		SrcIP:     str("src_ip"),
		DstIP:     str("dst_ip"),
		Message:   str("message"),
		Timestamp: ts,
		Sequence:  int(fields["sequence"].GetNumberValue()),
		SrcMAC:    str("src_mac"),
		DstMAC:    str("dst_mac"),
		Protocol:  str("protocol"),
		Direction: model.Direction(str("direction")),
	}, nil
}
