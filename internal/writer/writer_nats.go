package writer

import (
	"ICSFlowGen/internal/config"
	"ICSFlowGen/internal/model"
	"ICSFlowGen/internal/stream"
	"fmt"
)

// NATSWriter publishes every record of a batch on a NATS subject.
type NATSWriter struct {
	pub *stream.Publisher
}

func NewNATSWriter(cfg config.NATSConfig) (*NATSWriter, error) {
	pub, err := stream.NewPublisher(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSWriter{pub: pub}, nil
}

func (w *NATSWriter) Write(batch []model.FlowRecord) error {
	for _, rec := range batch {
		if err := w.pub.Publish(rec); err != nil {
			return fmt.Errorf("failed to publish record: %w", err)
		}
	}
	return w.pub.Flush()
}

func (w *NATSWriter) Close() error {
	return w.pub.Close()
}
