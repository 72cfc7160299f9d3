package stream

import (
	"ICSFlowGen/internal/config"
	"ICSFlowGen/internal/model"
	"log"

	"github.com/nats-io/nats.go"
)

// Publisher is responsible for publishing flow records to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish serializes a FlowRecord to Protobuf and publishes it to the configured subject.
func (p *Publisher) Publish(record model.FlowRecord) error {
	data, err := EncodeRecord(record)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Flush blocks until the server has processed everything published so far.
func (p *Publisher) Flush() error {
	return p.nc.Flush()
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		return err
	}
	log.Println("NATS connection drained and closed.")
	return nil
}
