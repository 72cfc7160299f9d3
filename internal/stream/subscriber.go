package stream

import (
	"ICSFlowGen/internal/config"
	"ICSFlowGen/internal/model"
	"log"

	"github.com/nats-io/nats.go"
)

// RecordHandler is a function that processes a received FlowRecord.
type RecordHandler func(record model.FlowRecord)

// Subscriber is responsible for subscribing to a NATS subject and decoding flow records.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.NATSConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to the subject and passes every decoded record to handler.
func (s *Subscriber) Start(handler RecordHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		record, err := DecodeRecord(msg.Data)
		if err != nil {
			log.Printf("Error decoding flow record: %v", err)
			return
		}
		handler(record)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for flow records...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
