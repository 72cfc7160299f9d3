package model

// Writer defines a generic interface for persisting generated flow records.
type Writer interface {
	// Write persists one batch of records. Batches arrive in emission order.
	Write(batch []FlowRecord) error

	// Close flushes buffered output and releases the underlying resource.
	Close() error
}
