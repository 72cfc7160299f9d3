package writer

import (
	"ICSFlowGen/internal/config"
	"ICSFlowGen/internal/model"
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS flow_records (
    RunID       String,
    Timestamp   DateTime64(3),
    Protocol    LowCardinality(String),
    Direction   LowCardinality(String),
    SrcIP       String,
    DstIP       String,
    SrcMAC      String,
    DstMAC      String,
    Message     String,
    Sequence    UInt32
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (RunID, Timestamp);
`

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn  driver.Conn
	runID string
	total int
}

// NewClickHouseWriter connects and ensures the flow_records table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig, run model.RunInfo) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn, runID: run.ID}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Write inserts one batch into flow_records.
func (w *ClickHouseWriter) Write(records []model.FlowRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO flow_records")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, rec := range records {
		err = batch.Append(
			w.runID,
			rec.Timestamp,
			rec.Protocol,
			string(rec.Direction),
			rec.SrcIP,
			rec.DstIP,
			rec.SrcMAC,
			rec.DstMAC,
			rec.Message,
			uint32(rec.Sequence),
		)
		if err != nil {
			return fmt.Errorf("failed to append record to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	w.total += len(records)
	return nil
}

func (w *ClickHouseWriter) Close() error {
	log.Printf("Wrote %d flow records to ClickHouse for run '%s'", w.total, w.runID)
	return w.conn.Close()
}
