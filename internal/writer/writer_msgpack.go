package writer

import (
	"ICSFlowGen/internal/model"
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	msgpackFileName = "records.msgpack"
	snappyExtension = ".sz"
	summaryFileName = "summary.json"
)

// record is the on-disk form of a FlowRecord.
type record struct {
	SrcIP     string    `msgpack:"src_ip"`
	DstIP     string    `msgpack:"dst_ip"`
	Message   string    `msgpack:"message"`
	Timestamp time.Time `msgpack:"timestamp"`
	Sequence  int       `msgpack:"sequence"`
	SrcMAC    string    `msgpack:"src_mac"`
	DstMAC    string    `msgpack:"dst_mac"`
	Protocol  string    `msgpack:"protocol"`
	Direction string    `msgpack:"direction"`
}

// SummaryData holds the metadata of one run's dump.
type SummaryData struct {
	RunID        string         `json:"run_id"`
	TotalRecords int            `json:"total_records"`
	ByProtocol   map[string]int `json:"by_protocol"`
	StartTime    string         `json:"start_time"`
	EndTime      string         `json:"end_time"`
	Compressed   bool           `json:"compressed"`
	Timestamp    string         `json:"timestamp"`
}

// MsgpackWriter streams records of a run into <root>/<run id>/records.msgpack
// and writes summary.json next to it on Close.
type MsgpackWriter struct {
	dir        string
	run        model.RunInfo
	compress   bool
	file       *os.File
	sz         *snappy.Writer
	buf        *bufio.Writer
	enc        *msgpack.Encoder
	total      int
	byProtocol map[string]int
}

// NewMsgpackWriter creates the run directory and the record file.
func NewMsgpackWriter(rootPath string, compress bool, run model.RunInfo) (*MsgpackWriter, error) {
	dir := filepath.Join(rootPath, run.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dump directory: %w", err)
	}

	name := msgpackFileName
	if compress {
		name += snappyExtension
	}
	file, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create dump file: %w", err)
	}

	w := &MsgpackWriter{
		dir:        dir,
		run:        run,
		compress:   compress,
		file:       file,
		byProtocol: make(map[string]int),
	}
	var out io.Writer
	if compress {
		w.sz = snappy.NewBufferedWriter(file)
		out = w.sz
	} else {
		w.buf = bufio.NewWriter(file)
		out = w.buf
	}
	w.enc = msgpack.NewEncoder(out)
	return w, nil
}

func (w *MsgpackWriter) Write(batch []model.FlowRecord) error {
	for _, rec := range batch {
		err := w.enc.Encode(&record{
			SrcIP:     rec.SrcIP,
			DstIP:     rec.DstIP,
			Message:   rec.Message,
			Timestamp: rec.Timestamp,
			Sequence:  rec.Sequence,
			SrcMAC:    rec.SrcMAC,
			DstMAC:    rec.DstMAC,
			Protocol:  rec.Protocol,
			Direction: string(rec.Direction),
		})
		if err != nil {
			return fmt.Errorf("failed to encode record to msgpack: %w", err)
		}
		w.byProtocol[rec.Protocol]++
	}
	w.total += len(batch)
	return nil
}

func (w *MsgpackWriter) Close() error {
	var err error
	if w.sz != nil {
		err = w.sz.Close()
	} else {
		err = w.buf.Flush()
	}
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to finish dump file: %w", err)
	}

	summary := SummaryData{
		RunID:        w.run.ID,
		TotalRecords: w.total,
		ByProtocol:   w.byProtocol,
		StartTime:    w.run.StartTime.UTC().Format(time.RFC3339),
		EndTime:      w.run.EndTime.UTC().Format(time.RFC3339),
		Compressed:   w.compress,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	summaryFile, err := os.Create(filepath.Join(w.dir, summaryFileName))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}

	log.Printf("Successfully wrote %d records to %s", w.total, w.dir)
	return nil
}

// ReadMsgpack decodes a dump produced by MsgpackWriter. Snappy-compressed dumps
// are detected by their file extension.
func ReadMsgpack(path string) ([]model.FlowRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var in io.Reader = bufio.NewReader(file)
	if filepath.Ext(path) == snappyExtension {
		in = snappy.NewReader(file)
	}

	dec := msgpack.NewDecoder(in)
	var records []model.FlowRecord
	for {
		var r record
		if err := dec.Decode(&r); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode record %d: %w", len(records), err)
		}
		records = append(records, model.FlowRecord{
			SrcIP:     r.SrcIP,
			DstIP:     r.DstIP,
			Message:   r.Message,
			Timestamp: r.Timestamp,
			Sequence:  r.Sequence,
			SrcMAC:    r.SrcMAC,
			DstMAC:    r.DstMAC,
			Protocol:  r.Protocol,
			Direction: model.Direction(r.Direction),
		})
	}
	return records, nil
}
