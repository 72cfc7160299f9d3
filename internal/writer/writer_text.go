package writer

import (
	"ICSFlowGen/internal/model"
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// StdoutPath makes the text writer print to standard output.
const StdoutPath = "-"

// TextWriter appends flow lines to a file, one record per line.
type TextWriter struct {
	path  string
	file  *os.File
	buf   *bufio.Writer
	total int
}

// NewTextWriter creates the output file, truncating any previous content.
func NewTextWriter(path string) (*TextWriter, error) {
	if path == StdoutPath {
		return &TextWriter{path: path, buf: bufio.NewWriter(os.Stdout)}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create text output '%s': %w", path, err)
	}
	return &TextWriter{path: path, file: file, buf: bufio.NewWriter(file)}, nil
}

func (w *TextWriter) Write(batch []model.FlowRecord) error {
	for _, rec := range batch {
		if _, err := w.buf.WriteString(rec.String()); err != nil {
			return fmt.Errorf("failed to write flow line: %w", err)
		}
		if err := w.buf.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write flow line: %w", err)
		}
	}
	w.total += len(batch)
	return nil
}

func (w *TextWriter) Close() error {
	err := w.buf.Flush()
	if err != nil {
		err = fmt.Errorf("failed to flush text output: %w", err)
	}
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil || w.file == nil {
		return err
	}
	log.Printf("Successfully wrote %d flow lines to %s", w.total, w.path)
	return nil
}
