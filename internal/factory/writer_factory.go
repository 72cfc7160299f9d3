package factory

import (
	"ICSFlowGen/internal/config"
	"ICSFlowGen/internal/model"
	"fmt"
	"log"
)

// WriterFactory creates a writer from its config block for one run.
type WriterFactory func(def config.WriterDef, run model.RunInfo) (model.Writer, error)

// registry holds the mapping of writer types to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered reports whether a writer type has a factory.
func Registered(name string) bool {
	_, ok := registry[name]
	return ok
}

// NamedWriter pairs a writer with the type it was created from.
type NamedWriter struct {
	Type   string
	Writer model.Writer
}

// Create builds every enabled writer. On failure the writers created so far are closed.
func Create(defs []config.WriterDef, run model.RunInfo) ([]NamedWriter, error) {
	var writers []NamedWriter

	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		log.Printf("Creating writer of type '%s' for run %s", def.Type, run.ID)

		factory, ok := registry[def.Type]
		if !ok {
			closeAll(writers)
			return nil, fmt.Errorf("unknown writer type: '%s'", def.Type)
		}

		w, err := factory(def, run)
		if err != nil {
			closeAll(writers)
			return nil, fmt.Errorf("error creating writer type '%s': %w", def.Type, err)
		}
		writers = append(writers, NamedWriter{Type: def.Type, Writer: w})
	}

	return writers, nil
}

func closeAll(writers []NamedWriter) {
	for _, w := range writers {
		if err := w.Writer.Close(); err != nil {
			log.Printf("Error closing writer '%s': %v", w.Type, err)
		}
	}
}
