package samples

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ICSFlowGen/internal/model"
)

// FileExtension is appended to a protocol name to find its template file.
const FileExtension = ".txt"

// ConfigError reports a message-template resource that is missing, unreadable, or empty.
type ConfigError struct {
	Protocol string
	Path     string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("samples for protocol '%s': %v", e.Protocol, e.Err)
	}
	return fmt.Sprintf("samples for protocol '%s' (%s): %v", e.Protocol, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UnknownProtocolError reports a lookup of a protocol that was never loaded.
type UnknownProtocolError struct {
	Protocol string
}

func (e *UnknownProtocolError) Error() string {
	return fmt.Sprintf("unknown protocol '%s': no samples loaded", e.Protocol)
}

var errNoSamples = errors.New("no message templates")

// Store holds canned message templates per protocol. It is read-only once built.
type Store struct {
	samples map[string][]string
}

// New builds a store from in-memory templates. Every protocol needs at least one.
func New(samples map[string][]string) (*Store, error) {
	s := &Store{samples: make(map[string][]string, len(samples))}
	for protocol, msgs := range samples {
		if len(msgs) == 0 {
			return nil, &ConfigError{Protocol: protocol, Err: errNoSamples}
		}
		s.samples[protocol] = append([]string(nil), msgs...)
	}
	return s, nil
}

// Load reads <dir>/<protocol>.txt for every requested protocol. Each non-blank
// line is one template.
func Load(dir string, protocols []string) (*Store, error) {
	s := &Store{samples: make(map[string][]string, len(protocols))}
	for _, protocol := range protocols {
		if _, ok := s.samples[protocol]; ok {
			continue
		}
		path := filepath.Join(dir, protocol+FileExtension)
		msgs, err := readLines(path)
		if err != nil {
			return nil, &ConfigError{Protocol: protocol, Path: path, Err: err}
		}
		if len(msgs) == 0 {
			return nil, &ConfigError{Protocol: protocol, Path: path, Err: errNoSamples}
		}
		s.samples[protocol] = msgs
	}
	return s, nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Sample returns one template of the protocol, chosen uniformly at random.
func (s *Store) Sample(protocol string, rng model.Rand) (string, error) {
	msgs, ok := s.samples[protocol]
	if !ok {
		return "", &UnknownProtocolError{Protocol: protocol}
	}
	return msgs[rng.Intn(len(msgs))], nil
}

// Has reports whether templates were loaded for the protocol.
func (s *Store) Has(protocol string) bool {
	_, ok := s.samples[protocol]
	return ok
}

// Protocols returns the loaded protocol names in sorted order.
func (s *Store) Protocols() []string {
	names := make([]string, 0, len(s.samples))
	for name := range s.samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Templates returns a copy of the templates loaded for a protocol.
func (s *Store) Templates(protocol string) []string {
	return append([]string(nil), s.samples[protocol]...)
}
