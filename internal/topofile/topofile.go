package topofile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ICSFlowGen/internal/topology"

	"gopkg.in/yaml.v3"
)

// Load reads a topology description, choosing the format from the file extension:
// .yaml/.yml, .json, or .lua.
func Load(path string) (topology.Description, error) {
	var desc topology.Description

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".lua":
		return ReadLua(path)
	case ".yaml", ".yml", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return desc, fmt.Errorf("failed to read topology file: %w", err)
		}
		if ext == ".json" {
			err = json.Unmarshal(data, &desc)
		} else {
			err = yaml.Unmarshal(data, &desc)
		}
		if err != nil {
			return desc, fmt.Errorf("failed to unmarshal topology '%s': %w", path, err)
		}
		return desc, nil
	default:
		return desc, fmt.Errorf("unsupported topology format '%s'", ext)
	}
}

// Save writes a topology description in the format implied by the file extension.
func Save(path string, desc topology.Description) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".lua", ".json", ".yaml", ".yml":
	default:
		return fmt.Errorf("unsupported topology format '%s'", ext)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create topology directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create topology file '%s': %w", path, err)
	}
	defer file.Close()

	switch ext {
	case ".lua":
		err = WriteLua(file, desc)
	case ".json":
		enc := json.NewEncoder(file)
		enc.SetIndent("", "  ")
		err = enc.Encode(desc)
	default:
		enc := yaml.NewEncoder(file)
		enc.SetIndent(2)
		err = enc.Encode(desc)
		if err == nil {
			err = enc.Close()
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write topology '%s': %w", path, err)
	}
	return file.Close()
}
