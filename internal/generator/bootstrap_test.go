package generator

import (
	"ICSFlowGen/internal/config"
	"ICSFlowGen/internal/model"
	"ICSFlowGen/internal/samples"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func procedural() config.TopologyConfig {
	return config.TopologyConfig{
		DeviceCount: 3,
		Devices:     []string{"workstation", "plc", "plc"},
		Connections: []config.ConnectionRuleDef{{
			ZoneA:     config.RangeDef{From: 0, To: 1},
			ZoneB:     config.RangeDef{From: 1, To: 3},
			Protocols: map[string]float64{"modbus": 3, "iec104": 1},
			Frequency: 1,
		}},
	}
}

func TestBuildTopology_Procedural(t *testing.T) {
	topo, err := BuildTopology(procedural(), NewRand(1))
	if err != nil {
		t.Fatalf("BuildTopology failed: %v", err)
	}
	devices := topo.Devices()
	if len(devices) != 3 || devices[1].Type != model.PLC || devices[0].IP != "192.168.0.1" {
		t.Errorf("Unexpected devices: %+v", devices)
	}
	if len(topo.Connections()) != 1 {
		t.Errorf("Expected 1 connection, got %d", len(topo.Connections()))
	}
}

func TestBuildTopology_FromFile(t *testing.T) {
	orig, err := BuildTopology(procedural(), NewRand(1))
	if err != nil {
		t.Fatalf("BuildTopology failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "topology.yaml")
	if err := ExportTopology(config.TopologyConfig{ExportPath: path}, orig); err != nil {
		t.Fatalf("ExportTopology failed: %v", err)
	}

	imported, err := BuildTopology(config.TopologyConfig{File: path, PreserveIDs: true}, NewRand(2))
	if err != nil {
		t.Fatalf("BuildTopology from file failed: %v", err)
	}
	if !reflect.DeepEqual(imported.Export(), orig.Export()) {
		t.Error("Imported topology differs from the exported one")
	}

	if _, err := BuildTopology(config.TopologyConfig{File: filepath.Join(t.TempDir(), "missing.json")}, NewRand(1)); err == nil {
		t.Error("Expected error for missing topology file")
	}
}

func TestExportTopology_NoPath(t *testing.T) {
	topo, _ := BuildTopology(procedural(), NewRand(1))
	if err := ExportTopology(config.TopologyConfig{}, topo); err != nil {
		t.Errorf("Expected no-op without export path, got %v", err)
	}
}

func TestLoadSamples(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"modbus.txt": "{protocol:modbus,func:3}\n",
		"iec104.txt": "{protocol:iec104,asdu_type:45,causetx_type:6}\n",
		"dnp3.txt":   "{protocol:dnp3,func:1}\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write sample file: %v", err)
		}
	}
	topo, _ := BuildTopology(procedural(), NewRand(1))

	store, err := LoadSamples(config.SamplesConfig{Dir: dir, Protocols: []string{"dnp3"}}, topo)
	if err != nil {
		t.Fatalf("LoadSamples failed: %v", err)
	}
	if want := []string{"dnp3", "iec104", "modbus"}; !reflect.DeepEqual(store.Protocols(), want) {
		t.Errorf("Loaded protocols %v, want %v", store.Protocols(), want)
	}

	_, err = LoadSamples(config.SamplesConfig{Dir: dir, Protocols: []string{"s7"}}, topo)
	var cfgErr *samples.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Protocol != "s7" {
		t.Errorf("Expected ConfigError for s7, got %v", err)
	}
}

func TestNewRand_Seeded(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for i := 0; i < 10; i++ {
		if a.Int63() != b.Int63() {
			t.Fatal("Equal seeds must produce equal sequences")
		}
	}
}
