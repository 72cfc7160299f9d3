package topology

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"ICSFlowGen/internal/model"
)

func buildTestTopology(t *testing.T) *Topology {
	t.Helper()
	types := []model.DeviceType{model.Workstation, model.HMI, model.PLC, model.PLC, model.RTU}
	rules := []ConnectionRule{
		{ZoneA: Range{0, 2}, ZoneB: Range{2, 4}, Protocols: map[string]float64{"modbus": 3, "s7": 1}, Frequency: 5},
		{ZoneA: Range{1, 2}, ZoneB: Range{4, 5}, Protocols: map[string]float64{"iec104": 1}, Frequency: 0.5},
	}
	topo, err := Build(rand.New(rand.NewSource(11)), len(types), types, rules)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return topo
}

func TestBuild(t *testing.T) {
	topo := buildTestTopology(t)

	devices := topo.Devices()
	if len(devices) != 5 {
		t.Fatalf("Expected 5 devices, got %d", len(devices))
	}
	for i, d := range devices {
		if d.ID != i+1 {
			t.Errorf("Device %d: expected id %d, got %d", i, i+1, d.ID)
		}
	}
	if devices[0].IP != "192.168.0.1" || devices[4].IP != "192.168.0.5" {
		t.Errorf("Unexpected addresses: %s .. %s", devices[0].IP, devices[4].IP)
	}
	if devices[2].Type != model.PLC {
		t.Errorf("Expected device 3 to be a plc, got %s", devices[2].Type)
	}

	conns := topo.Connections()
	if len(conns) != 2 {
		t.Fatalf("Expected 2 connections, got %d", len(conns))
	}
	if zb := conns[0].ZoneB(); len(zb) != 2 || zb[0] != devices[2] || zb[1] != devices[3] {
		t.Errorf("Connection 0 zone B should reference devices 3 and 4")
	}
	if za := conns[1].ZoneA(); za[0] != conns[0].ZoneA()[1] {
		t.Errorf("Zones should share device pointers, not copies")
	}

	if got := topo.Protocols(); !reflect.DeepEqual(got, []string{"modbus", "s7", "iec104"}) {
		t.Errorf("Unexpected protocol list: %v", got)
	}
}

func TestBuild_IDsAreLocalToEachBuild(t *testing.T) {
	first := buildTestTopology(t)
	second := buildTestTopology(t)
	if first.Devices()[0].ID != 1 || second.Devices()[0].ID != 1 {
		t.Errorf("Each build should number its devices from 1")
	}
}

func TestBuild_Errors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	types := []model.DeviceType{model.Workstation, model.PLC}
	weights := map[string]float64{"modbus": 1}

	if _, err := Build(rng, 3, types, nil); err == nil {
		t.Error("Expected error for count/type mismatch")
	}
	if _, err := Build(rng, 2, types, []ConnectionRule{{ZoneA: Range{0, 1}, ZoneB: Range{1, 3}, Protocols: weights, Frequency: 1}}); err == nil {
		t.Error("Expected error for out-of-range zone")
	}
	_, err := Build(rng, 2, types, []ConnectionRule{{ZoneA: Range{1, 1}, ZoneB: Range{0, 1}, Protocols: weights, Frequency: 1}})
	if !errors.Is(err, ErrEmptyZone) {
		t.Errorf("Expected ErrEmptyZone, got %v", err)
	}
	_, err = Build(rng, 2, types, []ConnectionRule{{ZoneA: Range{0, 1}, ZoneB: Range{1, 2}, Protocols: map[string]float64{"modbus": -1}, Frequency: 1}})
	if !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("Expected ErrInvalidWeights, got %v", err)
	}
}

func assertEquivalent(t *testing.T, a, b *Topology, compareIDs bool) {
	t.Helper()
	ca, cb := a.Connections(), b.Connections()
	if len(ca) != len(cb) {
		t.Fatalf("Expected %d connections, got %d", len(ca), len(cb))
	}
	sameDevices := func(x, y []*model.Device) bool {
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i].IP != y[i].IP || x[i].MAC != y[i].MAC || x[i].Type != y[i].Type {
				return false
			}
			if compareIDs && x[i].ID != y[i].ID {
				return false
			}
		}
		return true
	}
	for i := range ca {
		if !sameDevices(ca[i].ZoneA(), cb[i].ZoneA()) || !sameDevices(ca[i].ZoneB(), cb[i].ZoneB()) {
			t.Errorf("Connection %d: zone devices differ after round trip", i)
		}
		if !reflect.DeepEqual(ca[i].Weights(), cb[i].Weights()) {
			t.Errorf("Connection %d: weights differ: %v vs %v", i, ca[i].Weights(), cb[i].Weights())
		}
		if ca[i].Frequency() != cb[i].Frequency() {
			t.Errorf("Connection %d: frequency differs: %v vs %v", i, ca[i].Frequency(), cb[i].Frequency())
		}
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	topo := buildTestTopology(t)

	imported, err := FromDescription(topo.Export(), ImportOptions{PreserveIDs: true})
	if err != nil {
		t.Fatalf("FromDescription failed: %v", err)
	}
	assertEquivalent(t, topo, imported, true)

	// Device 2 is in zone A of both connections and must stay one device.
	if imported.Connections()[0].ZoneA()[1] != imported.Connections()[1].ZoneA()[0] {
		t.Errorf("Shared device was duplicated on import")
	}
	if len(imported.Devices()) != 5 {
		t.Errorf("Expected 5 distinct devices after import, got %d", len(imported.Devices()))
	}
}

func TestFromDescription_Renumbers(t *testing.T) {
	desc := Description{Connections: []ConnectionDescription{{
		ZoneA:     []DeviceDescription{{ID: 40, IP: "10.0.0.40", MAC: "525400000040", Type: "workstation"}},
		ZoneB:     []DeviceDescription{{ID: 7, IP: "10.0.0.7", MAC: "525400000007", Type: "plc"}},
		Protocols: map[string]float64{"modbus": 1},
		Frequency: 2,
	}}}

	renumbered, err := FromDescription(desc, ImportOptions{})
	if err != nil {
		t.Fatalf("FromDescription failed: %v", err)
	}
	devices := renumbered.Devices()
	if devices[0].ID != 1 || devices[1].ID != 2 {
		t.Errorf("Expected renumbered ids 1 and 2, got %d and %d", devices[0].ID, devices[1].ID)
	}

	preserved, err := FromDescription(desc, ImportOptions{PreserveIDs: true})
	if err != nil {
		t.Fatalf("FromDescription failed: %v", err)
	}
	assertEquivalent(t, renumbered, preserved, false)
	if preserved.Devices()[0].ID != 40 {
		t.Errorf("Expected preserved id 40, got %d", preserved.Devices()[0].ID)
	}
}

func TestFromDescription_Errors(t *testing.T) {
	conflicting := Description{Connections: []ConnectionDescription{{
		ZoneA:     []DeviceDescription{{ID: 1, IP: "10.0.0.1", Type: "hmi"}},
		ZoneB:     []DeviceDescription{{ID: 1, IP: "10.0.0.2", Type: "plc"}},
		Protocols: map[string]float64{"modbus": 1},
		Frequency: 1,
	}}}
	if _, err := FromDescription(conflicting, ImportOptions{}); err == nil {
		t.Error("Expected error for inconsistent device copies")
	}

	empty := Description{Connections: []ConnectionDescription{{
		ZoneA:     []DeviceDescription{{ID: 1, IP: "10.0.0.1", Type: "hmi"}},
		Protocols: map[string]float64{"modbus": 1},
		Frequency: 1,
	}}}
	if _, err := FromDescription(empty, ImportOptions{}); !errors.Is(err, ErrEmptyZone) {
		t.Errorf("Expected ErrEmptyZone, got %v", err)
	}
}
