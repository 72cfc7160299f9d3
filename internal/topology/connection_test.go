package topology

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"ICSFlowGen/internal/model"
	"ICSFlowGen/internal/samples"
)

func testDevices() (*model.Device, *model.Device) {
	ws := &model.Device{ID: 1, IP: "192.168.0.1", MAC: "001422aabbcc", Type: model.Workstation}
	plc := &model.Device{ID: 2, IP: "192.168.0.2", MAC: "001b1b010203", Type: model.PLC}
	return ws, plc
}

func TestSelectProtocol_Weighted(t *testing.T) {
	ws, plc := testDevices()
	conn, err := NewConnection([]*model.Device{ws}, []*model.Device{plc}, map[string]float64{"A": 1, "B": 3}, 1)
	if err != nil {
		t.Fatalf("NewConnection failed: %v", err)
	}

	rng := rand.New(rand.NewSource(99))
	const draws = 100000
	countB := 0
	for i := 0; i < draws; i++ {
		if conn.SelectProtocol(rng) == "B" {
			countB++
		}
	}
	share := float64(countB) / draws
	if math.Abs(share-0.75) > 0.01 {
		t.Errorf("Expected share of B near 0.75, got %.4f", share)
	}
}

func TestSelectProtocol_ZeroWeightNeverDrawn(t *testing.T) {
	ws, plc := testDevices()
	conn, err := NewConnection([]*model.Device{ws}, []*model.Device{plc}, map[string]float64{"modbus": 0, "s7": 2}, 1)
	if err != nil {
		t.Fatalf("NewConnection failed: %v", err)
	}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10000; i++ {
		if p := conn.SelectProtocol(rng); p != "s7" {
			t.Fatalf("Zero-weight protocol drawn: %s", p)
		}
	}
}

func TestNewConnection_InvalidWeights(t *testing.T) {
	ws, plc := testDevices()
	cases := []struct {
		name    string
		weights map[string]float64
	}{
		{"empty", map[string]float64{}},
		{"nil", nil},
		{"all zero", map[string]float64{"modbus": 0, "iec104": 0}},
		{"negative", map[string]float64{"modbus": 2, "iec104": -1}},
		{"nan", map[string]float64{"modbus": math.NaN()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConnection([]*model.Device{ws}, []*model.Device{plc}, tc.weights, 1)
			if !errors.Is(err, ErrInvalidWeights) {
				t.Errorf("Expected ErrInvalidWeights, got %v", err)
			}
		})
	}
}

func TestNewConnection_EmptyZone(t *testing.T) {
	ws, _ := testDevices()
	weights := map[string]float64{"modbus": 1}
	if _, err := NewConnection(nil, []*model.Device{ws}, weights, 1); !errors.Is(err, ErrEmptyZone) {
		t.Errorf("Expected ErrEmptyZone for empty zone A, got %v", err)
	}
	if _, err := NewConnection([]*model.Device{ws}, []*model.Device{}, weights, 1); !errors.Is(err, ErrEmptyZone) {
		t.Errorf("Expected ErrEmptyZone for empty zone B, got %v", err)
	}
}

func TestNewConnection_InvalidFrequency(t *testing.T) {
	ws, plc := testDevices()
	for _, f := range []float64{0, -5, math.Inf(1), math.NaN(), 1e-11, 1e-10} {
		_, err := NewConnection([]*model.Device{ws}, []*model.Device{plc}, map[string]float64{"modbus": 1}, f)
		if !errors.Is(err, ErrInvalidFrequency) {
			t.Errorf("Frequency %v: expected ErrInvalidFrequency, got %v", f, err)
		}
	}
}

func TestNewConnection_SlowestFrequencyKeepsGap(t *testing.T) {
	ws, plc := testDevices()
	c, err := NewConnection([]*model.Device{ws}, []*model.Device{plc}, map[string]float64{"modbus": 1}, 1e-9)
	if err != nil {
		t.Fatalf("NewConnection failed: %v", err)
	}
	if gap := c.MinGap(); gap < 277777*time.Hour {
		t.Errorf("Expected a gap of about 1e9s, got %s", gap)
	}
}

func TestSelectEndpoints_DrawsFromEachZone(t *testing.T) {
	zoneA := []*model.Device{{ID: 1}, {ID: 2}, {ID: 3}}
	zoneB := []*model.Device{{ID: 10}, {ID: 11}}
	conn, err := NewConnection(zoneA, zoneB, map[string]float64{"modbus": 1}, 1)
	if err != nil {
		t.Fatalf("NewConnection failed: %v", err)
	}

	rng := rand.New(rand.NewSource(5))
	seenA := make(map[int]int)
	seenB := make(map[int]int)
	for i := 0; i < 3000; i++ {
		a, b := conn.SelectEndpoints(rng)
		seenA[a.ID]++
		seenB[b.ID]++
	}
	if len(seenA) != 3 || len(seenB) != 2 {
		t.Fatalf("Expected every device to be drawn, got A=%v B=%v", seenA, seenB)
	}
	for id, n := range seenA {
		if id > 3 || n < 800 {
			t.Errorf("Zone A device %d drawn %d times", id, n)
		}
	}
	for id, n := range seenB {
		if id < 10 || n < 1300 {
			t.Errorf("Zone B device %d drawn %d times", id, n)
		}
	}
}

func TestFire(t *testing.T) {
	ws, plc := testDevices()
	conn, err := NewConnection([]*model.Device{ws}, []*model.Device{plc}, map[string]float64{"modbus": 1}, 1)
	if err != nil {
		t.Fatalf("NewConnection failed: %v", err)
	}
	store, _ := samples.New(map[string][]string{"modbus": {"{protocol:modbus,func:3}"}})
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	records, err := conn.Fire(ts, store, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Fire failed: %v", err)
	}

	fwd, rev := records[0], records[1]
	if fwd.SrcIP != ws.IP || fwd.DstIP != plc.IP || fwd.SrcMAC != ws.MAC || fwd.DstMAC != plc.MAC {
		t.Errorf("Forward record has wrong endpoints: %+v", fwd)
	}
	if rev.SrcIP != plc.IP || rev.DstIP != ws.IP || rev.SrcMAC != plc.MAC || rev.DstMAC != ws.MAC {
		t.Errorf("Reverse record has wrong endpoints: %+v", rev)
	}
	for _, r := range records {
		if r.Message != "{protocol:modbus,func:3}" || !r.Timestamp.Equal(ts) || r.Sequence != 1 || r.Protocol != "modbus" {
			t.Errorf("Unexpected record: %+v", r)
		}
	}
	if fwd.Direction != model.Request || rev.Direction != model.Response {
		t.Errorf("Expected request/response directions, got %s/%s", fwd.Direction, rev.Direction)
	}

	want := "192.168.0.1, 192.168.0.2, {protocol:modbus,func:3}, 03/01/2024-12:00:00.000, 1, 001422aabbcc, 001b1b010203"
	if got := fwd.String(); got != want {
		t.Errorf("Unexpected line:\n got: %s\nwant: %s", got, want)
	}
}

func TestFire_UnknownProtocol(t *testing.T) {
	ws, plc := testDevices()
	conn, _ := NewConnection([]*model.Device{ws}, []*model.Device{plc}, map[string]float64{"dnp3": 1}, 1)
	store, _ := samples.New(map[string][]string{"modbus": {"x"}})

	_, err := conn.Fire(time.Now(), store, rand.New(rand.NewSource(1)))
	var unknown *samples.UnknownProtocolError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownProtocolError, got %v", err)
	}
}

func TestMinGap(t *testing.T) {
	ws, plc := testDevices()
	conn, _ := NewConnection([]*model.Device{ws}, []*model.Device{plc}, map[string]float64{"modbus": 1}, 10)
	if gap := conn.MinGap(); gap != 100*time.Millisecond {
		t.Errorf("Expected 100ms gap for 10 events/s, got %s", gap)
	}
}
