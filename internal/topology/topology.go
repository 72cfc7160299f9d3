package topology

import (
	"fmt"
	"time"

	"ICSFlowGen/internal/addr"
	"ICSFlowGen/internal/model"
	"ICSFlowGen/internal/samples"
)

// Range selects devices [From, To) from the device list of a procedural build.
type Range struct {
	From int
	To   int
}

// ConnectionRule describes one connection of a procedural build.
type ConnectionRule struct {
	ZoneA     Range
	ZoneB     Range
	Protocols map[string]float64
	Frequency float64
}

// Topology owns the simulated devices and the ordered connections between them.
type Topology struct {
	devices     []*model.Device
	connections []*Connection
}

// Build creates count devices of the given types and wires the rules between them.
// Device ids run from 1 to count.
func Build(rng model.Rand, count int, types []model.DeviceType, rules []ConnectionRule) (*Topology, error) {
	if len(types) != count {
		return nil, fmt.Errorf("device count %d does not match %d device types", count, len(types))
	}

	ips, err := addr.GenerateAddresses(count)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate addresses: %w", err)
	}
	macs := addr.GenerateMACs(rng, types)

	t := &Topology{devices: make([]*model.Device, count)}
	nextID := 0
	for i := range t.devices {
		nextID++
		t.devices[i] = &model.Device{ID: nextID, IP: ips[i], MAC: macs[i], Type: types[i]}
	}

	for i, rule := range rules {
		zoneA, err := t.zone(rule.ZoneA)
		if err != nil {
			return nil, fmt.Errorf("connection %d zone A: %w", i, err)
		}
		zoneB, err := t.zone(rule.ZoneB)
		if err != nil {
			return nil, fmt.Errorf("connection %d zone B: %w", i, err)
		}
		conn, err := NewConnection(zoneA, zoneB, rule.Protocols, rule.Frequency)
		if err != nil {
			return nil, fmt.Errorf("connection %d: %w", i, err)
		}
		t.connections = append(t.connections, conn)
	}
	return t, nil
}

func (t *Topology) zone(r Range) ([]*model.Device, error) {
	if r.From < 0 || r.To > len(t.devices) || r.From > r.To {
		return nil, fmt.Errorf("range [%d,%d) outside of %d devices", r.From, r.To, len(t.devices))
	}
	if r.From == r.To {
		return nil, ErrEmptyZone
	}
	return t.devices[r.From:r.To], nil
}

// Devices returns every device owned by the topology in id order of creation.
func (t *Topology) Devices() []*model.Device {
	return append([]*model.Device(nil), t.devices...)
}

// Connections returns the connections in firing order.
func (t *Topology) Connections() []*Connection {
	return append([]*Connection(nil), t.connections...)
}

// Protocols returns every protocol referenced by any connection, without duplicates.
func (t *Topology) Protocols() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range t.connections {
		for _, p := range c.protocols {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// Validate fails with *samples.UnknownProtocolError if a connection names a
// protocol the store cannot sample.
func (t *Topology) Validate(store Sampler) error {
	for i, c := range t.connections {
		for _, p := range c.protocols {
			if !store.Has(p) {
				return fmt.Errorf("connection %d: %w", i, &samples.UnknownProtocolError{Protocol: p})
			}
		}
	}
	return nil
}

// Generate runs the scheduler over [start, end] and returns every record produced.
func (t *Topology) Generate(store Sampler, rng model.Rand, start time.Time, tick time.Duration, end time.Time) ([]model.FlowRecord, error) {
	s, err := NewScheduler(t, store, rng)
	if err != nil {
		return nil, err
	}
	return s.Generate(start, tick, end)
}
