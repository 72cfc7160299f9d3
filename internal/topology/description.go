package topology

import (
	"fmt"

	"ICSFlowGen/internal/model"
)

// Description is the persisted form of a topology: its connections in order,
// each carrying full copies of its zone devices.
type Description struct {
	Connections []ConnectionDescription `yaml:"connections" json:"connections" lua:"connections"`
}

type ConnectionDescription struct {
	ZoneA     []DeviceDescription `yaml:"zone_a" json:"zone_a" lua:"zone_a"`
	ZoneB     []DeviceDescription `yaml:"zone_b" json:"zone_b" lua:"zone_b"`
	Protocols map[string]float64  `yaml:"protocols" json:"protocols" lua:"protocols"`
	Frequency float64             `yaml:"frequency" json:"frequency" lua:"frequency"`
}

type DeviceDescription struct {
	ID   int    `yaml:"id" json:"id" lua:"id"`
	IP   string `yaml:"ip" json:"ip" lua:"ip"`
	MAC  string `yaml:"mac" json:"mac" lua:"mac"`
	Type string `yaml:"type" json:"type" lua:"type"`
}

// ImportOptions controls how persisted devices are rebuilt.
type ImportOptions struct {
	// PreserveIDs keeps persisted device ids. Otherwise devices are renumbered
	// from 1 in order of first appearance.
	PreserveIDs bool
}

// Export returns the persisted form of the topology.
func (t *Topology) Export() Description {
	desc := Description{Connections: make([]ConnectionDescription, 0, len(t.connections))}
	for _, c := range t.connections {
		desc.Connections = append(desc.Connections, ConnectionDescription{
			ZoneA:     describeDevices(c.zoneA),
			ZoneB:     describeDevices(c.zoneB),
			Protocols: c.Weights(),
			Frequency: c.frequency,
		})
	}
	return desc
}

func describeDevices(devices []*model.Device) []DeviceDescription {
	out := make([]DeviceDescription, len(devices))
	for i, d := range devices {
		out[i] = DeviceDescription{ID: d.ID, IP: d.IP, MAC: d.MAC, Type: string(d.Type)}
	}
	return out
}

// FromDescription rebuilds a topology. A persisted id names one device even when
// it appears in several zones; conflicting copies are rejected.
func FromDescription(desc Description, opts ImportOptions) (*Topology, error) {
	t := &Topology{}
	byPersistedID := make(map[int]*model.Device)
	nextID := 0

	resolve := func(dd DeviceDescription) (*model.Device, error) {
		if d, ok := byPersistedID[dd.ID]; ok {
			if d.IP != dd.IP || d.MAC != dd.MAC || string(d.Type) != dd.Type {
				return nil, fmt.Errorf("device %d is described inconsistently", dd.ID)
			}
			return d, nil
		}
		nextID++
		id := nextID
		if opts.PreserveIDs {
			id = dd.ID
		}
		d := &model.Device{ID: id, IP: dd.IP, MAC: dd.MAC, Type: model.DeviceType(dd.Type)}
		byPersistedID[dd.ID] = d
		t.devices = append(t.devices, d)
		return d, nil
	}

	zone := func(dds []DeviceDescription) ([]*model.Device, error) {
		devices := make([]*model.Device, 0, len(dds))
		for _, dd := range dds {
			d, err := resolve(dd)
			if err != nil {
				return nil, err
			}
			devices = append(devices, d)
		}
		return devices, nil
	}

	for i, cd := range desc.Connections {
		zoneA, err := zone(cd.ZoneA)
		if err != nil {
			return nil, fmt.Errorf("connection %d zone A: %w", i, err)
		}
		zoneB, err := zone(cd.ZoneB)
		if err != nil {
			return nil, fmt.Errorf("connection %d zone B: %w", i, err)
		}
		conn, err := NewConnection(zoneA, zoneB, cd.Protocols, cd.Frequency)
		if err != nil {
			return nil, fmt.Errorf("connection %d: %w", i, err)
		}
		t.connections = append(t.connections, conn)
	}
	return t, nil
}
