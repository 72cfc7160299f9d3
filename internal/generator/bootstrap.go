package generator

import (
	"ICSFlowGen/internal/config"
	"ICSFlowGen/internal/model"
	"ICSFlowGen/internal/samples"
	"ICSFlowGen/internal/topofile"
	"ICSFlowGen/internal/topology"
	"fmt"
	"log"
	"math/rand"
	"time"
)

// NewRand returns a seeded random source. A zero seed uses the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// BuildTopology imports the configured topology file, or builds the topology
// procedurally from the device list and connection rules.
func BuildTopology(cfg config.TopologyConfig, rng model.Rand) (*topology.Topology, error) {
	if cfg.File != "" {
		desc, err := topofile.Load(cfg.File)
		if err != nil {
			return nil, err
		}
		topo, err := topology.FromDescription(desc, topology.ImportOptions{PreserveIDs: cfg.PreserveIDs})
		if err != nil {
			return nil, fmt.Errorf("failed to import topology '%s': %w", cfg.File, err)
		}
		log.Printf("Imported topology from %s: %d devices, %d connections", cfg.File, len(topo.Devices()), len(topo.Connections()))
		return topo, nil
	}

	types := make([]model.DeviceType, len(cfg.Devices))
	for i, d := range cfg.Devices {
		types[i] = model.DeviceType(d)
	}
	rules := make([]topology.ConnectionRule, len(cfg.Connections))
	for i, c := range cfg.Connections {
		rules[i] = topology.ConnectionRule{
			ZoneA:     topology.Range{From: c.ZoneA.From, To: c.ZoneA.To},
			ZoneB:     topology.Range{From: c.ZoneB.From, To: c.ZoneB.To},
			Protocols: c.Protocols,
			Frequency: c.Frequency,
		}
	}

	topo, err := topology.Build(rng, cfg.DeviceCount, types, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to build topology: %w", err)
	}
	log.Printf("Built topology: %d devices, %d connections", len(topo.Devices()), len(topo.Connections()))
	return topo, nil
}

// LoadSamples loads the sample files of every protocol the topology uses plus
// the configured extras.
func LoadSamples(cfg config.SamplesConfig, topo *topology.Topology) (*samples.Store, error) {
	protocols := append(topo.Protocols(), cfg.Protocols...)
	store, err := samples.Load(cfg.Dir, protocols)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded samples for %d protocols from %s", len(store.Protocols()), cfg.Dir)
	return store, nil
}

// ExportTopology persists topo when an export path is configured.
func ExportTopology(cfg config.TopologyConfig, topo *topology.Topology) error {
	if cfg.ExportPath == "" {
		return nil
	}
	if err := topofile.Save(cfg.ExportPath, topo.Export()); err != nil {
		return fmt.Errorf("failed to export topology: %w", err)
	}
	log.Printf("Exported topology to %s", cfg.ExportPath)
	return nil
}
