package topology

import (
	"context"
	"fmt"
	"time"

	"ICSFlowGen/internal/model"
)

// Stats summarizes one scheduling pass.
type Stats struct {
	Ticks   int
	Fires   int
	Records int
}

// Scheduler steps simulated time over a topology and fires its connections.
type Scheduler struct {
	topo  *Topology
	store Sampler
	rng   model.Rand
}

// NewScheduler checks that every protocol the topology uses can be sampled.
func NewScheduler(topo *Topology, store Sampler, rng model.Rand) (*Scheduler, error) {
	if err := topo.Validate(store); err != nil {
		return nil, err
	}
	return &Scheduler{topo: topo, store: store, rng: rng}, nil
}

// Generate runs the whole window and returns the records in emission order.
func (s *Scheduler) Generate(start time.Time, tick time.Duration, end time.Time) ([]model.FlowRecord, error) {
	var records []model.FlowRecord
	_, err := s.Stream(context.Background(), start, tick, end, func(r model.FlowRecord) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Stream advances t from start to end (inclusive) in steps of tick. On every tick
// each connection, in list order, fires if at least its minimum gap has elapsed
// since it last fired; its two records are passed to emit. A connection fires at
// most once per tick. Every timer starts at start.
func (s *Scheduler) Stream(ctx context.Context, start time.Time, tick time.Duration, end time.Time, emit func(model.FlowRecord) error) (Stats, error) {
	var stats Stats
	if tick <= 0 {
		return stats, fmt.Errorf("tick interval must be positive, got %s", tick)
	}
	if end.Before(start) {
		return stats, fmt.Errorf("end time %s is before start time %s", end, start)
	}

	conns := s.topo.connections
	lastFired := make([]time.Time, len(conns))
	gaps := make([]time.Duration, len(conns))
	for i, c := range conns {
		lastFired[i] = start
		gaps[i] = c.MinGap()
	}

	for t := start; !t.After(end); t = t.Add(tick) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Ticks++

		for i, c := range conns {
			if t.Sub(lastFired[i]) < gaps[i] {
				continue
			}
			records, err := c.Fire(t, s.store, s.rng)
			if err != nil {
				return stats, fmt.Errorf("connection %d: %w", i, err)
			}
			for _, r := range records {
				if err := emit(r); err != nil {
					return stats, err
				}
			}
			lastFired[i] = t
			stats.Fires++
			stats.Records += len(records)
		}
	}
	return stats, nil
}
