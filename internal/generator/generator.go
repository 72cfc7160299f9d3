package generator

import (
	"ICSFlowGen/internal/factory"
	"ICSFlowGen/internal/metrics"
	"ICSFlowGen/internal/model"
	"ICSFlowGen/internal/topology"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Options sizes the pipeline between the scheduler and the writers.
type Options struct {
	BatchSize   int
	ChannelSize int
}

// Summary describes a finished run.
type Summary struct {
	RunID      string         `json:"run_id"`
	Ticks      int            `json:"ticks"`
	Fires      int            `json:"fires"`
	Records    int            `json:"records"`
	ByProtocol map[string]int `json:"by_protocol"`
}

// NewRunInfo stamps a fresh run id on the window [start, end].
func NewRunInfo(start, end time.Time) model.RunInfo {
	return model.RunInfo{ID: uuid.NewString(), StartTime: start, EndTime: end}
}

// Generator streams scheduler output to a set of writers. Each writer is fed by
// its own goroutine through a buffered channel of batches.
type Generator struct {
	sched   *topology.Scheduler
	writers []factory.NamedWriter
	metrics *metrics.Registry
	opts    Options
}

// New validates the topology against the store and prepares the pipeline.
// metrics may be nil.
func New(topo *topology.Topology, store topology.Sampler, rng model.Rand, writers []factory.NamedWriter, reg *metrics.Registry, opts Options) (*Generator, error) {
	sched, err := topology.NewScheduler(topo, store, rng)
	if err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.ChannelSize < 0 {
		opts.ChannelSize = 0
	}
	reg.ObserveTopology(len(topo.Devices()), len(topo.Connections()))

	return &Generator{sched: sched, writers: writers, metrics: reg, opts: opts}, nil
}

// Run generates the window of run in steps of tick. Writers receive identical
// batches in emission order and are closed before Run returns. The first
// writer error aborts the run.
func (g *Generator) Run(ctx context.Context, run model.RunInfo, tick time.Duration) (summary Summary, err error) {
	started := time.Now()
	defer func() { g.metrics.ObserveRun(started, err) }()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		errOnce  sync.Once
		writeErr error
		wg       sync.WaitGroup
	)
	fail := func(err error) {
		errOnce.Do(func() {
			writeErr = err
			cancel()
		})
	}

	channels := make([]chan []model.FlowRecord, len(g.writers))
	for i, nw := range g.writers {
		channels[i] = make(chan []model.FlowRecord, g.opts.ChannelSize)
		wg.Add(1)
		go g.runWriter(nw, channels[i], &wg, fail)
	}
	log.Printf("Run %s started with %d writers, window %s - %s, tick %s", run.ID, len(g.writers), run.StartTime.Format(time.RFC3339), run.EndTime.Format(time.RFC3339), tick)

	summary = Summary{RunID: run.ID, ByProtocol: make(map[string]int)}
	batch := make([]model.FlowRecord, 0, g.opts.BatchSize)

	dispatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		for _, ch := range channels {
			select {
			case ch <- batch:
			case <-runCtx.Done():
				return runCtx.Err()
			}
		}
		batch = make([]model.FlowRecord, 0, g.opts.BatchSize)
		return nil
	}

	stats, err := g.sched.Stream(runCtx, run.StartTime, tick, run.EndTime, func(rec model.FlowRecord) error {
		summary.ByProtocol[rec.Protocol]++
		g.metrics.ObserveRecord(rec.Protocol)
		batch = append(batch, rec)
		if len(batch) >= g.opts.BatchSize {
			return dispatch()
		}
		return nil
	})
	if err == nil {
		err = dispatch()
	}

	for _, ch := range channels {
		close(ch)
	}
	wg.Wait()

	for _, nw := range g.writers {
		if cerr := nw.Writer.Close(); cerr != nil {
			log.Printf("Error closing writer '%s': %v", nw.Type, cerr)
			g.metrics.ObserveWriterError(nw.Type)
			fail(fmt.Errorf("failed to close writer '%s': %w", nw.Type, cerr))
		}
	}

	summary.Ticks = stats.Ticks
	summary.Fires = stats.Fires
	summary.Records = stats.Records
	g.metrics.ObserveFires(stats.Fires)

	// A writer failure cancels the stream; report the cause, not the cancellation.
	if writeErr != nil && (err == nil || errors.Is(err, context.Canceled)) {
		err = writeErr
	}
	if err != nil {
		return summary, err
	}
	log.Printf("Run %s finished: %d ticks, %d fires, %d records", run.ID, stats.Ticks, stats.Fires, stats.Records)
	return summary, nil
}

// runWriter drains one writer's channel. After a failure the remaining batches
// are discarded so the producer never blocks.
func (g *Generator) runWriter(nw factory.NamedWriter, ch <-chan []model.FlowRecord, wg *sync.WaitGroup, fail func(error)) {
	defer wg.Done()
	failed := false
	for batch := range ch {
		if failed {
			continue
		}
		if err := nw.Writer.Write(batch); err != nil {
			log.Printf("Error writing batch to writer '%s': %v", nw.Type, err)
			g.metrics.ObserveWriterError(nw.Type)
			fail(fmt.Errorf("writer '%s': %w", nw.Type, err))
			failed = true
		}
	}
}
