package main

import (
	"ICSFlowGen/internal/config"
	"ICSFlowGen/internal/factory"
	"ICSFlowGen/internal/generator"
	"ICSFlowGen/internal/metrics"
	"ICSFlowGen/internal/model"
	"ICSFlowGen/internal/stream"
	_ "ICSFlowGen/internal/writer" // Registers the flow writers
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"
)

func main() {
	// --- Command-Line Flag Parsing ---
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	mode := flag.String("mode", "gen", "Operating mode: 'gen' to generate flows, 'sub' to print flows from NATS, 'export' to save the topology.")
	out := flag.String("out", "", "Topology output path for export mode (.yaml, .json or .lua).")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// --- Mode Dispatch ---
	switch *mode {
	case "gen":
		runGenerator(cfg)
	case "sub":
		runSubscriber(cfg.Stream)
	case "export":
		runExport(cfg, *out)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runGenerator builds the topology, generates the configured window and feeds
// every enabled writer.
func runGenerator(cfg *config.Config) {
	rng := generator.NewRand(cfg.Generator.Seed)

	topo, err := generator.BuildTopology(cfg.Topology, rng)
	if err != nil {
		log.Fatalf("Failed to build topology: %v", err)
	}
	if err := generator.ExportTopology(cfg.Topology, topo); err != nil {
		log.Fatalf("%v", err)
	}
	store, err := generator.LoadSamples(cfg.Samples, topo)
	if err != nil {
		log.Fatalf("Failed to load samples: %v", err)
	}

	start, tick, end, err := cfg.Generator.Window(time.Now())
	if err != nil {
		log.Fatalf("Invalid generation window: %v", err)
	}
	run := generator.NewRunInfo(start, end)

	writers, err := factory.Create(cfg.Writers, run)
	if err != nil {
		log.Fatalf("Failed to create writers: %v", err)
	}
	if len(writers) == 0 {
		log.Println("Warning: no writers enabled, records will only be counted.")
	}

	gen, err := generator.New(topo, store, rng, writers, metrics.NewRegistry(), generator.Options{
		BatchSize:   cfg.Generator.BatchSize,
		ChannelSize: cfg.Generator.SizeOfRecordChannel,
	})
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}

	// Set up a context that is cancelled on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := gen.Run(ctx, run, tick)
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}

	report, _ := json.MarshalIndent(summary, "", "  ")
	log.Printf("Generation complete:\n%s", report)
}

// runSubscriber prints every flow record published on the stream subject.
func runSubscriber(cfg config.NATSConfig) {
	log.Println("Starting ics-flowgen in SUBSCRIBER mode...")

	sub, err := stream.NewSubscriber(cfg)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	var received atomic.Int64
	handler := func(record model.FlowRecord) {
		fmt.Println(record.String())
		received.Add(1)
	}
	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	// Set up a channel to handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for a shutdown signal
	<-sigChan
	log.Printf("Shutdown signal received after %d records, cleaning up...", received.Load())
}

// runExport builds the topology and saves it without generating anything.
func runExport(cfg *config.Config, out string) {
	if out == "" {
		out = cfg.Topology.ExportPath
	}
	if out == "" {
		log.Println("Error: -out flag or topology.export_path is required for export mode.")
		flag.Usage()
		os.Exit(1)
	}

	topo, err := generator.BuildTopology(cfg.Topology, generator.NewRand(cfg.Generator.Seed))
	if err != nil {
		log.Fatalf("Failed to build topology: %v", err)
	}
	exportCfg := cfg.Topology
	exportCfg.ExportPath = out
	if err := generator.ExportTopology(exportCfg, topo); err != nil {
		log.Fatalf("%v", err)
	}
}
