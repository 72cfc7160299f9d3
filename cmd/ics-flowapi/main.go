package main

import (
	"ICSFlowGen/internal/api"
	"ICSFlowGen/internal/config"
	"ICSFlowGen/internal/generator"
	"ICSFlowGen/internal/metrics"
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	maxWindow, err := time.ParseDuration(cfg.API.MaxWindow)
	if err != nil {
		log.Fatalf("Invalid api max_window: %v", err)
	}

	// The topology is built once and shared by every request.
	topo, err := generator.BuildTopology(cfg.Topology, generator.NewRand(cfg.Generator.Seed))
	if err != nil {
		log.Fatalf("Failed to build topology: %v", err)
	}
	store, err := generator.LoadSamples(cfg.Samples, topo)
	if err != nil {
		log.Fatalf("Failed to load samples: %v", err)
	}
	reg := metrics.NewRegistry()
	reg.ObserveTopology(len(topo.Devices()), len(topo.Connections()))

	// Run gRPC server
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.API.GrpcListenAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.API.GrpcListenAddr, err)
	}
	go func() {
		log.Printf("gRPC health server starting on %s", cfg.API.GrpcListenAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	// Run HTTP server
	httpServer := &http.Server{
		Addr:    cfg.API.HttpListenAddr,
		Handler: api.NewAPIHandler(topo, store, reg, maxWindow, cfg.API.MaxTicks).Router(),
	}
	go func() {
		log.Printf("HTTP server starting on %s", cfg.API.HttpListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Servers shutting down...")

	healthServer.Shutdown()
	grpcServer.GracefulStop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}

	log.Println("All servers exited.")
}
