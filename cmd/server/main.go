package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pawel-madurski/elasticsearch-image/api"
	"github.com/pawel-madurski/elasticsearch-image/config"
	"github.com/pawel-madurski/elasticsearch-image/docstore"
	"github.com/pawel-madurski/elasticsearch-image/engine"
	"github.com/pawel-madurski/elasticsearch-image/feature"
)

func main() {
	// Parse command line flags
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		host       = flag.String("host", "", "Host to listen on (overrides config)")
		port       = flag.Int("port", 0, "Port to listen on (overrides config)")
		dbType     = flag.String("db", "", "Store type: memory, bolt, badger (overrides config)")
		dbPath     = flag.String("path", "", "Store path (overrides config)")
	)
	flag.Parse()

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}

	// Override with command-line flags
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbType != "" {
		cfg.Store.Type = *dbType
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("=== Image Search Server ===")
	fmt.Printf("  Host: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Store: %s\n", cfg.Store.Type)
	if cfg.Store.Path != "" {
		fmt.Printf("  Path: %s\n", cfg.Store.Path)
	}
	fmt.Println()

	// Create the document store
	factory := docstore.NewDefaultFactory()
	store, err := factory.CreateStore(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	// Initialize the embedding session if configured
	if cfg.ONNX != nil {
		session, err := feature.NewONNXSession(*cfg.ONNX)
		if err != nil {
			log.Fatalf("Failed to initialize embedding model: %v", err)
		}
		defer session.Close()
		feature.SetDeepSession(session)
		fmt.Printf("  Embedding model: %s\n", cfg.ONNX.ModelPath)
	}

	// Create the engine, rebuilding in-memory indices from the store
	eng, err := engine.NewEngineWithRecovery(context.Background(), store, cfg.EngineOptions())
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	// Create API server
	server := api.NewServer(eng, cfg.APIServerConfig())

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	fmt.Println("Server stopped gracefully")
}
