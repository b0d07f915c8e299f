package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openvault/ledger-node/db"
	"github.com/openvault/ledger-node/db/metadb"
	"github.com/openvault/ledger-node/ledger"
	"github.com/openvault/ledger-node/log"
	"github.com/openvault/ledger-node/queue"
	"github.com/openvault/ledger-node/queue/memqueue"
	"github.com/openvault/ledger-node/queue/redisqueue"
	"github.com/openvault/ledger-node/service"
	"github.com/openvault/ledger-node/storage"
)

// Services holds all the running services
type Services struct {
	Storage *storage.Storage
	Queue   queue.Queue
	API     *service.APIService
	Engine  *service.EngineService
}

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	log.Init(cfg.Log.Level, cfg.Log.Output)
	log.Infow("starting ledgerd", "version", Version)

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup services
	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to setup services: %v", err)
	}
	defer shutdownServices(services)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())
}

// setupServices initializes and starts all required services
func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	services := &Services{}

	// Initialize storage database
	log.Infow("initializing storage", "datadir", cfg.Datadir, "type", db.TypePebble)
	storagedb, err := metadb.New(db.TypePebble, cfg.Datadir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	services.Storage = storage.New(storagedb)

	// Initialize the queue backend
	if cfg.Redis.Addr != "" {
		log.Infow("connecting to redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		services.Queue, err = redisqueue.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	} else {
		log.Info("no redis address configured, using the embedded in-memory queue")
		services.Queue = memqueue.New()
	}

	// Create the pipeline engine. The engine also serves balance reads
	// and transfer intake for the API, so it is built even when the
	// background processor is disabled for this instance.
	engineCfg := ledger.Config{
		BatchSize:       cfg.Processor.BatchSize,
		BlockTime:       cfg.Processor.BlockTime(),
		MinTxsPerBlock:  cfg.Processor.MinTxsPerBlock,
		Interval:        cfg.Processor.Interval(),
		MempoolList:     cfg.Queue.Mempool,
		DeadLetterList:  cfg.Queue.DeadLetter,
		BalanceCacheTTL: time.Duration(cfg.Cache.BalanceTTLSeconds) * time.Second,
	}
	services.Engine = service.NewEngine(services.Storage, services.Queue, ledger.SystemClock(), engineCfg)

	// Start the transfer processor
	if cfg.Processor.Run {
		log.Infow("starting transfer processor",
			"batchSize", cfg.Processor.BatchSize,
			"blockTime", cfg.Processor.BlockTime().String(),
			"minTxsPerBlock", cfg.Processor.MinTxsPerBlock,
			"interval", cfg.Processor.Interval().String())
		if err := services.Engine.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start transfer processor: %w", err)
		}
	} else {
		log.Info("transfer processor disabled for this instance")
	}

	// Start API service
	log.Infow("starting API service", "host", cfg.API.Host, "port", cfg.API.Port)
	services.API = service.NewAPI(services.Storage, services.Engine.Engine,
		cfg.API.Host, cfg.API.Port, cfg.Auth.JWTSecret, cfg.Auth.AdminToken, false)
	if err := services.API.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start API service: %w", err)
	}

	log.Info("ledgerd is running, ready to process transfers!")
	return services, nil
}

// shutdownServices gracefully shuts down all services
func shutdownServices(services *Services) {
	if services == nil {
		return
	}

	// Stop services in reverse order of startup
	if services.API != nil {
		services.API.Stop()
	}
	if services.Engine != nil {
		services.Engine.Stop()
	}
	if services.Queue != nil {
		if err := services.Queue.Close(); err != nil {
			log.Warnw("failed to close queue", "error", err.Error())
		}
	}
	if services.Storage != nil {
		services.Storage.Close()
	}
}
