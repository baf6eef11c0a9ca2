package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/logship/filetail/internal/checkpoint"
	"github.com/logship/filetail/internal/config"
	"github.com/logship/filetail/internal/observability"
	"github.com/logship/filetail/internal/tail"
	"github.com/logship/filetail/internal/watch"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	observability.InitLogger(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("version", version).
		Strs("paths", cfg.WatchPaths).
		Msg("Starting filetail")

	// Initialize tracer (no-op unless enabled)
	shutdownTracer, err := observability.InitTracer(observability.TracerConfig{
		ServiceName:    "filetail",
		ServiceVersion: version,
		Endpoint:       cfg.OTLPEndpoint,
		Protocol:       cfg.OTLPProtocol,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer shutdownTracer(context.Background())
	}

	// Open the checkpoint store
	store, err := newStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open checkpoint store")
	}
	defer store.Close()

	// Wire discovery and the tailer
	watcher := watch.New(cfg.StatInterval, cfg.DiscoverInterval)
	watcher.Exclude(cfg.Exclude)

	tailer := tail.New(store, watcher, tail.Config{
		FlushInterval:    cfg.SincedbWriteInterval,
		OpenWarnInterval: cfg.OpenWarnInterval,
	})
	for _, pattern := range cfg.WatchPaths {
		tailer.Tail(pattern)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Run the subscription pump; lines go to stdout
	errChan := make(chan error, 1)
	go func() {
		errChan <- tailer.Subscribe(ctx, func(path, line string) {
			fmt.Fprintln(os.Stdout, line)
		})
	}()

	select {
	case <-sigChan:
		log.Info().Msg("Received shutdown signal")
		cancel()
		if err := <-errChan; err != nil {
			log.Error().Err(err).Msg("Subscription ended with error")
		}
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("Subscription ended with error")
		}
	}

	log.Info().Msg("filetail stopped")
}

// newStore selects the checkpoint backend from configuration.
func newStore(cfg *config.Config) (checkpoint.Store, error) {
	if cfg.CheckpointBackend == "bolt" {
		return checkpoint.NewBoltStore(cfg.SincedbPath)
	}
	return checkpoint.NewFileStore(cfg.SincedbPath), nil
}
