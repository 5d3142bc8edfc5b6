package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Flags override environment
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.IntVar(&cfg.Orchestrator.Workers, "workers", cfg.Orchestrator.Workers, "Worker pool size")
	flag.IntVar(&cfg.Orchestrator.QueueSize, "queue", cfg.Orchestrator.QueueSize, "Work queue capacity")
	flag.StringVar(&cfg.Orchestrator.ErrorPolicy, "policy", cfg.Orchestrator.ErrorPolicy, "Module error policy: continue, abort or ignore")
	flag.StringVar(&cfg.Pipeline.File, "pipeline", cfg.Pipeline.File, "Pipeline manifest (.yaml, .toml or .json)")
	flag.BoolVar(&cfg.Pipeline.Watch, "watch", cfg.Pipeline.Watch, "Reload the pipeline manifest when it changes")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development mode")
	flag.Parse()

	if cfg.Logging.Development && cfg.Logging.Level == "info" {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully", zap.Stringer("signal", sig))
	case err := <-errChan:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		os.Exit(1)
	}
}
