package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"loom/internal/config"
	"loom/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := buildDaemon(cfg, logger)
	if err != nil {
		logger.Error("bootstrap", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	if err := d.Wait(); err != nil {
		logger.Error("pipeline stopped", logging.Error(err))
	}
	logger.Info("loomd shutting down")
}
