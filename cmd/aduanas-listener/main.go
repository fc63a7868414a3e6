package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"aduanas/internal/config"
	"aduanas/internal/listener"
	"aduanas/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log, err := config.NewLogger(cfg.Log)
	must(err)
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := listener.NewService(db, cfg, log)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("listener started", zap.String("raw_dir", cfg.RawDir), zap.Int("interval_sec", cfg.ListenerIntervalSec))
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
