package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/teatak/viterbi/config"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config file (optional)")
	addr := flag.String("addr", "", "Listen address (default :8080)")
	modelPath := flag.String("model", "", "Path to model file")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			slog.Error("config load failed", "error", err)
			os.Exit(1)
		}
		cfg = *loaded
	}
	cfg.Merge(&config.Config{Addr: *addr, Model: *modelPath})

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	// 1. Initial Load
	srv := newServer(cfg, logger)
	if err := srv.reload(); err != nil {
		logger.Error("initial load failed", "error", err)
		os.Exit(1)
	}

	// 2. Handlers
	logger.Info("server started", "addr", cfg.Addr, "model", cfg.Model)
	if err := http.ListenAndServe(cfg.Addr, srv.routes()); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
