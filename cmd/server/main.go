package main

import (
	"log/slog"
	"os"

	"go-identity-service/internal/app"
	"go-identity-service/internal/config"
	"go-identity-service/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(logger.NewPrettyHandler(os.Stderr, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logger.New(cfg.LogFormat, cfg.LogLevel, os.Stdout))

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
