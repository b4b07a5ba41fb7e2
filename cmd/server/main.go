// Package main is the entry point for the askwall server.
//
// main stays minimal: load configuration, build the logger, hand off to
// internal/server. All actual behavior lives in the imported packages.
package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sakif/askwall/internal/config"
	"github.com/sakif/askwall/internal/server"
)

func main() {
	// A .env file is a local-development convenience; in deployments the
	// variables come from the environment and the file doesn't exist.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.String("error", err.Error()))
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.Load(os.Getenv("ASKWALL_CONFIG"))
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.JWTSecret == "" {
		logger.Error("ASKWALL_JWT_SECRET is required; generate one with: openssl rand -hex 32")
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(cfg.DBPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
