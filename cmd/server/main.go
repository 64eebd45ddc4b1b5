package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/app"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/config"
)

const Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cli := parseFlags()

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if cli.Validate {
		logger.Info("configuration is valid", "environment", cfg.Environment)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := app.NewServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("close store", "error", err)
		}
	}()

	logger.Info("starting suggestion server",
		"environment", cfg.Environment,
		"http", cfg.Server.HTTP.Addr,
		"resp", cfg.Server.RESP.Addr,
		"store", cfg.Store.Type)

	return srv.Run(ctx)
}

func loadConfig(cli *CLIConfig) (*config.Config, error) {
	if cli.ConfigPath != "" {
		cfg, err := config.Load(cli.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", cli.ConfigPath, err)
		}
		cfg.Environment = cli.Env
		return cfg, nil
	}
	return config.LoadConfig(cli.Env)
}
