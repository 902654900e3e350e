package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/felixgeelhaar/carebook/adapter/cli"
	"github.com/felixgeelhaar/carebook/adapter/cli/appointment"
	"github.com/felixgeelhaar/carebook/adapter/cli/availability"
	"github.com/felixgeelhaar/carebook/adapter/cli/policy"
	"github.com/felixgeelhaar/carebook/internal/app"
	"github.com/felixgeelhaar/carebook/pkg/config"
)

func main() {
	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg),
	}))
	slog.SetDefault(logger)
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}

	cli.SetApp(cli.NewAppFromContainer(container))

	// Register commands
	cli.AddCommand(availability.Cmd)
	cli.AddCommand(policy.Cmd)
	cli.AddCommand(appointment.Cmd)

	if err := cli.Root().ExecuteContext(ctx); err != nil {
		container.Close()
		os.Exit(1)
	}
	container.Close()
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.IsDevelopment() {
		return slog.LevelDebug
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
