package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"marketdash/internal/app"
	"marketdash/internal/config"
	"marketdash/internal/httpapi"
	"marketdash/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("MARKETDASH_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logging)
	util.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl, closeGateway, err := app.NewController(cfg, log)
	if err != nil {
		return err
	}
	defer closeGateway()

	handle, err := ctrl.Start(ctx, cfg.Dashboard.Watchlist, cfg.Dashboard.RefreshInterval)
	if err != nil {
		return fmt.Errorf("starting refresh: %w", err)
	}
	defer handle.Stop()

	log.Info("marketdash-server starting",
		"addr", cfg.Server.Addr(),
		"provider", cfg.Gateway.Provider,
		"watchlist", cfg.Dashboard.Watchlist,
		"interval", cfg.Dashboard.RefreshInterval)

	return httpapi.NewServer(ctrl, log).ListenAndServe(ctx, cfg.Server.Addr())
}

// newLogger logs to stdout unless a log file is configured.
func newLogger(lc config.Logging) *slog.Logger {
	if lc.File == "" {
		return util.NewLogger(lc.Level)
	}
	log, _ := util.NewFileLogger(util.FileLogOptions{
		Path:       lc.File,
		Level:      lc.Level,
		Format:     lc.Format,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
	})
	return log
}
