package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"marketdash/internal/app"
	"marketdash/internal/config"
	"marketdash/internal/util"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("MARKETDASH_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config:\n%v\n", err)
		os.Exit(1)
	}

	logPath := cfg.Logging.File
	if logPath == "" {
		logPath = fmt.Sprintf("/tmp/marketdash-%s.log", time.Now().Format("2006-01-02"))
	}
	logger, logCloser := util.NewFileLogger(util.FileLogOptions{
		Path:       logPath,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	defer logCloser.Close()
	util.SetDefault(logger)

	ctrl, closeGateway, err := app.NewController(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating controller: %v\n", err)
		os.Exit(1)
	}
	defer closeGateway()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, err := ctrl.Start(ctx, cfg.Dashboard.Watchlist, cfg.Dashboard.RefreshInterval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "starting refresh: %v\n", err)
		os.Exit(1)
	}
	defer handle.Stop()
	logger.Info("dashboard started",
		"watchlist", cfg.Dashboard.Watchlist,
		"interval", cfg.Dashboard.RefreshInterval,
		"log", logPath)

	subID, snaps := ctrl.Subscribe(8)
	defer ctrl.Unsubscribe(subID)

	p := tea.NewProgram(
		initialModel(ctx, cancel, ctrl, snaps, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
