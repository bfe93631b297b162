// Package app wires configuration into the gateway and controller shared by
// the marketdash binaries.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"marketdash/internal/config"
	"marketdash/internal/controller"
	"marketdash/internal/gateway"
	"marketdash/internal/gateway/alpaca"
	"marketdash/internal/gateway/cache"
	"marketdash/internal/gateway/finnhub"
)

// Closer releases resources held by a gateway built by NewGateway.
type Closer func() error

// NewGateway builds the configured provider, wrapped in the Redis cache when
// cfg.Cache.RedisAddr is set. The returned Closer must be called on exit.
func NewGateway(cfg *config.Config, log *slog.Logger) (gateway.Gateway, Closer, error) {
	var gw gateway.Gateway
	switch cfg.Gateway.Provider {
	case "finnhub":
		gw = finnhub.New(finnhub.Config{
			APIKey:  cfg.Gateway.Finnhub.APIKey,
			BaseURL: cfg.Gateway.Finnhub.BaseURL,
			Timeout: cfg.Gateway.Timeout,
			Retries: cfg.Gateway.Retries,
		})
	case "alpaca":
		gw = alpaca.New(alpaca.Config{
			APIKey:    cfg.Gateway.Alpaca.APIKey,
			APISecret: cfg.Gateway.Alpaca.APISecret,
			BaseURL:   cfg.Gateway.Alpaca.BaseURL,
			DataURL:   cfg.Gateway.Alpaca.DataURL,
			Feed:      cfg.Gateway.Alpaca.Feed,
			Retries:   cfg.Gateway.Retries,
		})
	default:
		return nil, nil, fmt.Errorf("unknown gateway provider %q", cfg.Gateway.Provider)
	}
	log.Info("gateway configured", "provider", cfg.Gateway.Provider)

	if cfg.Cache.RedisAddr == "" {
		return cache.New(nil, cfg.Cache.TTL, gw, cfg.Cache.Namespace), func() error { return nil }, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	log.Info("redis cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
	return cache.New(rdb, cfg.Cache.TTL, gw, cfg.Cache.Namespace), rdb.Close, nil
}

// ControllerOptions maps the dashboard section onto controller options.
func ControllerOptions(cfg *config.Config, log *slog.Logger) controller.Options {
	d := cfg.Dashboard
	return controller.Options{
		NewsLimit:        d.NewsLimit,
		SearchLimit:      d.SearchLimit,
		MinSearchLength:  d.MinSearchLength,
		DetailNewsLimit:  d.DetailNewsLimit,
		DetailNewsWindow: time.Duration(d.DetailNewsWindow) * 24 * time.Hour,
		Logger:           log,
	}
}

// NewController builds the gateway and a controller over it.
func NewController(cfg *config.Config, log *slog.Logger) (*controller.Controller, Closer, error) {
	gw, closer, err := NewGateway(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return controller.New(gw, ControllerOptions(cfg, log)), closer, nil
}
