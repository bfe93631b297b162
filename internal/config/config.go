package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the marketdash binaries.
type Config struct {
	Gateway   Gateway   `yaml:"gateway"`
	Dashboard Dashboard `yaml:"dashboard"`
	Cache     Cache     `yaml:"cache"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

// Gateway selects and configures the upstream market data provider.
type Gateway struct {
	Provider string        `yaml:"provider"` // "finnhub" or "alpaca"
	Timeout  time.Duration `yaml:"timeout"`
	Retries  int           `yaml:"retries"`
	Finnhub  Finnhub       `yaml:"finnhub"`
	Alpaca   Alpaca        `yaml:"alpaca"`
}

// Finnhub holds the Finnhub REST endpoint and token.
type Finnhub struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Dashboard controls the view-model controller.
type Dashboard struct {
	Watchlist        []string      `yaml:"watchlist"`
	RefreshInterval  time.Duration `yaml:"refresh_interval"`
	NewsLimit        int           `yaml:"news_limit"`
	SearchLimit      int           `yaml:"search_limit"`
	MinSearchLength  int           `yaml:"min_search_length"`
	DetailNewsLimit  int           `yaml:"detail_news_limit"`
	DetailNewsWindow int           `yaml:"detail_news_days"`
}

// Cache configures the optional Redis cache for reference data. An empty
// RedisAddr disables it.
type Cache struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
	Namespace     string        `yaml:"namespace"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Logging configures the application logger.
type Logging struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Gateway: Gateway{
			Provider: "finnhub",
			Timeout:  10 * time.Second,
			Retries:  2,
			Finnhub: Finnhub{
				BaseURL: "https://finnhub.io/api/v1",
			},
			Alpaca: Alpaca{
				BaseURL: "https://paper-api.alpaca.markets",
				DataURL: "https://data.alpaca.markets",
				Feed:    "iex",
			},
		},
		Dashboard: Dashboard{
			Watchlist:        []string{"SPY", "QQQ", "DIA", "IWM"},
			RefreshInterval:  5 * time.Second,
			NewsLimit:        6,
			SearchLimit:      5,
			MinSearchLength:  2,
			DetailNewsLimit:  5,
			DetailNewsWindow: 7,
		},
		Cache: Cache{
			TTL:       10 * time.Minute,
			Namespace: "marketdash",
		},
		Server: Server{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: Logging{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path over the defaults
// and then applies environment variable overrides. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MARKETDASH_PROVIDER"); v != "" {
		cfg.Gateway.Provider = v
	}

	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Gateway.Finnhub.APIKey = v
	}
	if v := os.Getenv("FINNHUB_BASE_URL"); v != "" {
		cfg.Gateway.Finnhub.BaseURL = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Gateway.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Gateway.Alpaca.DataURL = v
	}
	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Gateway.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Gateway.Alpaca.APISecret = v
	}

	if v := os.Getenv("MARKETDASH_WATCHLIST"); v != "" {
		cfg.Dashboard.Watchlist = ParseSymbols(v)
	}
	if v := os.Getenv("MARKETDASH_REFRESH"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MARKETDASH_REFRESH: %w", err)
		}
		cfg.Dashboard.RefreshInterval = d
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	return nil
}

// ParseSymbols splits a comma or whitespace separated list into upper-case
// symbols, dropping blanks and duplicates.
func ParseSymbols(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		sym := strings.ToUpper(strings.TrimSpace(f))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate reports configuration that would prevent the dashboard from
// running.
func (c *Config) Validate() error {
	var errs []error

	switch c.Gateway.Provider {
	case "finnhub":
		if c.Gateway.Finnhub.APIKey == "" {
			errs = append(errs, errors.New("gateway.finnhub.api_key is required (or FINNHUB_API_KEY)"))
		}
	case "alpaca":
		if c.Gateway.Alpaca.APIKey == "" || c.Gateway.Alpaca.APISecret == "" {
			errs = append(errs, errors.New("gateway.alpaca api_key and api_secret are required (or APCA_API_KEY_ID/APCA_API_SECRET_KEY)"))
		}
	default:
		errs = append(errs, fmt.Errorf("gateway.provider %q: want finnhub or alpaca", c.Gateway.Provider))
	}

	if len(c.Dashboard.Watchlist) == 0 {
		errs = append(errs, errors.New("dashboard.watchlist is empty"))
	}
	if c.Dashboard.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("dashboard.refresh_interval %v must be positive", c.Dashboard.RefreshInterval))
	}

	return errors.Join(errs...)
}
