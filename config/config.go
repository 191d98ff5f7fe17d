package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/rustyeddy/quarks/internal/logging"
	"github.com/rustyeddy/quarks/journal"
	"github.com/rustyeddy/quarks/market"
	"github.com/rustyeddy/quarks/strategies"
	"gopkg.in/yaml.v3"
)

// Config is the complete quarks configuration.
type Config struct {
	Account  AccountConfig     `json:"account" yaml:"account"`
	Backtest BacktestConfig    `json:"backtest" yaml:"backtest"`
	Strategy strategies.Params `json:"strategy" yaml:"strategy"`
	Data     DataConfig        `json:"data" yaml:"data"`
	Journal  JournalConfig     `json:"journal" yaml:"journal"`
	Logging  LoggingConfig     `json:"logging" yaml:"logging"`
	Runner   RunnerConfig      `json:"runner" yaml:"runner"`
}

// AccountConfig seeds new portfolios.
type AccountConfig struct {
	UserID int64   `json:"user_id" yaml:"user_id"`
	Name   string  `json:"name" yaml:"name"`
	Cash   float64 `json:"cash" yaml:"cash"`
}

// BacktestConfig holds defaults for the backtest command. Dates are
// YYYY-MM-DD.
type BacktestConfig struct {
	Strategy string `json:"strategy" yaml:"strategy"`
	Symbol   string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Start    string `json:"start,omitempty" yaml:"start,omitempty"`
	End      string `json:"end,omitempty" yaml:"end,omitempty"`
}

// DataConfig selects where bars come from.
type DataConfig struct {
	Source string `json:"source" yaml:"source"` // "csv", "parquet" or "alpaca"
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`

	AlpacaKey    string `json:"alpaca_key,omitempty" yaml:"alpaca_key,omitempty"`
	AlpacaSecret string `json:"alpaca_secret,omitempty" yaml:"alpaca_secret,omitempty"`
	AlpacaURL    string `json:"alpaca_url,omitempty" yaml:"alpaca_url,omitempty"`
	AlpacaFeed   string `json:"alpaca_feed,omitempty" yaml:"alpaca_feed,omitempty"`
}

// JournalConfig contains persistence and report parameters.
type JournalConfig struct {
	Driver string `json:"driver" yaml:"driver"` // "sqlite3" or "sqlite"
	DBPath string `json:"db_path" yaml:"db_path"`
	CSVDir string `json:"csv_dir,omitempty" yaml:"csv_dir,omitempty"`
	OrgDir string `json:"org_dir,omitempty" yaml:"org_dir,omitempty"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

type RunnerConfig struct {
	Workers int `json:"workers" yaml:"workers"`
}

// LoadFromFile loads configuration from a YAML or JSON file and applies
// environment overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load reads path, or starts from Default when path is empty. Environment
// overrides apply either way.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Cash <= 0 {
		return fmt.Errorf("account.cash must be positive")
	}
	if c.Backtest.Strategy != "" {
		if _, err := strategies.New(c.Backtest.Strategy, c.Strategy); err != nil {
			return fmt.Errorf("backtest.strategy: %w", err)
		}
	}
	if err := c.Strategy.WithDefaults().Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	for _, d := range []struct{ name, value string }{{"start", c.Backtest.Start}, {"end", c.Backtest.End}} {
		if d.value == "" {
			continue
		}
		if _, err := market.ParseDate(d.value); err != nil {
			return fmt.Errorf("backtest.%s: %w", d.name, err)
		}
	}

	switch c.Data.Source {
	case "csv", "parquet":
		if c.Data.Path == "" {
			return fmt.Errorf("data.path required for %s source", c.Data.Source)
		}
	case "alpaca":
		if c.Data.AlpacaKey == "" || c.Data.AlpacaSecret == "" {
			return fmt.Errorf("data.alpaca_key and data.alpaca_secret required for alpaca source")
		}
	default:
		return fmt.Errorf("data.source must be 'csv', 'parquet' or 'alpaca'")
	}

	if c.Journal.Driver != journal.DriverCGO && c.Journal.Driver != journal.DriverPureGo {
		return fmt.Errorf("journal.driver must be '%s' or '%s'", journal.DriverCGO, journal.DriverPureGo)
	}
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json'")
	}
	if c.Runner.Workers <= 0 {
		return fmt.Errorf("runner.workers must be positive")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			UserID: 1,
			Name:   "default",
			Cash:   10000,
		},
		Backtest: BacktestConfig{
			Strategy: strategies.AdaptiveName,
		},
		Strategy: strategies.DefaultParams(),
		Data: DataConfig{
			Source: "csv",
			Path:   "./data",
		},
		Journal: JournalConfig{
			Driver: journal.DriverCGO,
			DBPath: "./quarks.db",
			CSVDir: "./out",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Runner: RunnerConfig{
			Workers: 4,
		},
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QUARKS_DATA_SOURCE"); v != "" {
		cfg.Data.Source = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Data.Path = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Journal.DBPath = v
	}
	if v := os.Getenv("QUARKS_SQLITE_DRIVER"); v != "" {
		cfg.Journal.Driver = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QUARKS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Runner.Workers = n
		}
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Data.AlpacaURL = v
	}

	// Standard Alpaca env vars, the names the SDK itself reads.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Data.AlpacaKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Data.AlpacaSecret = v
	}
}

// Provider opens the configured bar source. The quoter is live for alpaca
// and replays the latest stored close otherwise.
func (c DataConfig) Provider() (market.Provider, market.Quoter, error) {
	switch c.Source {
	case "csv":
		mp, err := market.LoadCSVDir(c.Path)
		if err != nil {
			return nil, nil, err
		}
		return mp, market.CloseQuoter{Provider: mp}, nil
	case "parquet":
		ps := market.NewParquetStore(c.Path)
		return ps, market.CloseQuoter{Provider: ps}, nil
	case "alpaca":
		ap := market.NewAlpacaProvider(market.AlpacaConfig{
			APIKey:    c.AlpacaKey,
			APISecret: c.AlpacaSecret,
			BaseURL:   c.AlpacaURL,
			Feed:      c.AlpacaFeed,
		})
		return ap, ap, nil
	}
	return nil, nil, fmt.Errorf("unknown data source %q", c.Source)
}

// Logger builds the process logger from the logging section.
func (c LoggingConfig) Logger() *slog.Logger {
	return logging.New(c.Level, c.Format, nil)
}
