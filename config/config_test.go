package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/quarks/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, 10000.0, cfg.Account.Cash)
	assert.Equal(t, "adaptive", cfg.Backtest.Strategy)
	assert.Equal(t, 14, cfg.Strategy.Lookback)
	assert.Equal(t, "sqlite3", cfg.Journal.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"zero cash", func(c *Config) { c.Account.Cash = 0 }, "account.cash must be positive"},
		{"unknown strategy", func(c *Config) { c.Backtest.Strategy = "arima" }, "backtest.strategy"},
		{"bad window", func(c *Config) { c.Strategy.Window = 1 }, "window must be greater than 1"},
		{"bad start", func(c *Config) { c.Backtest.Start = "01/02/2024" }, "backtest.start"},
		{"unknown source", func(c *Config) { c.Data.Source = "ftp" }, "data.source must be"},
		{"csv without path", func(c *Config) { c.Data.Path = "" }, "data.path required"},
		{"alpaca without keys", func(c *Config) { c.Data.Source = "alpaca" }, "alpaca_key"},
		{"bad driver", func(c *Config) { c.Journal.Driver = "postgres" }, "journal.driver"},
		{"no db path", func(c *Config) { c.Journal.DBPath = "" }, "journal.db_path is required"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"no workers", func(c *Config) { c.Runner.Workers = 0 }, "runner.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Backtest.Symbol = "AAPL"
			cfg.Backtest.Start = "2024-01-02"
			cfg.Strategy.Threshold = 0.07
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quarks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  cash: 2500\nstrategy:\n  lookback: 10\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, cfg.Account.Cash)
	assert.Equal(t, 10, cfg.Strategy.Lookback)
	assert.Equal(t, 20, cfg.Strategy.Window)
	assert.Equal(t, "csv", cfg.Data.Source)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account: [unclosed"), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SQLITE_PATH", "/tmp/env.db")
	t.Setenv("QUARKS_SQLITE_DRIVER", "sqlite")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("QUARKS_WORKERS", "9")
	t.Setenv("APCA_API_KEY_ID", "key")
	t.Setenv("APCA_API_SECRET_KEY", "secret")
	t.Setenv("QUARKS_DATA_SOURCE", "alpaca")

	path := filepath.Join(t.TempDir(), "quarks.json")
	require.NoError(t, Default().SaveToFile(path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.Journal.DBPath)
	assert.Equal(t, "sqlite", cfg.Journal.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 9, cfg.Runner.Workers)
	assert.Equal(t, "alpaca", cfg.Data.Source)
	assert.Equal(t, "key", cfg.Data.AlpacaKey)
	assert.Equal(t, "secret", cfg.Data.AlpacaSecret)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("QUARKS_WORKERS", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Runner.Workers)

	t.Setenv("QUARKS_SQLITE_DRIVER", "postgres")
	_, err = Load("")
	assert.Error(t, err)
}

func TestDataProvider(t *testing.T) {
	dir := t.TempDir()
	csv := "date,open,high,low,close,volume\n2024-01-02,10,11,9,10.5,100\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ABC.csv"), []byte(csv), 0644))

	p, q, err := DataConfig{Source: "csv", Path: dir}.Provider()
	require.NoError(t, err)
	require.NotNil(t, q)

	b, err := p.Bar(t.Context(), "ABC", market.Day(mustDate(t, "2024-01-02")))
	require.NoError(t, err)
	assert.Equal(t, 10.5, b.Close)

	_, _, err = DataConfig{Source: "parquet", Path: dir}.Provider()
	assert.NoError(t, err)

	_, _, err = DataConfig{Source: "ftp"}.Provider()
	assert.Error(t, err)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := market.ParseDate(s)
	require.NoError(t, err)
	return d
}
