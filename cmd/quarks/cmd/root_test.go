package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/quarks/config"
	"github.com/rustyeddy/quarks/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	require.NoError(t, err, buf.String())
	return buf.String()
}

// writeBars writes the weekday bars of January 2024; Jan 1 closes at 100
// and each later bar one higher.
func writeBars(t *testing.T, dir, symbol string) string {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("date,open,high,low,close,volume\n")
	px := 100.0
	for d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); d.Month() == time.January; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		fmt.Fprintf(&sb, "%s,%.2f,%.2f,%.2f,%.2f,1000\n", d.Format("2006-01-02"), px, px+1, px-1, px)
		px++
	}
	path := filepath.Join(dir, symbol+".csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))
	return path
}

func TestCLI(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	csvPath := writeBars(t, dataDir, "SYM")
	writeBars(t, dataDir, "ALT")

	c := config.Default()
	c.Data.Path = dataDir
	c.Journal.Driver = journal.DriverPureGo
	c.Journal.DBPath = filepath.Join(dir, "quarks.db")
	c.Journal.CSVDir = filepath.Join(dir, "out")
	c.Logging.Level = "error"
	cfgPath := filepath.Join(dir, "quarks.yaml")
	require.NoError(t, c.SaveToFile(cfgPath))

	out := execute(t, "version")
	assert.Contains(t, out, "quarks version")

	out = execute(t, "config", "validate", "-f", cfgPath)
	assert.Contains(t, out, "Configuration valid")

	out = execute(t, "portfolio", "create", "main", "--cash", "5000", "-c", cfgPath)
	assert.Contains(t, out, "Created portfolio 1: main")

	out = execute(t, "portfolio", "trade", "1", "buy", "alt", "5", "--date", "2024-01-03", "-c", cfgPath)
	assert.Contains(t, out, "BUY 5 ALT @ 102.00 on 2024-01-03 (cash 4490.00)")

	out = execute(t, "portfolio", "show", "1", "-c", cfgPath)
	assert.Contains(t, out, "Cash:          4490.00")
	assert.Contains(t, out, "manual")

	out = execute(t, "backtest", "-c", cfgPath, "--strategy", "buy-and-hold", "--symbol", "SYM",
		"--start", "2024-01-02", "--end", "2024-01-31", "--csv", "--org")
	assert.Contains(t, out, "Backtest Result")
	assert.Contains(t, out, "Strategy:      buy-and-hold")
	assert.Contains(t, out, "Org Report:")

	out = execute(t, "runs", "list", "-c", cfgPath)
	assert.Contains(t, out, "buy-and-hold")

	out = execute(t, "strategy", "add", "steady", "--portfolio", "1", "--type", "BUYHOLD", "--symbol", "sym", "-c", cfgPath)
	assert.Contains(t, out, "Created strategy 1: steady")

	out = execute(t, "backtest", "-c", cfgPath, "--saved", "1", "--start", "2024-01-02", "--end", "2024-01-31",
		"--csv=false", "--org=false")
	assert.Contains(t, out, "Backtest Result")

	out = execute(t, "strategy", "log", "1", "-c", cfgPath)
	assert.Contains(t, out, "2024-01-02  BUY         44      101.00")

	out = execute(t, "portfolio", "show", "1", "-c", cfgPath)
	assert.Contains(t, out, "SYM")
	assert.Contains(t, out, "initial buy")

	out = execute(t, "strategy", "disable", "1", "-c", cfgPath)
	assert.Contains(t, out, "Strategy 1 disabled")
	out = execute(t, "strategy", "list", "-c", cfgPath)
	assert.Contains(t, out, "false")

	out = execute(t, "advice", "SYM", "--date", "2024-01-31", "-c", cfgPath)
	assert.Contains(t, out, "Advice: SYM (2024-01-31)")

	out = execute(t, "data", "import", csvPath, "--out", filepath.Join(dir, "parquet"), "-c", cfgPath)
	assert.Contains(t, out, "SYM: 23 bars")

	out = execute(t, "strategy", "delete", "1", "-c", cfgPath)
	assert.Contains(t, out, "Deleted strategy 1")

	out = execute(t, "watchlist", "create", "tech", "-c", cfgPath)
	assert.Contains(t, out, "Created watchlist 1: tech")

	out = execute(t, "watchlist", "add", "1", "sym", "--date", "2024-01-10", "--notes", "breakout", "-c", cfgPath)
	assert.Contains(t, out, "Added SYM to watchlist 1 at 107.00")
	out = execute(t, "watchlist", "add", "1", "alt", "--price", "50", "-c", cfgPath)
	assert.Contains(t, out, "Added ALT to watchlist 1 at 50.00")

	out = execute(t, "watchlist", "show", "1", "--date", "2024-01-31", "-c", cfgPath)
	assert.Contains(t, out, "Watchlist:     tech (1)")
	assert.Contains(t, out, "breakout")
	// SYM 107 -> 122, ALT 50 -> 122
	assert.Contains(t, out, "+15.00")
	assert.Contains(t, out, "Total change:  +87.00 (+55.41%)")

	out = execute(t, "watchlist", "remove", "1", "ALT", "-c", cfgPath)
	assert.Contains(t, out, "Removed ALT from watchlist 1")

	out = execute(t, "watchlist", "list", "-c", cfgPath)
	assert.Contains(t, out, "tech")

	out = execute(t, "watchlist", "delete", "1", "-c", cfgPath)
	assert.Contains(t, out, "Deleted watchlist 1")
}
