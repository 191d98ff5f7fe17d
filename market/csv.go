package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"
)

// CSVStats counts what the loader dropped while reading a file.
type CSVStats struct {
	Rows       int
	BadLines   int
	Duplicates int
}

// ReadCSV parses daily bars from r. The first row may be a header naming
// the date, open, high, low, close and volume columns in any order (extra
// columns such as "Adj Close" are ignored). Without a header the columns
// are taken positionally in that order.
func ReadCSV(r io.Reader) ([]Bar, CSVStats, error) {
	var stats CSVStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	first, err := cr.Read()
	if err == io.EOF {
		return nil, stats, nil
	}
	if err != nil {
		return nil, stats, err
	}

	cols, hasHeader := headerColumns(first)

	var bars []Bar
	seen := make(map[int64]bool)
	add := func(row []string) {
		b, err := parseRow(row, cols)
		if err != nil {
			stats.BadLines++
			return
		}
		key := b.Date.Unix()
		if seen[key] {
			stats.Duplicates++
			return
		}
		seen[key] = true
		bars = append(bars, b)
	}

	if !hasHeader {
		add(first)
	}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, err
		}
		if len(row) == 0 {
			continue
		}
		add(row)
	}

	stats.Rows = len(bars)
	return bars, stats, nil
}

// LoadCSV reads bars from a file. Files ending in ".xz" are decompressed
// on the fly.
func LoadCSV(path string) ([]Bar, CSVStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, CSVStats{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, CSVStats{}, fmt.Errorf("%s: %w", path, err)
		}
		r = xr
	}
	return ReadCSV(r)
}

// LoadCSVDir loads every "<SYMBOL>.csv" or "<SYMBOL>.csv.xz" file in dir
// into a MemoryProvider.
func LoadCSVDir(dir string) (*MemoryProvider, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	mp := NewMemoryProvider()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		sym := strings.TrimSuffix(strings.TrimSuffix(name, ".xz"), ".csv")
		if sym == name || sym == strings.TrimSuffix(name, ".xz") {
			continue
		}
		bars, _, err := LoadCSV(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		mp.Add(sym, bars...)
	}
	return mp, nil
}

type columns struct {
	date, open, high, low, close, volume int
}

var positional = columns{0, 1, 2, 3, 4, 5}

func headerColumns(row []string) (columns, bool) {
	c := columns{-1, -1, -1, -1, -1, -1}
	for i, name := range row {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date", "time", "timestamp":
			c.date = i
		case "open":
			c.open = i
		case "high":
			c.high = i
		case "low":
			c.low = i
		case "close":
			c.close = i
		case "volume":
			c.volume = i
		}
	}
	if c.date < 0 || c.close < 0 {
		return positional, false
	}
	return c, true
}

func parseRow(row []string, c columns) (Bar, error) {
	field := func(i int) (float64, error) {
		if i < 0 {
			return 0, nil
		}
		if i >= len(row) {
			return 0, fmt.Errorf("missing column %d", i)
		}
		return strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	}

	if c.date >= len(row) {
		return Bar{}, fmt.Errorf("short row: %v", row)
	}
	t, err := ParseDate(strings.TrimSpace(row[c.date]))
	if err != nil {
		return Bar{}, err
	}

	var b Bar
	b.Date = Day(t)
	if b.Close, err = field(c.close); err != nil {
		return Bar{}, err
	}
	if b.Open, err = field(c.open); err != nil {
		return Bar{}, err
	}
	if b.High, err = field(c.high); err != nil {
		return Bar{}, err
	}
	if b.Low, err = field(c.low); err != nil {
		return Bar{}, err
	}
	if b.Volume, err = field(c.volume); err != nil {
		return Bar{}, err
	}

	// Close-only files still need a usable range for ATR and ADX.
	if c.open < 0 {
		b.Open = b.Close
	}
	if c.high < 0 {
		b.High = b.Close
	}
	if c.low < 0 {
		b.Low = b.Close
	}
	return b, nil
}
