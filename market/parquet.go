package market

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
)

var _ Provider = (*ParquetStore)(nil)

// BarRecord is the on-disk parquet schema for a daily bar.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// ParquetStore keeps daily bars in one parquet file per symbol and year:
//
//	<DataDir>/daily/<SYMBOL>/<YYYY>.parquet
//
// Files are read once and cached; WriteBars invalidates the cache for the
// files it touches.
type ParquetStore struct {
	DataDir string

	mu    sync.Mutex
	cache map[string][]BarRecord
}

func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir, cache: make(map[string][]BarRecord)}
}

// WriteBars merges bars into the store. Existing records for the same day
// are replaced.
func (s *ParquetStore) WriteBars(_ context.Context, symbol string, bars []Bar) error {
	if len(bars) == 0 {
		return nil
	}
	sym := strings.ToUpper(symbol)

	groups := make(map[int][]BarRecord)
	for _, b := range bars {
		d := Day(b.Date)
		groups[d.Year()] = append(groups[d.Year()], BarRecord{
			Symbol:    sym,
			Timestamp: d.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for year, records := range groups {
		path := s.barPath(sym, year)

		existing, err := readParquetFile[BarRecord](path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading bars for %s/%d: %w", sym, year, err)
		}
		merged := mergeBarRecords(existing, records)
		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", sym, year, err)
		}
		delete(s.cache, path)
	}
	return nil
}

func (s *ParquetStore) Bar(ctx context.Context, symbol string, date time.Time) (Bar, error) {
	day := Day(date)
	bars, err := s.Range(ctx, symbol, day, day)
	if err != nil {
		return Bar{}, err
	}
	if len(bars) == 0 {
		return Bar{}, fmt.Errorf("%s %s: %w", symbol, day.Format("2006-01-02"), ErrNotFound)
	}
	return bars[0], nil
}

func (s *ParquetStore) Range(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sym := strings.ToUpper(symbol)
	lo, hi := Day(from).UnixMilli(), Day(to).UnixMilli()

	var bars []Bar
	for year := from.Year(); year <= to.Year(); year++ {
		records, err := s.load(s.barPath(sym, year))
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r.Timestamp < lo || r.Timestamp > hi {
				continue
			}
			bars = append(bars, Bar{
				Date:   time.UnixMilli(r.Timestamp).UTC(),
				Open:   r.Open,
				High:   r.High,
				Low:    r.Low,
				Close:  r.Close,
				Volume: r.Volume,
			})
		}
	}
	return bars, nil
}

// Symbols lists every symbol with at least one year file.
func (s *ParquetStore) Symbols() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "daily"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// load returns the cached records for path. A missing file is an empty
// year, not an error.
func (s *ParquetStore) load(path string) ([]BarRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache == nil {
		s.cache = make(map[string][]BarRecord)
	}
	if recs, ok := s.cache[path]; ok {
		return recs, nil
	}
	recs, err := readParquetFile[BarRecord](path)
	if errors.Is(err, fs.ErrNotExist) {
		recs, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s.cache[path] = recs
	return recs, nil
}

func (s *ParquetStore) barPath(symbol string, year int) string {
	return filepath.Join(s.DataDir, "daily", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parquet.ReadFile[T](path)
}

// mergeBarRecords deduplicates by timestamp, preferring incoming records,
// and sorts the result.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp < merged[j].Timestamp })
	return merged
}
