package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var _ Provider = (*MemoryProvider)(nil)

// MemoryProvider serves bars held in memory. It is safe for concurrent
// readers, so parallel backtests may share one instance.
type MemoryProvider struct {
	mu   sync.RWMutex
	bars map[string][]Bar
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{bars: make(map[string][]Bar)}
}

// Add merges bars into the series for symbol. A bar for an existing day
// replaces the old one.
func (m *MemoryProvider) Add(symbol string, bars ...Bar) {
	sym := strings.ToUpper(symbol)

	m.mu.Lock()
	defer m.mu.Unlock()

	byDay := make(map[time.Time]Bar, len(m.bars[sym])+len(bars))
	for _, b := range m.bars[sym] {
		byDay[b.Date] = b
	}
	for _, b := range bars {
		b.Date = Day(b.Date)
		byDay[b.Date] = b
	}

	merged := make([]Bar, 0, len(byDay))
	for _, b := range byDay {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	m.bars[sym] = merged
}

// Symbols lists the loaded symbols in sorted order.
func (m *MemoryProvider) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.bars))
	for s := range m.bars {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// All returns a copy of every bar loaded for symbol.
func (m *MemoryProvider) All(symbol string) []Bar {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Bar(nil), m.bars[strings.ToUpper(symbol)]...)
}

func (m *MemoryProvider) Bar(ctx context.Context, symbol string, date time.Time) (Bar, error) {
	if err := ctx.Err(); err != nil {
		return Bar{}, err
	}

	day := Day(date)

	m.mu.RLock()
	defer m.mu.RUnlock()

	series := m.bars[strings.ToUpper(symbol)]
	i := sort.Search(len(series), func(i int) bool { return !series[i].Date.Before(day) })
	if i < len(series) && series[i].Date.Equal(day) {
		return series[i], nil
	}
	return Bar{}, fmt.Errorf("%s %s: %w", symbol, day.Format("2006-01-02"), ErrNotFound)
}

func (m *MemoryProvider) Range(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lo, hi := Day(from), Day(to)

	m.mu.RLock()
	defer m.mu.RUnlock()

	series := m.bars[strings.ToUpper(symbol)]
	start := sort.Search(len(series), func(i int) bool { return !series[i].Date.Before(lo) })
	end := sort.Search(len(series), func(i int) bool { return series[i].Date.After(hi) })
	if start >= end {
		return nil, nil
	}
	return append([]Bar(nil), series[start:end]...), nil
}
