package market

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsTradingDay(t *testing.T) {
	t.Parallel()

	assert.False(t, IsTradingDay(date(2024, 1, 6))) // Saturday
	assert.False(t, IsTradingDay(date(2024, 1, 7)))
	assert.True(t, IsTradingDay(date(2024, 1, 8)))
}

func TestCalendarSpan(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, CalendarSpan(0))
	assert.GreaterOrEqual(t, CalendarSpan(200), 280)
}

func TestMemoryProviderBarAndRange(t *testing.T) {
	t.Parallel()

	mp := NewMemoryProvider()
	mp.Add("aapl",
		Bar{Date: date(2024, 1, 3), Close: 3},
		Bar{Date: date(2024, 1, 2), Close: 2},
		Bar{Date: time.Date(2024, 1, 4, 15, 30, 0, 0, time.UTC), Close: 4},
	)
	ctx := context.Background()

	b, err := mp.Bar(ctx, "AAPL", time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 4.0, b.Close)

	_, err = mp.Bar(ctx, "AAPL", date(2024, 1, 5))
	assert.ErrorIs(t, err, ErrNotFound)

	bars, err := mp.Range(ctx, "AAPL", date(2024, 1, 1), date(2024, 1, 3))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 2.0, bars[0].Close)
	assert.Equal(t, 3.0, bars[1].Close)

	bars, err = mp.Range(ctx, "MSFT", date(2024, 1, 1), date(2024, 1, 3))
	require.NoError(t, err)
	assert.Empty(t, bars)

	// replacing a day keeps one bar
	mp.Add("AAPL", Bar{Date: date(2024, 1, 2), Close: 20})
	assert.Len(t, mp.All("AAPL"), 3)
	assert.Equal(t, []string{"AAPL"}, mp.Symbols())
}

func TestLatestClose(t *testing.T) {
	t.Parallel()

	mp := NewMemoryProvider()
	mp.Add("X", Bar{Date: date(2024, 1, 5), Close: 10})
	ctx := context.Background()

	px, err := LatestClose(ctx, mp, "X", date(2024, 1, 7), 5)
	require.NoError(t, err)
	assert.Equal(t, 10.0, px)

	_, err = LatestClose(ctx, mp, "X", date(2024, 3, 1), 5)
	assert.ErrorIs(t, err, ErrNotFound)

	q := CloseQuoter{Provider: mp, Now: func() time.Time { return date(2024, 1, 8) }}
	px, err = q.Quote(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 10.0, px)
}

const sampleCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-02,10,12,9,11,11,1000
2024-01-03,11,13,10,12,12,1100
bad,row
2024-01-03,11,13,10,12,12,1100
`

func TestReadCSVHeader(t *testing.T) {
	t.Parallel()

	bars, stats, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1, stats.BadLines)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, Bar{Date: date(2024, 1, 2), Open: 10, High: 12, Low: 9, Close: 11, Volume: 1000}, bars[0])
}

func TestReadCSVPositionalAndCloseOnly(t *testing.T) {
	t.Parallel()

	bars, _, err := ReadCSV(strings.NewReader("2024-01-02,1,2,0.5,1.5,100\n"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.5, bars[0].Close)

	bars, _, err = ReadCSV(strings.NewReader("date,close\n2024-01-02 09:15:00,7\n"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 7.0, bars[0].High)
	assert.Equal(t, date(2024, 1, 2), bars[0].Date)
}

func TestParseDateKeepsLocalDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-04", date(2024, 3, 4)},
		{"20240304", date(2024, 3, 4)},
		{"2024-03-04 09:15:00", date(2024, 3, 4)},
		{"2024-03-04 00:00:00+05:30", date(2024, 3, 4)},
		{"2024-03-04T00:00:00+05:30", date(2024, 3, 4)},
		{"2024-03-04T22:00:00-05:00", date(2024, 3, 4)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDate("04/03/2024")
	assert.Error(t, err)
}

func TestReadCSVOffsetDates(t *testing.T) {
	t.Parallel()

	in := "Date,Open,High,Low,Close,Volume\n" +
		"2024-03-04 00:00:00+05:30,100,101,99,100.5,5000\n" +
		"2024-03-05 00:00:00+05:30,100.5,102,100,101.5,6000\n"
	bars, _, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, date(2024, 3, 4), bars[0].Date)
	assert.Equal(t, time.Monday, bars[0].Date.Weekday())
	assert.True(t, IsTradingDay(bars[0].Date))
	assert.Equal(t, date(2024, 3, 5), bars[1].Date)
}

func TestLoadCSVDirWithXZ(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAA.csv"), []byte(sampleCSV), 0o644))

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BBB.csv.xz"), buf.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	mp, err := LoadCSVDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, mp.Symbols())
	assert.Len(t, mp.All("BBB"), 2)
}

func TestParquetStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []Bar{
		{Date: date(2023, 12, 29), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Date: date(2024, 1, 2), Open: 2, High: 3, Low: 1.5, Close: 2.5, Volume: 20},
	}
	require.NoError(t, s.WriteBars(ctx, "spy", bars))

	got, err := s.Range(ctx, "SPY", date(2023, 12, 1), date(2024, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, bars, got)

	// overwrite one day, and read through the cache invalidation
	require.NoError(t, s.WriteBars(ctx, "SPY", []Bar{{Date: date(2024, 1, 2), Close: 9}}))
	b, err := s.Bar(ctx, "SPY", date(2024, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, 9.0, b.Close)

	_, err = s.Bar(ctx, "SPY", date(2024, 1, 3))
	assert.ErrorIs(t, err, ErrNotFound)

	syms, err := s.Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY"}, syms)
}
