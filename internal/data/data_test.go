package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiasset-backtest/internal/model"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func bar(d int, close float64) model.Bar {
	return model.Bar{Timestamp: day(d), Open: close, High: close, Low: close, Close: close, Volume: 100}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1d", want: "1d"},
		{in: " 15M ", want: "15m"},
		{in: "4h", want: "4h"},
		{in: "1wk", want: "1wk"},
		{in: "3mo", want: "3mo"},
		{in: "0d", wantErr: true},
		{in: "2d", wantErr: true},
		{in: "60m", wantErr: true},
		{in: "24h", wantErr: true},
		{in: "daily", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			iv, err := ParseInterval(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, iv.String())
		})
	}
}

func TestQueryValidate(t *testing.T) {
	ok := Query{Symbols: []string{"AAPL"}, Start: day(1), End: day(10), Interval: "1d"}
	assert.NoError(t, ok.Validate())

	noSyms := ok
	noSyms.Symbols = nil
	assert.Error(t, noSyms.Validate())

	reversed := ok
	reversed.Start, reversed.End = day(10), day(1)
	assert.Error(t, reversed.Validate())

	badInterval := ok
	badInterval.Interval = "7x"
	assert.Error(t, badInterval.Validate())
}

func TestDecodeBarsCSV(t *testing.T) {
	in := `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-03,11,12,10,11.5,11.4,2000
2024-01-02,10,11,9,10.5,10.4,1000
`
	bars, err := DecodeBarsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, day(2), bars[0].Timestamp)
	assert.Equal(t, 10.5, bars[0].Close)
	assert.Equal(t, 9.0, bars[0].Low)
	assert.Equal(t, 2000.0, bars[1].Volume)
}

func TestDecodeBarsCSVIntradayTimestamps(t *testing.T) {
	in := `Datetime,Close
2024-01-02 14:30:00-05:00,10
2024-01-02T20:30:00Z,11
`
	bars, err := DecodeBarsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 19, 30, 0, 0, time.UTC), bars[0].Timestamp)
	// missing OHLC columns fall back to the close
	assert.Equal(t, 10.0, bars[0].Open)
	assert.Equal(t, 0.0, bars[0].Volume)
}

func TestDecodeBarsCSVErrors(t *testing.T) {
	_, err := DecodeBarsCSV(strings.NewReader("Open,Close\n1,2\n"))
	assert.Error(t, err, "missing date column")

	_, err = DecodeBarsCSV(strings.NewReader("Date,Open\n2024-01-02,2\n"))
	assert.Error(t, err, "missing close column")

	_, err = DecodeBarsCSV(strings.NewReader("Date,Close\nyesterday,2\n"))
	assert.Error(t, err)

	_, err = DecodeBarsCSV(strings.NewReader("Date,Close\n2024-01-02,abc\n"))
	assert.Error(t, err)
}

func TestCSVProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteBarsCSV(filepath.Join(dir, "AAA.csv"), []model.Bar{bar(2, 10), bar(3, 11), bar(4, 12)}))

	p := NewCSVProvider(dir)
	got, err := p.Bars(context.Background(), Query{Symbols: []string{"aaa"}, Start: day(3), End: day(5), Interval: "1d"})
	require.NoError(t, err)
	require.Len(t, got["AAA"], 2)
	assert.Equal(t, 11.0, got["AAA"][0].Close)

	_, err = p.Bars(context.Background(), Query{Symbols: []string{"ZZZ"}, Start: day(1), End: day(5), Interval: "1d"})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "NO_DATA", perr.Code)
	assert.Equal(t, 404, perr.StatusCode)

	_, err = p.Bars(context.Background(), Query{Symbols: []string{"AAA"}, Start: day(20), End: day(25), Interval: "1d"})
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "NO_DATA", perr.Code)
}

func TestParquetStoreRoundTripAndMerge(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	require.NoError(t, s.WriteBars("aaa", "1d", []model.Bar{bar(2, 10), bar(3, 11)}))
	// overlapping write replaces day 3 and appends day 4
	require.NoError(t, s.WriteBars("AAA", "1d", []model.Bar{bar(3, 20), bar(4, 21)}))

	got, err := s.ReadBars("AAA", "1d", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{10, 20, 21}, []float64{got[0].Close, got[1].Close, got[2].Close})
	assert.Equal(t, day(2), got[0].Timestamp)

	syms, err := s.ListSymbols("1d")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, syms)

	bars, err := s.Bars(context.Background(), Query{Symbols: []string{"AAA"}, Start: day(3), End: day(4), Interval: "1d"})
	require.NoError(t, err)
	require.Len(t, bars["AAA"], 1)
	assert.Equal(t, 20.0, bars["AAA"][0].Close)
}

func TestParquetStoreMissingSymbol(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	_, err := s.ReadBars("NOPE", "1d", time.Time{}, time.Time{})
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = s.Bars(context.Background(), Query{Symbols: []string{"NOPE"}, Start: day(1), End: day(2), Interval: "1d"})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "NO_DATA", perr.Code)

	syms, err := s.ListSymbols("1h")
	require.NoError(t, err)
	assert.Empty(t, syms)
}

type countingProvider struct {
	calls int
	bars  map[string][]model.Bar
}

func (c *countingProvider) Name() string { return "counting" }

func (c *countingProvider) Bars(context.Context, Query) (map[string][]model.Bar, error) {
	c.calls++
	return c.bars, nil
}

func TestCachedProvider(t *testing.T) {
	inner := &countingProvider{bars: map[string][]model.Bar{"AAA": {bar(2, 10)}}}
	cache := NewBarCache(time.Minute)
	p := NewCachedProvider(inner, cache, nil)

	q := Query{Symbols: []string{"AAA", "BBB"}, Start: day(1), End: day(5), Interval: "1d"}
	first, err := p.Bars(context.Background(), q)
	require.NoError(t, err)
	first["AAA"][0].Close = 999

	q.Symbols = []string{"bbb", "aaa"}
	second, err := p.Bars(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 10.0, second["AAA"][0].Close, "cached bars are copies")
}

func TestCachedProviderNilCache(t *testing.T) {
	inner := &countingProvider{}
	assert.Same(t, Provider(inner), NewCachedProvider(inner, nil, nil))
}

func TestBarCacheExpiry(t *testing.T) {
	c := NewBarCache(time.Minute)
	now := day(1)
	c.now = func() time.Time { return now }
	c.Set("k", map[string][]model.Bar{"AAA": {bar(1, 1)}})

	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)

	c.evictExpired()
	assert.Equal(t, 0, c.Len())

	var nilCache *BarCache
	_, ok = nilCache.Get("k")
	assert.False(t, ok)
}

func TestGetCacheDisabled(t *testing.T) {
	t.Setenv("ENABLE_BAR_CACHE", "true")
	t.Setenv("API_ENV", "production")
	assert.Nil(t, GetCache())

	t.Setenv("ENABLE_BAR_CACHE", "")
	t.Setenv("API_ENV", "")
	assert.Nil(t, GetCache())
}

func TestGenerateCacheKey(t *testing.T) {
	q := Query{Symbols: []string{"AAA", "BBB"}, Start: day(1), End: day(5), Interval: "1d"}
	k1 := GenerateCacheKey("csv", q)
	assert.Len(t, k1, 64)

	q.Symbols = []string{"bbb", "aaa"}
	assert.Equal(t, k1, GenerateCacheKey("csv", q))
	assert.NotEqual(t, k1, GenerateCacheKey("alpaca", q))

	q.End = day(6)
	assert.NotEqual(t, k1, GenerateCacheKey("csv", q))
}

func TestAlign(t *testing.T) {
	bars := map[string][]model.Bar{
		// B starts a day later and skips day 4
		"A": {bar(2, 10), bar(3, 11), bar(4, 12), bar(5, 13)},
		"B": {bar(3, 20), bar(5, 22)},
	}
	bench := []model.Bar{bar(4, 100), bar(5, 101)}

	ds, err := Align(bars, []string{"B", "A"}, "SPY", bench)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(3), day(4), day(5)}, ds.Index)
	assert.Equal(t, []string{"B", "A"}, ds.Symbols())
	assert.Equal(t, []float64{20, 20, 22}, ds.Instruments[0].Close)
	assert.Equal(t, []float64{11, 12, 13}, ds.Instruments[1].Close)
	assert.Equal(t, []float64{100, 100, 101}, ds.Benchmark, "leading benchmark gap takes the first close")
	assert.Equal(t, "SPY", ds.BenchmarkSymbol)
}

func TestAlignBackfillsLateBenchmark(t *testing.T) {
	bars := map[string][]model.Bar{"A": {bar(2, 10), bar(3, 11), bar(4, 12)}}

	ds, err := Align(bars, []string{"A"}, "SPY", []model.Bar{bar(3, 50), bar(4, 55)})
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 50, 55}, ds.Benchmark)

	// benchmark history begins after the last bar
	ds, err = Align(bars, []string{"A"}, "SPY", []model.Bar{bar(8, 70), bar(7, 60)})
	require.NoError(t, err)
	assert.Equal(t, []float64{60, 60, 60}, ds.Benchmark)
}

func TestAlignErrors(t *testing.T) {
	_, err := Align(nil, nil, "", nil)
	assert.Error(t, err)

	_, err = Align(map[string][]model.Bar{"A": {bar(2, 1)}}, []string{"A", "B"}, "", nil)
	assert.Error(t, err)
}

func TestAlignWithoutBenchmark(t *testing.T) {
	ds, err := Align(map[string][]model.Bar{"A": {bar(3, 2), bar(2, 1)}}, []string{"A"}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, ds.Instruments[0].Close)
	assert.Nil(t, ds.Benchmark)
}

func TestLoadDataset(t *testing.T) {
	inner := &countingProvider{bars: map[string][]model.Bar{
		"AAA": {bar(2, 10), bar(3, 11)},
		"SPY": {bar(2, 400), bar(3, 404)},
	}}
	ds, err := LoadDataset(context.Background(), inner, Query{Symbols: []string{"aaa"}, Start: day(1), End: day(5), Interval: "1d"}, "spy")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, ds.Symbols())
	assert.Equal(t, []float64{400, 404}, ds.Benchmark)
	assert.Equal(t, "SPY", ds.BenchmarkSymbol)
}

func TestUniverseRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "universe.json")
	u := &Universe{UpdatedAt: "2024-01-01T00:00:00Z"}
	u.Upsert(Instrument{Symbol: "msft", Provider: "alpaca"})
	u.Upsert(Instrument{Symbol: "AAPL"})
	u.Upsert(Instrument{Symbol: "MSFT", Provider: "csv"})
	require.NoError(t, SaveUniverse(u, path))

	got, err := LoadUniverse(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got.Symbols())
	assert.Equal(t, "csv", got.Instruments[1].Provider)

	_, err = LoadUniverse(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDefaultUniversePath(t *testing.T) {
	t.Setenv("UNIVERSE_FILE", "/tmp/u.json")
	assert.Equal(t, "/tmp/u.json", DefaultUniversePath())
	t.Setenv("UNIVERSE_FILE", "")
	assert.Equal(t, "./data/universe.json", DefaultUniversePath())
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider("CSV", Options{CSVDir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.Equal(t, "csv", p.Name())

	_, err = NewProvider("csv", Options{}, nil)
	assert.Error(t, err)

	_, err = NewProvider("bloomberg", Options{}, nil)
	assert.Error(t, err)

	_, err = NewProvider("alpaca", Options{}, nil)
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "MISSING_API_KEY", perr.Code)
}
