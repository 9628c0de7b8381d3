package rangeindex

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/rangeq/internal/dataset"
	"github.com/Sumatoshi-tech/rangeq/internal/observability"
	"github.com/Sumatoshi-tech/rangeq/pkg/alg/interval"
	"github.com/Sumatoshi-tech/rangeq/pkg/alg/segtree"
)

const (
	testCacheSize = 8
	testWorkers   = 8
	testRounds    = 200
)

func scenarioValues() []float64 {
	return []float64{0, 9, 5, 7, 3}
}

func newTestSeries(t *testing.T, op string, cacheSize int) *Series {
	t.Helper()

	s, err := NewSeries("latency", op, scenarioValues(), Deps{CacheSize: cacheSize})
	require.NoError(t, err)

	return s
}

func TestParseOp(t *testing.T) {
	t.Parallel()

	values := []float64{4, -2, 9, 3}

	tests := []struct {
		op   string
		want float64
	}{
		{OpSum, 14},
		{"", 14},
		{OpMin, -2},
		{OpMax, 9},
		{OpProduct, -216},
	}

	for _, tt := range tests {
		m, err := ParseOp(tt.op)
		require.NoError(t, err, tt.op)

		tree, err := segtree.New(values, m)
		require.NoError(t, err)

		got, err := tree.Query(0, 3)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 0, tt.op)
	}

	_, err := ParseOp("median")
	require.ErrorIs(t, err, ErrUnknownOp)
}

func TestSeries_QueryUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestSeries(t, OpSum, testCacheSize)

	got, err := s.Query(ctx, 0, 4)
	require.NoError(t, err)
	assert.InDelta(t, 24.0, got, 0)

	got, err = s.Query(ctx, 1, 3)
	require.NoError(t, err)
	assert.InDelta(t, 21.0, got, 0)

	require.NoError(t, s.Add(ctx, 2, 10))

	got, err = s.Query(ctx, 0, 4)
	require.NoError(t, err)
	assert.InDelta(t, 34.0, got, 0)

	got, err = s.Query(ctx, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, got, 0)
}

func TestSeries_CacheInvalidatedOnUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestSeries(t, OpSum, testCacheSize)

	_, err := s.Query(ctx, 0, 4)
	require.NoError(t, err)

	got, err := s.Query(ctx, 0, 4)
	require.NoError(t, err)
	assert.InDelta(t, 24.0, got, 0)
	assert.Equal(t, int64(1), s.CacheStats().Hits)

	require.NoError(t, s.Set(ctx, 0, 100))

	got, err = s.Query(ctx, 0, 4)
	require.NoError(t, err)
	assert.InDelta(t, 124.0, got, 0)
	assert.Equal(t, int64(1), s.CacheStats().Hits)
}

func TestSeries_NoCache(t *testing.T) {
	t.Parallel()

	s := newTestSeries(t, OpMax, 0)

	got, err := s.Query(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, got, 0)
	assert.Equal(t, 0, s.CacheStats().MaxEntries)
}

func TestSeries_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestSeries(t, OpSum, testCacheSize)

	_, err := s.Query(ctx, 3, 1)
	require.ErrorIs(t, err, segtree.ErrOutOfBounds)

	_, err = s.Query(ctx, 0, 5)
	require.ErrorIs(t, err, segtree.ErrOutOfBounds)

	require.ErrorIs(t, s.Add(ctx, 5, 1), segtree.ErrOutOfBounds)
	assert.Equal(t, scenarioValues(), s.Values())

	_, err = NewSeries("empty", OpSum, nil, Deps{})
	require.ErrorIs(t, err, segtree.ErrInvalidArgument)

	_, err = NewSeries("bad", "median", scenarioValues(), Deps{})
	require.ErrorIs(t, err, ErrUnknownOp)
}

func TestSeries_NonFinite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	growth, err := NewSeries("growth", OpProduct, []float64{1e200, 1e200, 2}, Deps{CacheSize: testCacheSize})
	require.NoError(t, err)

	_, err = growth.Query(ctx, 0, 1)
	require.ErrorIs(t, err, ErrNonFinite)

	got, err := growth.Query(ctx, 1, 2)
	require.NoError(t, err)
	assert.InDelta(t, 2e200, got, 1e186)

	summary, err := growth.Describe(ctx, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2e200, summary.Sum, 1e186)

	huge, err := NewSeries("huge", OpMax, []float64{math.MaxFloat64, math.MaxFloat64}, Deps{})
	require.NoError(t, err)

	_, err = huge.Describe(ctx, 0, 1)
	require.ErrorIs(t, err, ErrNonFinite)

	s := newTestSeries(t, OpSum, testCacheSize)
	require.NoError(t, s.Set(ctx, 0, math.MaxFloat64))
	require.ErrorIs(t, s.Add(ctx, 0, math.MaxFloat64), ErrNonFinite)
	require.ErrorIs(t, s.Set(ctx, 1, math.NaN()), ErrNonFinite)

	values := s.Values()
	assert.InDelta(t, math.MaxFloat64, values[0], 0)
	assert.InDelta(t, 9.0, values[1], 0)
}

func TestSeries_Describe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestSeries(t, OpMin, 0)

	sum, err := s.Describe(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Count)
	assert.InDelta(t, 21.0, sum.Sum, 1e-9)
	assert.InDelta(t, 7.0, sum.Mean, 1e-9)
	assert.InDelta(t, 2.0, sum.StdDev, 1e-9)
	assert.InDelta(t, 5.0, sum.Min, 0)
	assert.InDelta(t, 9.0, sum.Max, 0)

	single, err := s.Describe(ctx, 4, 4)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, single.StdDev, 0)

	_, err = s.Describe(ctx, 2, 9)
	require.ErrorIs(t, err, segtree.ErrOutOfBounds)
}

func TestSeries_ConcurrentUpdates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestSeries(t, OpSum, testCacheSize)

	var wg sync.WaitGroup

	for w := range testWorkers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range testRounds {
				_ = s.Add(ctx, w%s.Len(), 1)
				_, _ = s.Query(ctx, 0, s.Len()-1)
			}
		}()
	}

	wg.Wait()

	got, err := s.Query(ctx, 0, 4)
	require.NoError(t, err)
	assert.InDelta(t, 24.0+testWorkers*testRounds, got, 0)
}

func TestIntervalSet_Queries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	set := NewIntervalSet("shifts", []interval.Interval{
		{Start: 1, End: 3}, {Start: 2, End: 6}, {Start: 8, End: 10}, {Start: 15, End: 20},
	}, Deps{})

	got := set.Overlapping(ctx, interval.Interval{Start: 5, End: 9}, false)
	assert.Equal(t, []interval.Interval{{Start: 2, End: 6}, {Start: 8, End: 10}}, got)

	first := set.Overlapping(ctx, interval.Interval{Start: 5, End: 9}, true)
	require.Len(t, first, 1)
	assert.Contains(t, got, first[0])

	assert.Empty(t, set.Overlapping(ctx, interval.Interval{Start: 11, End: 14}, false))
	assert.Empty(t, set.Overlapping(ctx, interval.Interval{Start: 11, End: 14}, true))

	assert.Equal(t, []interval.Interval{{Start: 1, End: 3}, {Start: 2, End: 6}}, set.Containing(ctx, 3, false))
	assert.Len(t, set.Containing(ctx, 3, true), 1)
}

func TestIntervalSet_InsertDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	set := NewIntervalSet("shifts", nil, Deps{})
	iv := interval.Interval{Start: 4, End: 7}

	set.Insert(ctx, iv)
	set.Insert(ctx, iv)
	assert.Equal(t, 2, set.Len())

	assert.True(t, set.Delete(ctx, iv))
	assert.Equal(t, []interval.Interval{iv}, set.All())

	assert.True(t, set.Delete(ctx, iv))
	assert.False(t, set.Delete(ctx, iv))
	assert.Equal(t, 0, set.Len())
}

func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Series: []dataset.Series{
			{Name: "latency", Op: OpSum, Values: scenarioValues()},
			{Name: "floor", Op: OpMin, Values: []float64{5, 3, 8, 1}},
		},
		Intervals: []dataset.IntervalSet{
			{Name: "shifts", Items: [][]int{{1, 3}, {2, 6}}},
		},
	}
}

func TestIndex_Lookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ix := New(Deps{})
	require.ErrorIs(t, ix.Ready(ctx), ErrNotLoaded)

	require.NoError(t, ix.Replace(ctx, testDataset()))
	require.NoError(t, ix.Ready(ctx))

	assert.Equal(t, []string{"floor", "latency"}, ix.SeriesNames())
	assert.Equal(t, []string{"shifts"}, ix.IntervalSetNames())

	floor, err := ix.Series("floor")
	require.NoError(t, err)

	got, err := floor.Query(ctx, 1, 2)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got, 0)

	_, err = ix.Series("nope")
	require.ErrorIs(t, err, ErrUnknownSeries)

	_, err = ix.IntervalSet("nope")
	require.ErrorIs(t, err, ErrUnknownIntervalSet)
}

func TestIndex_ReplaceFailureKeepsPrevious(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ix, err := FromDataset(ctx, testDataset(), Deps{})
	require.NoError(t, err)

	bad := &dataset.Dataset{Series: []dataset.Series{{Name: "x", Op: "median", Values: []float64{1}}}}
	require.ErrorIs(t, ix.Replace(ctx, bad), ErrUnknownOp)

	assert.Equal(t, []string{"floor", "latency"}, ix.SeriesNames())
}

func TestIndex_AddAndSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ix := New(Deps{})

	_, err := ix.AddSeries("load", OpMax, []float64{1, 4, 2})
	require.NoError(t, err)

	set := ix.AddIntervalSet("windows", nil)
	set.Insert(ctx, interval.Interval{Start: 2, End: 5})

	snap := ix.Snapshot()
	require.Len(t, snap.Series, 1)
	assert.Equal(t, dataset.Series{Name: "load", Op: OpMax, Values: []float64{1, 4, 2}}, snap.Series[0])
	require.Len(t, snap.Intervals, 1)
	assert.Equal(t, [][]int{{2, 5}}, snap.Intervals[0].Items)
}

func TestTelemetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	qm, err := observability.NewQueryMetrics(mp.Meter("test"))
	require.NoError(t, err)

	deps := Deps{Tracer: tp.Tracer("test"), Metrics: qm, CacheSize: testCacheSize}
	s, err := NewSeries("latency", OpSum, scenarioValues(), deps)
	require.NoError(t, err)

	_, err = s.Query(ctx, 0, 4)
	require.NoError(t, err)
	_, err = s.Query(ctx, 9, 9)
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, opSegmentQuery, spans[0].Name)
	assert.Equal(t, "Error", spans[1].Status.Code.String())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}

	assert.True(t, names[observability.MetricQueriesTotal])
	assert.True(t, names[observability.MetricCacheLookups])
}
