package rangeindex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Sumatoshi-tech/rangeq/pkg/alg/lru"
	"github.com/Sumatoshi-tech/rangeq/pkg/alg/segtree"
)

// span is a query cache key.
type span struct {
	start, end int
}

// Series is a named segment tree over float64 values. It is safe for
// concurrent use: queries share a read lock, updates take the write lock and
// invalidate the query cache.
type Series struct {
	name string
	op   string
	deps Deps

	mu    sync.RWMutex
	tree  *segtree.Tree[float64]
	cache *lru.Cache[span, float64]
}

// Summary describes the raw values of a range.
type Summary struct {
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// NewSeries builds a series from values combined with op.
func NewSeries(name, op string, values []float64, deps Deps) (*Series, error) {
	monoid, err := ParseOp(op)
	if err != nil {
		return nil, err
	}

	tree, err := segtree.New(values, monoid)
	if err != nil {
		return nil, fmt.Errorf("series %q: %w", name, err)
	}

	if op == "" {
		op = OpSum
	}

	s := &Series{
		name: name,
		op:   op,
		deps: deps.withDefaults(),
		tree: tree,
	}

	if deps.CacheSize > 0 {
		s.cache = lru.New(lru.WithMaxEntries[span, float64](deps.CacheSize))
	}

	return s, nil
}

// Name returns the series name.
func (s *Series) Name() string { return s.name }

// Op returns the combining op name.
func (s *Series) Op() string { return s.op }

// Len returns the domain size.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Len()
}

// Values returns a copy of the series values.
func (s *Series) Values() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Values()
}

// CacheStats returns query cache statistics; zero when caching is off.
func (s *Series) CacheStats() lru.Stats {
	if s.cache == nil {
		return lru.Stats{}
	}

	return s.cache.Stats()
}

// Query combines the values at start..end inclusive.
func (s *Series) Query(ctx context.Context, start, end int) (result float64, err error) {
	ctx, sp := s.deps.Tracer.Start(ctx, opSegmentQuery, trace.WithAttributes(
		attrSeries.String(s.name), attrStart.Int(start), attrEnd.Int(end),
	))
	began := time.Now()

	defer func() {
		s.deps.Metrics.RecordQuery(ctx, opSegmentQuery, err, time.Since(began), -1)
		finishSpan(sp, err)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := span{start, end}

	if s.cache != nil {
		cached, hit := s.cache.Get(key)
		s.deps.Metrics.RecordCacheLookup(ctx, hit)
		sp.SetAttributes(attrCached.Bool(hit))

		if hit {
			return cached, nil
		}
	}

	result, err = s.tree.Query(start, end)
	if err != nil {
		return 0, fmt.Errorf("series %q: %w", s.name, err)
	}

	if !isFinite(result) {
		return 0, fmt.Errorf("series %q %s[%d..%d]: %w", s.name, s.op, start, end, ErrNonFinite)
	}

	if s.cache != nil {
		s.cache.Put(key, result)
	}

	s.deps.debug(ctx, "segment query", "series", s.name, "start", start, "end", end, "result", result)

	return result, nil
}

// Update replaces the value at index with fn(value). A NaN or infinite
// result is rejected and the series is left unchanged.
func (s *Series) Update(ctx context.Context, index int, fn func(float64) float64) (err error) {
	ctx, sp := s.deps.Tracer.Start(ctx, opSegmentUpdate, trace.WithAttributes(
		attrSeries.String(s.name), attrIndex.Int(index),
	))
	defer func() { finishSpan(sp, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.tree.Get(index)
	if err != nil {
		return fmt.Errorf("series %q: %w", s.name, err)
	}

	next := fn(current)
	if !isFinite(next) {
		return fmt.Errorf("series %q[%d] = %v: %w", s.name, index, next, ErrNonFinite)
	}

	if err = s.tree.Set(index, next); err != nil {
		return fmt.Errorf("series %q: %w", s.name, err)
	}

	if s.cache != nil {
		s.cache.Purge()
	}

	s.deps.Metrics.RecordUpdate(ctx, opSegmentUpdate)
	s.deps.debug(ctx, "segment update", "series", s.name, "index", index)

	return nil
}

// Add adds delta to the value at index.
func (s *Series) Add(ctx context.Context, index int, delta float64) error {
	return s.Update(ctx, index, func(v float64) float64 { return v + delta })
}

// Set stores v at index.
func (s *Series) Set(ctx context.Context, index int, v float64) error {
	return s.Update(ctx, index, func(float64) float64 { return v })
}

// Describe summarizes the raw values at start..end inclusive.
func (s *Series) Describe(ctx context.Context, start, end int) (sum Summary, err error) {
	ctx, sp := s.deps.Tracer.Start(ctx, opSegmentDescribe, trace.WithAttributes(
		attrSeries.String(s.name), attrStart.Int(start), attrEnd.Int(end),
	))
	began := time.Now()

	defer func() {
		s.deps.Metrics.RecordQuery(ctx, opSegmentDescribe, err, time.Since(began), -1)
		finishSpan(sp, err)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Range validation matches Query.
	if _, err = s.tree.Query(start, end); err != nil {
		return Summary{}, fmt.Errorf("series %q: %w", s.name, err)
	}

	window := s.tree.Values()[start : end+1]

	total := floats.Sum(window)
	if !isFinite(total) {
		return Summary{}, fmt.Errorf("series %q sum[%d..%d]: %w", s.name, start, end, ErrNonFinite)
	}

	mean, std := stat.MeanStdDev(window, nil)

	sum = Summary{
		Start:  start,
		End:    end,
		Count:  len(window),
		Sum:    total,
		Mean:   finite(mean),
		StdDev: finite(std),
		Min:    floats.Min(window),
		Max:    floats.Max(window),
	}

	sp.SetAttributes(attrCount.Int(sum.Count))

	return sum, nil
}
