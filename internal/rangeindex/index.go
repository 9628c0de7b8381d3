package rangeindex

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Sumatoshi-tech/rangeq/internal/dataset"
	"github.com/Sumatoshi-tech/rangeq/pkg/alg/interval"
)

// Index is the registry of named series and interval sets. Replace swaps the
// whole registry atomically; handles obtained before a swap stay usable.
type Index struct {
	deps Deps

	mu     sync.RWMutex
	series map[string]*Series
	sets   map[string]*IntervalSet
	loaded atomic.Bool
}

// New returns an empty index.
func New(deps Deps) *Index {
	return &Index{
		deps:   deps.withDefaults(),
		series: map[string]*Series{},
		sets:   map[string]*IntervalSet{},
	}
}

// FromDataset returns an index loaded with ds.
func FromDataset(ctx context.Context, ds *dataset.Dataset, deps Deps) (*Index, error) {
	ix := New(deps)

	if err := ix.Replace(ctx, ds); err != nil {
		return nil, err
	}

	return ix, nil
}

// Replace rebuilds the registry from ds. On error the previous contents stay.
func (ix *Index) Replace(ctx context.Context, ds *dataset.Dataset) (err error) {
	ctx, sp := ix.deps.Tracer.Start(ctx, opIndexReplace)
	defer func() { finishSpan(sp, err) }()

	series := make(map[string]*Series, len(ds.Series))

	for _, entry := range ds.Series {
		s, buildErr := NewSeries(entry.Name, entry.Op, entry.Values, ix.deps)
		if buildErr != nil {
			return fmt.Errorf("build index: %w", buildErr)
		}

		series[entry.Name] = s
	}

	sets := make(map[string]*IntervalSet, len(ds.Intervals))

	for _, entry := range ds.Intervals {
		items, convErr := entry.Intervals()
		if convErr != nil {
			return fmt.Errorf("build index: %w", convErr)
		}

		sets[entry.Name] = NewIntervalSet(entry.Name, items, ix.deps)
	}

	ix.mu.Lock()
	ix.series = series
	ix.sets = sets
	ix.mu.Unlock()

	ix.loaded.Store(true)

	sp.SetAttributes(attrCount.Int(len(series) + len(sets)))
	ix.deps.Logger.InfoContext(ctx, "index loaded", "series", len(series), "interval_sets", len(sets))

	return nil
}

// Ready reports whether a dataset has been loaded.
func (ix *Index) Ready(context.Context) error {
	if !ix.loaded.Load() {
		return ErrNotLoaded
	}

	return nil
}

// Series returns the named series.
func (ix *Index) Series(name string) (*Series, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	s, ok := ix.series[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeries, name)
	}

	return s, nil
}

// IntervalSet returns the named interval set.
func (ix *Index) IntervalSet(name string) (*IntervalSet, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	s, ok := ix.sets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntervalSet, name)
	}

	return s, nil
}

// AddSeries registers a new series, replacing any with the same name.
func (ix *Index) AddSeries(name, op string, values []float64) (*Series, error) {
	s, err := NewSeries(name, op, values, ix.deps)
	if err != nil {
		return nil, err
	}

	ix.mu.Lock()
	ix.series[name] = s
	ix.mu.Unlock()

	return s, nil
}

// AddIntervalSet registers a new interval set, replacing any with the same
// name.
func (ix *Index) AddIntervalSet(name string, intervals []interval.Interval) *IntervalSet {
	s := NewIntervalSet(name, intervals, ix.deps)

	ix.mu.Lock()
	ix.sets[name] = s
	ix.mu.Unlock()

	return s
}

// SeriesNames returns the registered series names, sorted.
func (ix *Index) SeriesNames() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return slices.Sorted(maps.Keys(ix.series))
}

// IntervalSetNames returns the registered interval set names, sorted.
func (ix *Index) IntervalSetNames() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return slices.Sorted(maps.Keys(ix.sets))
}

// Snapshot exports the current contents as a dataset.
func (ix *Index) Snapshot() *dataset.Dataset {
	ds := &dataset.Dataset{}

	for _, name := range ix.SeriesNames() {
		s, err := ix.Series(name)
		if err != nil {
			continue
		}

		ds.Series = append(ds.Series, dataset.Series{Name: name, Op: s.Op(), Values: s.Values()})
	}

	for _, name := range ix.IntervalSetNames() {
		s, err := ix.IntervalSet(name)
		if err != nil {
			continue
		}

		items := make([][]int, 0, s.Len())
		for _, iv := range s.All() {
			items = append(items, []int{iv.Start, iv.End})
		}

		ds.Intervals = append(ds.Intervals, dataset.IntervalSet{Name: name, Items: items})
	}

	return ds
}
