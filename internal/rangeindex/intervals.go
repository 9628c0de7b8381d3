package rangeindex

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rangeq/pkg/alg/interval"
)

// IntervalSet is a named interval tree safe for concurrent use.
type IntervalSet struct {
	name string
	deps Deps

	mu   sync.RWMutex
	tree *interval.Tree
}

// NewIntervalSet builds a set holding intervals.
func NewIntervalSet(name string, intervals []interval.Interval, deps Deps) *IntervalSet {
	return &IntervalSet{
		name: name,
		deps: deps.withDefaults(),
		tree: interval.Build(intervals...),
	}
}

// Name returns the set name.
func (s *IntervalSet) Name() string { return s.name }

// Len returns the number of stored intervals.
func (s *IntervalSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Len()
}

// All returns the stored intervals in (start, end) order.
func (s *IntervalSet) All() []interval.Interval {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Collect(s.tree.All())
}

// Insert adds iv. Duplicates are kept.
func (s *IntervalSet) Insert(ctx context.Context, iv interval.Interval) {
	ctx, sp := s.deps.Tracer.Start(ctx, opIntervalInsert, trace.WithAttributes(
		attrSet.String(s.name), attrStart.Int(iv.Start), attrEnd.Int(iv.End),
	))
	defer sp.End()

	s.mu.Lock()
	s.tree.Insert(iv)
	s.mu.Unlock()

	s.deps.Metrics.RecordUpdate(ctx, opIntervalInsert)
	s.deps.debug(ctx, "interval insert", "set", s.name, "interval", iv.String())
}

// Delete removes one occurrence of iv and reports whether it was present.
func (s *IntervalSet) Delete(ctx context.Context, iv interval.Interval) bool {
	ctx, sp := s.deps.Tracer.Start(ctx, opIntervalDelete, trace.WithAttributes(
		attrSet.String(s.name), attrStart.Int(iv.Start), attrEnd.Int(iv.End),
	))
	defer sp.End()

	s.mu.Lock()
	removed := s.tree.Delete(iv)
	s.mu.Unlock()

	if removed {
		s.deps.Metrics.RecordUpdate(ctx, opIntervalDelete)
	}

	return removed
}

// Overlapping returns the stored intervals overlapping target, in tree
// order. With first set it returns at most one.
func (s *IntervalSet) Overlapping(ctx context.Context, target interval.Interval, first bool) []interval.Interval {
	ctx, sp := s.deps.Tracer.Start(ctx, opIntervalOverlap, trace.WithAttributes(
		attrSet.String(s.name), attrStart.Int(target.Start), attrEnd.Int(target.End), attrAny.Bool(first),
	))
	began := time.Now()

	s.mu.RLock()

	var found []interval.Interval

	if first {
		if iv, ok := s.tree.FindAnyOverlapping(target); ok {
			found = []interval.Interval{iv}
		}
	} else {
		found = s.tree.FindAllOverlapping(target)
	}

	s.mu.RUnlock()

	s.finishLookup(ctx, sp, opIntervalOverlap, began, len(found))

	return found
}

// Containing returns the stored intervals containing point, in tree order.
// With first set it returns at most one.
func (s *IntervalSet) Containing(ctx context.Context, point int, first bool) []interval.Interval {
	ctx, sp := s.deps.Tracer.Start(ctx, opIntervalContains, trace.WithAttributes(
		attrSet.String(s.name), attrIndex.Int(point), attrAny.Bool(first),
	))
	began := time.Now()

	s.mu.RLock()

	var found []interval.Interval

	if first {
		if iv, ok := s.tree.FindAnyContaining(point); ok {
			found = []interval.Interval{iv}
		}
	} else {
		found = s.tree.FindAllContaining(point)
	}

	s.mu.RUnlock()

	s.finishLookup(ctx, sp, opIntervalContains, began, len(found))

	return found
}

func (s *IntervalSet) finishLookup(ctx context.Context, sp trace.Span, op string, began time.Time, count int) {
	sp.SetAttributes(attrCount.Int(count))
	s.deps.Metrics.RecordQuery(ctx, op, nil, time.Since(began), count)
	s.deps.debug(ctx, op, "set", s.name, "results", count)
	sp.End()
}
