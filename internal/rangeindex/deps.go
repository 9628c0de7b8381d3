// Package rangeindex serves named segment trees (series) and interval trees
// (interval sets) with locking, query caching, tracing and metrics.
package rangeindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rangeq/internal/observability"
	"github.com/Sumatoshi-tech/rangeq/pkg/alg/segtree"
)

// Sentinel errors.
var (
	ErrUnknownOp          = errors.New("unknown op")
	ErrUnknownSeries      = errors.New("unknown series")
	ErrUnknownIntervalSet = errors.New("unknown interval set")
	ErrNotLoaded          = errors.New("index not loaded")
	ErrNonFinite          = errors.New("result is not a finite number")
)

const tracerName = "rangeq.index"

// Series op names.
const (
	OpSum     = "sum"
	OpMin     = "min"
	OpMax     = "max"
	OpProduct = "product"
)

// Metric kinds and span names.
const (
	opSegmentQuery     = "segment.query"
	opSegmentDescribe  = "segment.describe"
	opSegmentUpdate    = "segment.update"
	opIntervalOverlap  = "interval.overlap"
	opIntervalContains = "interval.contains"
	opIntervalInsert   = "interval.insert"
	opIntervalDelete   = "interval.delete"
	opIndexReplace     = "index.replace"
)

// Span attribute keys.
const (
	attrSeries = attribute.Key("rangeq.series")
	attrSet    = attribute.Key("rangeq.interval_set")
	attrStart  = attribute.Key("rangeq.start")
	attrEnd    = attribute.Key("rangeq.end")
	attrIndex  = attribute.Key("rangeq.index")
	attrAny    = attribute.Key("rangeq.any")
	attrCount  = attribute.Key("rangeq.results")
	attrCached = attribute.Key("rangeq.cache_hit")
)

// Deps carries the collaborators shared by every series and interval set.
// Zero fields fall back to global defaults; CacheSize 0 disables caching.
type Deps struct {
	Tracer    trace.Tracer
	Metrics   *observability.QueryMetrics
	Logger    *slog.Logger
	CacheSize int
}

func (d Deps) withDefaults() Deps {
	if d.Tracer == nil {
		d.Tracer = otel.Tracer(tracerName)
	}

	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	return d
}

// ParseOp returns the float64 monoid for an op name.
func ParseOp(name string) (segtree.Monoid[float64], error) {
	switch name {
	case OpSum, "":
		return segtree.Sum[float64](), nil
	case OpMin:
		return segtree.MinFloat64(), nil
	case OpMax:
		return segtree.MaxFloat64(), nil
	case OpProduct:
		return segtree.Product[float64](), nil
	default:
		return segtree.Monoid[float64]{}, fmt.Errorf("%w: %q", ErrUnknownOp, name)
	}
}

// finishSpan records err on span and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}

// finite maps NaN and infinities to 0.
func finite(v float64) float64 {
	if !isFinite(v) {
		return 0
	}

	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (d Deps) debug(ctx context.Context, msg string, args ...any) {
	d.Logger.DebugContext(ctx, msg, args...)
}
