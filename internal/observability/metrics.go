package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricRequestsTotal    = "rangeq.requests.total"
	MetricRequestDuration  = "rangeq.request.duration.seconds"
	MetricErrorsTotal      = "rangeq.errors.total"
	MetricInflightRequests = "rangeq.inflight.requests"

	MetricQueriesTotal  = "rangeq.queries.total"
	MetricQueryDuration = "rangeq.query.duration.seconds"
	MetricQueryResults  = "rangeq.query.results"
	MetricUpdatesTotal  = "rangeq.updates.total"
	MetricCacheLookups  = "rangeq.cache.lookups.total"
)

const (
	attrOp     = "op"
	attrStatus = "status"
	attrKind   = "kind"
	attrResult = "result"

	// StatusOK marks a successful request or query.
	StatusOK = "ok"
	// StatusError marks a failed request or query.
	StatusError = "error"

	cacheHit  = "hit"
	cacheMiss = "miss"
)

// requestBucketBoundaries covers 100us to 10s for request handling.
var requestBucketBoundaries = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

// queryBucketBoundaries covers 1us to 100ms; tree queries are logarithmic.
var queryBucketBoundaries = []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.01, 0.1}

// resultBucketBoundaries covers result set sizes from empty to large scans.
var resultBucketBoundaries = []float64{0, 1, 2, 5, 10, 50, 100, 500, 1000, 10000}

// REDMetrics holds the OTel instruments for Rate, Error, Duration metrics of
// inbound requests (HTTP handlers and MCP tools).
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &REDMetrics{
		requestsTotal:    b.counter(MetricRequestsTotal, "Total number of requests", "{request}"),
		requestDuration:  b.histogram(MetricRequestDuration, "Request duration in seconds", "s", requestBucketBoundaries...),
		errorsTotal:      b.counter(MetricErrorsTotal, "Total number of errors", "{error}"),
		inflightRequests: b.upDownCounter(MetricInflightRequests, "Number of in-flight requests", "{request}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRequest records a completed request with its operation, status, and duration.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOp, op),
		))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// QueryMetrics holds the instruments recorded by the range index. A nil
// *QueryMetrics records nothing.
type QueryMetrics struct {
	queriesTotal  metric.Int64Counter
	queryDuration metric.Float64Histogram
	queryResults  metric.Int64Histogram
	updatesTotal  metric.Int64Counter
	cacheLookups  metric.Int64Counter
}

// NewQueryMetrics creates range index instruments from the given meter.
func NewQueryMetrics(mt metric.Meter) (*QueryMetrics, error) {
	b := newMetricBuilder(mt)

	qm := &QueryMetrics{
		queriesTotal:  b.counter(MetricQueriesTotal, "Total number of range queries", "{query}"),
		queryDuration: b.histogram(MetricQueryDuration, "Range query duration in seconds", "s", queryBucketBoundaries...),
		queryResults:  b.int64Histogram(MetricQueryResults, "Intervals returned per query", "{interval}", resultBucketBoundaries...),
		updatesTotal:  b.counter(MetricUpdatesTotal, "Total number of index mutations", "{update}"),
		cacheLookups:  b.counter(MetricCacheLookups, "Query cache lookups", "{lookup}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return qm, nil
}

// RecordQuery records one query. results is the number of returned
// intervals; pass a negative value for aggregate queries.
func (qm *QueryMetrics) RecordQuery(ctx context.Context, op string, err error, duration time.Duration, results int) {
	if qm == nil {
		return
	}

	status := StatusOK
	if err != nil {
		status = StatusError
	}

	qm.queriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	))

	opAttr := metric.WithAttributes(attribute.String(attrOp, op))
	qm.queryDuration.Record(ctx, duration.Seconds(), opAttr)

	if results >= 0 {
		qm.queryResults.Record(ctx, int64(results), opAttr)
	}
}

// RecordUpdate counts one mutation of the given kind.
func (qm *QueryMetrics) RecordUpdate(ctx context.Context, kind string) {
	if qm == nil {
		return
	}

	qm.updatesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}

// RecordCacheLookup counts one query cache lookup.
func (qm *QueryMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if qm == nil {
		return
	}

	result := cacheMiss
	if hit {
		result = cacheHit
	}

	qm.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}
