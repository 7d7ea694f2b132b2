// Package observe provides application-wide observability primitives for the
// AI DJ broadcaster: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all aidj metrics.
const meterName = "github.com/airwavefm/aidj"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per planning-graph stage ---

	// PlannerDuration tracks Planner LLM call latency (select/plan_transition/
	// write_*_script stages).
	PlannerDuration metric.Float64Histogram

	// TTSDuration tracks voice-synthesis latency.
	TTSDuration metric.Float64Histogram

	// RenderDuration tracks Filter-Graph Executor render latency for a single
	// segment.
	RenderDuration metric.Float64Histogram

	// BootstrapDuration tracks the end-to-end bootstrap invocation latency.
	BootstrapDuration metric.Float64Histogram

	// SteadyDuration tracks the end-to-end steady invocation latency.
	SteadyDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// SegmentsRendered counts segments successfully rendered and enqueued.
	// Use with attribute: attribute.String("transition_kind", ...)
	SegmentsRendered metric.Int64Counter

	// ProviderFallbacks counts fallback-group failovers from a primary
	// provider to a named fallback. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("from", ...), attribute.String("to", ...)
	ProviderFallbacks metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// PlanningFailures counts Planning Graph invocations that failed,
	// tagged by the taxonomy kind from spec.md §7. Use with attribute:
	//   attribute.String("failure_kind", ...)
	PlanningFailures metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the current Segment Queue length.
	QueueDepth metric.Int64UpDownCounter

	// CooldownSeconds tracks the scheduler's current cooldown window, in
	// seconds, as an observability gauge (recorded via Add deltas from the
	// scheduler's own bookkeeping).
	CooldownSeconds metric.Int64UpDownCounter

	// CacheUsedBytes tracks the Media Cache's current disk usage.
	CacheUsedBytes metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for the
// provider-call latencies (LLM/TTS).
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// renderBuckets defines histogram bucket boundaries (in seconds) for
// segment-render and full planning-graph invocation latencies, which run
// an order of magnitude longer than a single provider call.
var renderBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 20, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.PlannerDuration, err = m.Float64Histogram("aidj.planner.duration",
		metric.WithDescription("Latency of Planner LLM calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("aidj.tts.duration",
		metric.WithDescription("Latency of voice synthesis calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RenderDuration, err = m.Float64Histogram("aidj.render.duration",
		metric.WithDescription("Latency of a single segment's filter-graph render."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(renderBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BootstrapDuration, err = m.Float64Histogram("aidj.bootstrap.duration",
		metric.WithDescription("End-to-end latency of a bootstrap Planning Graph invocation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(renderBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SteadyDuration, err = m.Float64Histogram("aidj.steady.duration",
		metric.WithDescription("End-to-end latency of a steady Planning Graph invocation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(renderBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("aidj.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsRendered, err = m.Int64Counter("aidj.segments.rendered",
		metric.WithDescription("Total segments successfully rendered and enqueued, by transition kind."),
	); err != nil {
		return nil, err
	}
	if met.ProviderFallbacks, err = m.Int64Counter("aidj.provider.fallbacks",
		metric.WithDescription("Total provider fallback-group failovers, by capability kind and provider pair."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("aidj.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.PlanningFailures, err = m.Int64Counter("aidj.planning.failures",
		metric.WithDescription("Total Planning Graph invocation failures by taxonomy failure kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.QueueDepth, err = m.Int64UpDownCounter("aidj.queue.depth",
		metric.WithDescription("Current Segment Queue length."),
	); err != nil {
		return nil, err
	}
	if met.CooldownSeconds, err = m.Int64UpDownCounter("aidj.scheduler.cooldown_seconds",
		metric.WithDescription("Current scheduler cooldown window, in seconds."),
	); err != nil {
		return nil, err
	}
	if met.CacheUsedBytes, err = m.Int64UpDownCounter("aidj.cache.used_bytes",
		metric.WithDescription("Current Media Cache disk usage, in bytes."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("aidj.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordSegmentRendered is a convenience method that records a segment
// having been rendered and enqueued.
func (m *Metrics) RecordSegmentRendered(ctx context.Context, transitionKind string) {
	m.SegmentsRendered.Add(ctx, 1,
		metric.WithAttributes(attribute.String("transition_kind", transitionKind)),
	)
}

// RecordProviderFallback is a convenience method that records a fallback
// group failing over from one named provider to another.
func (m *Metrics) RecordProviderFallback(ctx context.Context, kind, from, to string) {
	m.ProviderFallbacks.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordPlanningFailure is a convenience method that records a Planning
// Graph invocation failure, tagged by its taxonomy kind.
func (m *Metrics) RecordPlanningFailure(ctx context.Context, failureKind string) {
	m.PlanningFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("failure_kind", failureKind)),
	)
}
