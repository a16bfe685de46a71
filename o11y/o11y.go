// Package o11y provides observability in the form of tracing and metrics.
//
// Code takes its Provider from the context; with no provider configured
// every operation is a safe no-op, so libraries can instrument
// unconditionally.
package o11y

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rollbar/rollbar-go"
)

type Provider interface {
	// AddGlobalField adds data which should apply to every span in the
	// application, eg. version, service, k8s_replicaset.
	AddGlobalField(key string, val any)

	// StartSpan begins a new span representing a unit of work. name should
	// be a short human readable identifier of the work, including enough
	// detail to tell it apart from similar spans, like the DB query name.
	//
	// The caller is responsible for ending the span, usually via defer:
	//
	//	ctx, span := o11y.StartSpan(ctx, "db: notes.get")
	//	defer o11y.End(span, &err)
	StartSpan(ctx context.Context, name string) (context.Context, Span)

	// GetSpan returns the active span in the given context, or nil.
	GetSpan(ctx context.Context) Span

	// AddField adds application-level information to the currently active
	// span. Field names are prefixed with "app.".
	AddField(ctx context.Context, key string, val any)

	// AddFieldToTrace adds information to the root span and every span in
	// the trace from now on, eg. plan-id, project-id.
	AddFieldToTrace(ctx context.Context, key string, val any)

	// Log sends a zero duration trace event.
	Log(ctx context.Context, name string, fields ...Pair)

	Close(ctx context.Context)

	// MetricsProvider grants lower level control over the metrics that
	// o11y sends, allowing metrics to skip the span system.
	MetricsProvider() MetricsProvider
}

type Span interface {
	// AddField adds application-level information to the span. The field
	// name is prefixed with "app.".
	AddField(key string, val any)

	// AddRawField adds information to the span in library and plumbing
	// code, eg. result, error, db.system. Application code should prefer
	// AddField to avoid namespace clashes.
	AddRawField(key string, val any)

	// RecordMetric tells the provider to emit a metric to its metric
	// backend when the span ends.
	RecordMetric(metric Metric)

	// End sets the duration of the span and hands the span to the
	// provider for processing. The span must not be used after End.
	End()
}

type MetricType string

const (
	MetricTimer MetricType = "timer"
	MetricGauge MetricType = "gauge"
	MetricCount MetricType = "count"
)

type Metric struct {
	Type MetricType
	// Name is the metric name that will be emitted.
	Name string
	// Field is the span field to use as the metric's value.
	Field string
	// FixedTag is an optional tag added at Metric definition time.
	FixedTag *Tag
	// TagFields are span fields to use as metric tags.
	TagFields []string
}

type Tag struct {
	Name  string
	Value any
}

func NewTag(name string, value any) *Tag {
	return &Tag{Name: name, Value: value}
}

// Timing emits a timer metric of the span duration.
func Timing(name string, tagFields ...string) Metric {
	return Metric{Type: MetricTimer, Name: name, Field: "duration_ms", TagFields: tagFields}
}

// Duration emits a timer metric from the named span field.
func Duration(name string, valueField string, tagFields ...string) Metric {
	return Metric{Type: MetricTimer, Name: name, Field: valueField, TagFields: tagFields}
}

// Incr emits a count metric of one.
func Incr(name string, tagFields ...string) Metric {
	return Metric{Type: MetricCount, Name: name, TagFields: tagFields}
}

// Gauge emits a gauge metric from the named span field.
func Gauge(name string, valueField string, tagFields ...string) Metric {
	return Metric{Type: MetricGauge, Name: name, Field: valueField, TagFields: tagFields}
}

// Count emits a count metric from the named span field.
func Count(name string, valueField string, fixedTag *Tag, tagFields ...string) Metric {
	return Metric{Type: MetricCount, Name: name, Field: valueField, FixedTag: fixedTag, TagFields: tagFields}
}

// MetricsProvider is the statsd-shaped subset of metric operations the
// provider emits to. The DataDog client satisfies it, as does its no-op
// client.
type MetricsProvider interface {
	// Histogram aggregates values agent side for a period of time.
	Histogram(name string, value float64, tags []string, rate float64) error
	// TimeInMilliseconds measures timing data only.
	TimeInMilliseconds(name string, value float64, tags []string, rate float64) error
	// Gauge measures the value of a metric at a particular time.
	Gauge(name string, value float64, tags []string, rate float64) error
	// Count sends an individual value in time.
	Count(name string, value int64, tags []string, rate float64) error
}

type providerKey struct{}

// WithProvider returns a child context containing the Provider, which can
// be retrieved with FromContext.
func WithProvider(ctx context.Context, p Provider) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// FromContext returns the provider stored in the context, or the no-op
// provider if none exists.
func FromContext(ctx context.Context) Provider {
	provider, ok := ctx.Value(providerKey{}).(Provider)
	if !ok {
		return defaultProvider
	}
	return provider
}

// Log sends a zero duration trace event.
func Log(ctx context.Context, name string, fields ...Pair) {
	FromContext(ctx).Log(ctx, name, fields...)
}

// LogError sends a zero duration trace event carrying an error result.
func LogError(ctx context.Context, name string, err error, fields ...Pair) {
	_, span := StartSpan(ctx, name)
	for _, f := range fields {
		span.AddField(f.Key, f.Value)
	}
	AddResultToSpan(span, err)
	span.End()
}

// StartSpan starts a span from a context that must contain a provider for
// this to have any effect.
func StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return FromContext(ctx).StartSpan(ctx, name)
}

// AddField adds a field to the currently active span.
func AddField(ctx context.Context, key string, val any) {
	FromContext(ctx).AddField(ctx, key, val)
}

// AddFieldToTrace adds a field to the root span and all of its current and
// future child spans.
func AddFieldToTrace(ctx context.Context, key string, val any) {
	FromContext(ctx).AddFieldToTrace(ctx, key, val)
}

// End completes a span, using AddResultToSpan to set the error and result
// fields.
//
// The pointer to the error allows End to be deferred on the line after
// StartSpan while still observing the error the surrounding function
// finally returns:
//
//	ctx, span := o11y.StartSpan(ctx, "thing")
//	defer o11y.End(span, &err)
func End(span Span, err *error) {
	var actualErr error
	if err != nil {
		actualErr = *err
	}
	AddResultToSpan(span, actualErr)
	span.End()
}

// AddResultToSpan takes a possibly nil error and updates the result,
// error and warning fields of the span appropriately. Cancellation and
// warnings are recorded without polluting error-based alerting.
func AddResultToSpan(span Span, err error) {
	switch {
	case IsWarning(err):
		span.AddRawField("warning", err.Error())
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		span.AddRawField("result", "canceled")
		span.AddRawField("warning", err.Error())
		return
	case err != nil:
		span.AddRawField("result", "error")
		span.AddRawField("error", err.Error())
		return
	}
	span.AddRawField("result", "success")
}

// Pair is a key value pair used to add metadata to a span.
type Pair struct {
	Key   string
	Value any
}

// Field returns a new metadata pair.
func Field(key string, value any) Pair {
	return Pair{Key: key, Value: value}
}

// HandlePanic records a recovered panic on the span and reports it to
// rollbar when the configured provider carries a rollbar client. r may be
// nil for panics outside an http handler.
func HandlePanic(ctx context.Context, span Span, panic any, r *http.Request) error {
	err := fmt.Errorf("panic handled: %+v", panic)
	span.AddRawField("panic", panic)
	span.AddRawField("has_panicked", "true")
	span.AddRawField("stack", string(debug.Stack()))
	span.RecordMetric(Incr("panics", "name"))

	provider := FromContext(ctx)
	rollable, ok := provider.(rollbarAble)
	if !ok {
		return err
	}
	client := rollable.RollBarClient()
	if r != nil {
		client.RequestError(rollbar.CRIT, r, err)
	} else {
		client.LogPanic(panic, true)
	}
	return err
}

type rollbarAble interface {
	RollBarClient() *rollbar.Client
}

var defaultProvider = &noopProvider{}

type noopProvider struct{}

func (c *noopProvider) AddGlobalField(string, any) {}

func (c *noopProvider) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, &noopSpan{}
}

func (c *noopProvider) GetSpan(context.Context) Span { return &noopSpan{} }

func (c *noopProvider) AddField(context.Context, string, any) {}

func (c *noopProvider) AddFieldToTrace(context.Context, string, any) {}

func (c *noopProvider) Log(context.Context, string, ...Pair) {}

func (c *noopProvider) Close(context.Context) {}

func (c *noopProvider) MetricsProvider() MetricsProvider {
	return &statsd.NoOpClient{}
}

type noopSpan struct{}

func (s *noopSpan) AddField(string, any)    {}
func (s *noopSpan) AddRawField(string, any) {}
func (s *noopSpan) RecordMetric(Metric)     {}
func (s *noopSpan) End()                    {}
