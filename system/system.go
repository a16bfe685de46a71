package system

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pluvio/dbx/o11y"
	"github.com/pluvio/dbx/termination"
)

// System owns everything a service runs in the background: servers and
// worker loops, their health checks, metric producers, and the cleanups
// to run at exit.
type System struct {
	services        []func(context.Context) error
	healthChecks    []HealthChecker
	metricProducers []MetricProducer
	gaugeProducers  []GaugeProducer
	cleanups        []func(ctx context.Context) error
}

func New() *System {
	return &System{}
}

// HealthChecker contributes to the admin ready and live endpoints.
// Either func may be nil when only the other applies.
type HealthChecker interface {
	HealthChecks() (name string, ready, live func(ctx context.Context) error)
}

var terminationHandler = termination.Handle

// Run starts every registered service and blocks until one fails or a
// shutdown signal arrives. On a signal it keeps serving for delay, so
// load balancers drain us before the servers stop, then returns
// termination.ErrTerminated.
func (s *System) Run(ctx context.Context, delay time.Duration) (err error) {
	ctx, span := o11y.StartSpan(ctx, "system: run")
	defer o11y.End(span, &err)
	span.RecordMetric(o11y.Timing("system.run", "result"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return terminationHandler(ctx, delay)
	})

	for _, f := range s.services {
		f := f
		g.Go(func() error {
			return f(ctx)
		})
	}

	if len(s.metricProducers)+len(s.gaugeProducers) > 0 {
		g.Go(metricsReporter(ctx, s.metricProducers, s.gaugeProducers))
	}

	return g.Wait()
}

// AddService registers a long-running func. It must exit when its
// context is cancelled; its error stops the whole system.
func (s *System) AddService(svc func(ctx context.Context) error) {
	s.services = append(s.services, svc)
}

func (s *System) AddHealthCheck(h HealthChecker) {
	s.healthChecks = append(s.healthChecks, h)
}

// AddMetrics registers a producer of plain gauges.
func (s *System) AddMetrics(m MetricProducer) {
	s.metricProducers = append(s.metricProducers, m)
}

// AddGauges registers a producer of tagged gauges.
func (s *System) AddGauges(g GaugeProducer) {
	s.gaugeProducers = append(s.gaugeProducers, g)
}

func (s *System) HealthChecks() []HealthChecker {
	return s.healthChecks
}

// AddCleanup registers work to run at exit, after Run has returned.
func (s *System) AddCleanup(c func(ctx context.Context) error) {
	s.cleanups = append(s.cleanups, c)
}

// Cleanup runs the registered cleanups in reverse registration order,
// so a database pool added before the server that queries it closes
// after that server has drained. Errors are logged, not returned.
func (s *System) Cleanup(ctx context.Context) {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		if err := s.cleanups[i](ctx); err != nil {
			o11y.LogError(ctx, "system: cleanup error", err)
		}
	}
}
