package system

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pluvio/dbx/o11y"
	"github.com/pluvio/dbx/worker"
)

// MetricProducer contributes plain gauge readings, published on every
// reporting cycle.
type MetricProducer interface {
	// MetricName names this group of metrics. (Name would be cleaner but
	// clashes with too many implementations.)
	MetricName() string
	// Gauges are instantaneous name value pairs.
	Gauges(ctx context.Context) map[string]float64
}

const reportInterval = 10 * time.Second

// metricsReporter returns a func for errgroup.Go that publishes every
// producer's gauges on each reporting cycle until the context dies.
func metricsReporter(ctx context.Context, mps []MetricProducer, gps []GaugeProducer) func() error {
	return func() error {
		worker.Run(ctx, worker.Config{
			Name:          "metric-loop",
			MaxWorkTime:   time.Second,
			NoWorkBackOff: backoff.NewConstantBackOff(reportInterval),
			WorkFunc: func(ctx context.Context) error {
				reportMetrics(ctx, mps)
				reportGauges(ctx, gps)
				return worker.ErrShouldBackoff
			},
		})
		return nil
	}
}

func reportMetrics(ctx context.Context, producers []MetricProducer) {
	metrics := o11y.FromContext(ctx).MetricsProvider()
	for _, p := range producers {
		name := strings.ReplaceAll(p.MetricName(), "-", "_")
		for field, v := range p.Gauges(ctx) {
			_ = metrics.Gauge(fmt.Sprintf("gauge.%s.%s", name, field), v, nil, 1)
		}
	}
}
