package system

import (
	"context"
	"fmt"
	"strings"

	"github.com/pluvio/dbx/o11y"
)

// GaugeProducer contributes gauge readings that carry their own tags,
// eg. one reading per database pool.
type GaugeProducer interface {
	GaugeName() string
	// Gauges are instantaneous readings keyed by field name, each with
	// the tags to publish alongside the value.
	Gauges(ctx context.Context) map[string][]TaggedValue
}

// TaggedValue is one gauge reading and its tags.
type TaggedValue struct {
	Val  float64
	Tags []string
}

func reportGauges(ctx context.Context, producers []GaugeProducer) {
	metrics := o11y.FromContext(ctx).MetricsProvider()
	for _, p := range producers {
		name := strings.ReplaceAll(p.GaugeName(), "-", "_")
		for field, tvs := range p.Gauges(ctx) {
			for _, tv := range tvs {
				_ = metrics.Gauge(fmt.Sprintf("gauge.%s.%s", name, field), tv.Val, tv.Tags, 1)
			}
		}
	}
}
