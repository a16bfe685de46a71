package httpserver

import (
	"context"
)

// MetricProducer is a source of gauge metrics. It mirrors the system
// package's interface so this package does not have to depend on it.
type MetricProducer interface {
	// MetricName is the name for this group of metrics.
	// (Name would be cleaner, but is much more likely to clash in implementations.)
	MetricName() string
	// Gauges are instantaneous name value pairs.
	Gauges(context.Context) map[string]float64
}
