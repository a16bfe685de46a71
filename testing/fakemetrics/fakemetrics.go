// Package fakemetrics records metric calls so tests can assert on them.
package fakemetrics

import (
	"fmt"
	"sync"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type MetricCall struct {
	Metric   string
	Name     string
	Value    float64
	ValueInt int64
	Tags     []string
	Rate     float64
}

// CMPMetrics compares calls ignoring order and with a wide tolerance on
// values, since timings vary run to run.
var CMPMetrics = gocmp.Options{
	cmpopts.EquateApprox(0, 10),
	cmpopts.SortSlices(func(x, y MetricCall) bool {
		return fmt.Sprintf("%s|%s|%s", x.Metric, x.Name, x.Tags) <
			fmt.Sprintf("%s|%s|%s", y.Metric, y.Name, y.Tags)
	}),
}

// Provider implements o11y.MetricsProvider, storing every call it sees.
// The zero value is ready to use.
type Provider struct {
	mu    sync.RWMutex
	calls []MetricCall
}

func (p *Provider) Calls() []MetricCall {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return append([]MetricCall(nil), p.calls...)
}

func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = nil
}

func (p *Provider) TimeInMilliseconds(name string, value float64, tags []string, rate float64) error {
	p.record(MetricCall{Metric: "timer", Name: name, Value: value, Tags: tags, Rate: rate})
	return nil
}

func (p *Provider) Gauge(name string, value float64, tags []string, rate float64) error {
	p.record(MetricCall{Metric: "gauge", Name: name, Value: value, Tags: tags, Rate: rate})
	return nil
}

func (p *Provider) Count(name string, value int64, tags []string, rate float64) error {
	p.record(MetricCall{Metric: "count", Name: name, ValueInt: value, Tags: tags, Rate: rate})
	return nil
}

func (p *Provider) Histogram(name string, value float64, tags []string, rate float64) error {
	p.record(MetricCall{Metric: "histogram", Name: name, Value: value, Tags: tags, Rate: rate})
	return nil
}

func (p *Provider) Close() error {
	return nil
}

func (p *Provider) record(call MetricCall) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, call)
}
