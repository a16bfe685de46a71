// Package honeyio is an o11y.Provider that emits spans as Honeycomb
// events via libhoney. Spans are built locally (ids from uuid) and sent
// on End; depending on configuration events go to the Honeycomb API, to a
// writer as JSON lines, or through the human readable text formatter.
// Metrics recorded on spans are forwarded to the configured statsd-shaped
// metrics provider.
package honeyio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/google/uuid"
	libhoney "github.com/honeycombio/libhoney-go"
	"github.com/honeycombio/libhoney-go/transmission"

	"github.com/pluvio/dbx/o11y"
)

type Config struct {
	// Host overrides the Honeycomb API host, for tests.
	Host string
	// Dataset receives the events when sending is enabled.
	Dataset string
	// Key is the Honeycomb write key.
	Key string
	// SendTraces enables delivery to the Honeycomb API. Local output is
	// produced regardless, per Format.
	SendTraces bool
	// Format selects local output: "json", "text", "colour"/"color" or
	// "none".
	Format string
	// Writer overrides the local output destination, for tests. Defaults
	// to stderr for "json" and "text".
	Writer io.Writer
	// Metrics receives metrics recorded on spans. Defaults to the no-op
	// statsd client.
	Metrics o11y.MetricsProvider
	// Debug makes libhoney log its internals to stderr.
	Debug bool
}

func (c *Config) Validate() error {
	switch c.Format {
	case "", "json", "text", "colour", "color", "none":
		return nil
	}
	return fmt.Errorf("unknown format: %s", c.Format)
}

type provider struct {
	client  *libhoney.Client
	metrics o11y.MetricsProvider

	mu           sync.RWMutex
	globalFields map[string]any
}

// New creates a provider. Close must be called on shutdown to flush
// pending events.
func New(conf Config) o11y.Provider {
	sender := &multiSender{}
	if conf.SendTraces {
		sender.senders = append(sender.senders, &transmission.Honeycomb{
			MaxBatchSize:         libhoney.DefaultMaxBatchSize,
			BatchTimeout:         libhoney.DefaultBatchTimeout,
			MaxConcurrentBatches: libhoney.DefaultMaxConcurrentBatches,
			PendingWorkCapacity:  libhoney.DefaultPendingWorkCapacity,
		})
	}

	w := conf.Writer
	if w == nil {
		w = os.Stderr
	}
	switch conf.Format {
	case "json":
		sender.senders = append(sender.senders, &transmission.WriterSender{W: w})
	case "text", "":
		sender.senders = append(sender.senders, &transmission.WriterSender{W: &TextFormatter{W: w}})
	case "colour", "color":
		sender.senders = append(sender.senders, &transmission.WriterSender{W: &TextFormatter{W: w, Colour: true}})
	}
	if len(sender.senders) == 0 {
		sender.senders = append(sender.senders, &transmission.DiscardSender{})
	}

	cc := libhoney.ClientConfig{
		APIKey:       conf.Key,
		Dataset:      conf.Dataset,
		APIHost:      conf.Host,
		Transmission: sender,
	}
	if conf.Debug {
		cc.Logger = &libhoney.DefaultLogger{}
	}
	client, err := libhoney.NewClient(cc)
	if err != nil {
		// ClientConfig is fully defaulted, the only errors are programming mistakes
		panic(err)
	}

	metrics := conf.Metrics
	if metrics == nil {
		metrics = &statsd.NoOpClient{}
	}

	return &provider{
		client:       client,
		metrics:      metrics,
		globalFields: map[string]any{},
	}
}

func (p *provider) AddGlobalField(key string, val any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.globalFields[key] = val
}

func (p *provider) StartSpan(ctx context.Context, name string) (context.Context, o11y.Span) {
	return p.startSpan(ctx, name)
}

func (p *provider) startSpan(ctx context.Context, name string) (context.Context, *span) {
	s := &span{
		name:     name,
		spanID:   uuid.NewString(),
		start:    time.Now(),
		fields:   map[string]any{},
		provider: p,
	}

	if parent, ok := ctx.Value(spanKey{}).(*span); ok {
		s.trace = parent.trace
		s.parentID = parent.spanID
	} else {
		s.trace = &traceShared{
			traceID: uuid.NewString(),
			fields:  map[string]any{},
		}
	}

	return context.WithValue(ctx, spanKey{}, s), s
}

func (p *provider) GetSpan(ctx context.Context) o11y.Span {
	if s, ok := ctx.Value(spanKey{}).(*span); ok {
		return s
	}
	return nil
}

func (p *provider) AddField(ctx context.Context, key string, val any) {
	if s, ok := ctx.Value(spanKey{}).(*span); ok {
		s.AddField(key, val)
	}
}

func (p *provider) AddFieldToTrace(ctx context.Context, key string, val any) {
	if s, ok := ctx.Value(spanKey{}).(*span); ok {
		s.trace.addField(key, val)
	}
}

func (p *provider) Log(ctx context.Context, name string, fields ...o11y.Pair) {
	_, s := p.startSpan(ctx, name)
	for _, f := range fields {
		s.AddField(f.Key, f.Value)
	}
	s.End()
}

func (p *provider) Close(_ context.Context) {
	p.client.Close()
}

func (p *provider) MetricsProvider() o11y.MetricsProvider {
	return p.metrics
}

type spanKey struct{}

// traceShared carries the fields every span in a trace inherits.
type traceShared struct {
	traceID string

	mu     sync.RWMutex
	fields map[string]any
}

func (t *traceShared) addField(key string, val any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fields[key] = val
}

func (t *traceShared) snapshot(into map[string]any) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for k, v := range t.fields {
		into[k] = v
	}
}

type span struct {
	name     string
	spanID   string
	parentID string
	trace    *traceShared
	start    time.Time
	provider *provider

	mu      sync.Mutex
	fields  map[string]any
	metrics []o11y.Metric
	ended   bool
}

func (s *span) AddField(key string, val any) {
	s.AddRawField("app."+key, val)
}

func (s *span) AddRawField(key string, val any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := val.(error); ok {
		val = err.Error()
	}
	s.fields[key] = val
}

func (s *span) RecordMetric(metric o11y.Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, metric)
}

func (s *span) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	duration := time.Since(s.start)

	fields := map[string]any{
		"name":            s.name,
		"duration_ms":     float64(duration.Nanoseconds()) / 1e6,
		"trace.trace_id":  s.trace.traceID,
		"trace.span_id":   s.spanID,
		"meta.local_time": s.start,
	}
	if s.parentID != "" {
		fields["trace.parent_id"] = s.parentID
	}
	for k, v := range s.fields {
		fields[k] = v
	}
	metrics := s.metrics
	s.mu.Unlock()

	s.provider.mu.RLock()
	for k, v := range s.provider.globalFields {
		fields[k] = v
	}
	s.provider.mu.RUnlock()
	s.trace.snapshot(fields)

	s.provider.sendMetrics(metrics, fields)

	ev := s.provider.client.NewEvent()
	ev.Timestamp = s.start
	for k, v := range fields {
		ev.AddField(k, v)
	}
	// Send never blocks, overflow is counted by the transmission
	ev.Send()
}

func (p *provider) sendMetrics(metrics []o11y.Metric, fields map[string]any) {
	for _, m := range metrics {
		tags := metricTags(m, fields)
		switch m.Type {
		case o11y.MetricTimer:
			val, ok := toFloat(fields[m.Field])
			if !ok {
				continue
			}
			_ = p.metrics.TimeInMilliseconds(m.Name, val, tags, 1)
		case o11y.MetricGauge:
			val, ok := toFloat(fields[m.Field])
			if !ok {
				continue
			}
			_ = p.metrics.Gauge(m.Name, val, tags, 1)
		case o11y.MetricCount:
			val := int64(1)
			if m.Field != "" {
				f, ok := toFloat(fields[m.Field])
				if !ok {
					continue
				}
				val = int64(f)
			}
			_ = p.metrics.Count(m.Name, val, tags, 1)
		}
	}
}

func metricTags(m o11y.Metric, fields map[string]any) []string {
	tags := make([]string, 0, len(m.TagFields)+1)
	if m.FixedTag != nil {
		tags = append(tags, fmt.Sprintf("%s:%v", m.FixedTag.Name, m.FixedTag.Value))
	}
	for _, f := range m.TagFields {
		if v, ok := fields[f]; ok {
			tags = append(tags, fmt.Sprintf("%s:%v", f, v))
		}
	}
	return tags
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// multiSender fans events out to every configured sender.
type multiSender struct {
	senders []transmission.Sender
}

func (s *multiSender) Add(ev *transmission.Event) {
	for _, tx := range s.senders {
		tx.Add(ev)
	}
}

func (s *multiSender) Start() error {
	if len(s.senders) == 0 {
		return errors.New("no senders configured")
	}
	for _, tx := range s.senders {
		if err := tx.Start(); err != nil {
			return err
		}
	}
	return nil
}

func (s *multiSender) Stop() error {
	var err error
	for _, tx := range s.senders {
		if serr := tx.Stop(); serr != nil {
			err = serr
		}
	}
	return err
}

func (s *multiSender) Flush() error {
	var err error
	for _, tx := range s.senders {
		if ferr := tx.Flush(); ferr != nil {
			err = ferr
		}
	}
	return err
}

// TxResponses is needed to satisfy the transmission.Sender interface; the
// first sender's channel is used.
func (s *multiSender) TxResponses() chan transmission.Response {
	return s.senders[0].TxResponses()
}

func (s *multiSender) SendResponse(r transmission.Response) bool {
	return s.senders[0].SendResponse(r)
}
