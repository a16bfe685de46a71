// Package o11y configures the observability provider for both development
// and production binaries.
package o11y

import (
	"context"
	"os"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rollbar/rollbar-go"

	"github.com/pluvio/dbx/config/secret"
	"github.com/pluvio/dbx/o11y"
	"github.com/pluvio/dbx/o11y/honeyio"
)

type Config struct {
	Statsd            string
	RollbarToken      secret.String
	RollbarEnv        string
	RollbarServerRoot string
	HoneycombEnabled  bool
	HoneycombDataset  string
	HoneycombKey      secret.String
	Format            string
	Version           string
	Service           string
	StatsNamespace    string

	// Optional
	Mode                    string
	Debug                   bool
	RollbarDisabled         bool
	StatsdTelemetryDisabled bool
}

// Setup is the primary entrypoint to initialise the o11y system. The
// returned context carries the provider, and the returned func flushes
// and closes it.
func Setup(ctx context.Context, o Config) (context.Context, func(context.Context), error) {
	honeyConfig := honeyio.Config{
		Dataset:    o.HoneycombDataset,
		Key:        o.HoneycombKey.Raw(),
		Format:     o.Format,
		SendTraces: o.HoneycombEnabled,
		Debug:      o.Debug,
	}
	if err := honeyConfig.Validate(); err != nil {
		return nil, nil, err
	}

	hostname, _ := os.Hostname()

	metrics, err := newMetrics(o, hostname)
	if err != nil {
		return nil, nil, err
	}
	honeyConfig.Metrics = metrics

	provider := honeyio.New(honeyConfig)
	provider.AddGlobalField("service", o.Service)
	provider.AddGlobalField("version", o.Version)
	if o.Mode != "" {
		provider.AddGlobalField("mode", o.Mode)
	}

	if o.RollbarToken != "" {
		client := rollbar.NewAsync(o.RollbarToken.Raw(), o.RollbarEnv, o.Version, hostname, o.RollbarServerRoot)
		client.SetEnabled(!o.RollbarDisabled)
		client.Message(rollbar.INFO, "Deployment")
		provider = rollbarProvider{
			Provider: provider,
			client:   client,
		}
	}

	ctx = o11y.WithProvider(ctx, provider)

	return ctx, provider.Close, nil
}

// newMetrics dials statsd carrying the service identity tags, or returns
// the no-op client when no statsd address is configured.
func newMetrics(o Config, hostname string) (o11y.MetricsProvider, error) {
	if o.Statsd == "" {
		return &statsd.NoOpClient{}, nil
	}

	tags := []string{
		"service:" + o.Service,
		"version:" + o.Version,
		"hostname:" + hostname,
	}
	if o.Mode != "" {
		tags = append(tags, "mode:"+o.Mode)
	}

	opts := []statsd.Option{
		statsd.WithNamespace(o.StatsNamespace),
		statsd.WithTags(tags),
	}
	if o.StatsdTelemetryDisabled {
		opts = append(opts, statsd.WithoutTelemetry())
	}

	stats, err := statsd.New(o.Statsd, opts...)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

type rollbarProvider struct {
	o11y.Provider
	client *rollbar.Client
}

func (p rollbarProvider) Close(ctx context.Context) {
	p.Provider.Close(ctx)
	_ = p.client.Close()
}

// RollBarClient exposes the client so o11y.HandlePanic can report crashes.
func (p rollbarProvider) RollBarClient() *rollbar.Client {
	return p.client
}
