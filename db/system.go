package db

import (
	"context"
	"time"

	"github.com/pluvio/dbx/system"
)

// Load opens a pool in the default registry and hooks it into the
// system runtime: a readiness check, connection pool gauges, and a
// shutdown cleanup that closes the pool.
func Load(ctx context.Context, name string, cfg Config, sys *system.System) (*Pool, error) {
	p, err := Open(ctx, name, cfg)
	if err != nil {
		return nil, err
	}

	check := &HealthCheck{Name: name + "-db", Pool: p}
	sys.AddMetrics(check)
	sys.AddHealthCheck(check)
	sys.AddCleanup(func(ctx context.Context) error {
		Close(ctx, name)
		return nil
	})

	return p, nil
}

// GaugeName satisfies system.GaugeProducer.
func (r *Registry) GaugeName() string {
	return "db-pools"
}

// Gauges reports connection stats for every registered pool, tagged
// with the pool name and engine so one reporter covers the registry.
func (r *Registry) Gauges(_ context.Context) map[string][]system.TaggedValue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := map[string][]system.TaggedValue{}
	for _, p := range r.pools {
		if p.db == nil {
			continue
		}
		stats := p.db.Stats()
		tags := []string{"pool:" + p.name, "engine:" + string(p.kind)}
		add := func(field string, v float64) {
			out[field] = append(out[field], system.TaggedValue{Val: v, Tags: tags})
		}
		add("in_use", float64(stats.InUse))
		add("idle", float64(stats.Idle))
		add("wait_count", float64(stats.WaitCount))
		add("wait_duration", float64(stats.WaitDuration/time.Millisecond))
		add("max_idle_closed", float64(stats.MaxIdleClosed))
		add("max_idle_time_closed", float64(stats.MaxIdleTimeClosed))
		add("max_lifetime_closed", float64(stats.MaxLifetimeClosed))
	}
	return out
}
