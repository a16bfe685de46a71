package db

import (
	"context"
	"fmt"
	"time"
)

// HealthCheck adapts a Pool to the system runtime's health and metrics
// hooks.
type HealthCheck struct {
	Name string
	Pool *Pool
}

func (h *HealthCheck) HealthChecks() (name string, ready, live func(ctx context.Context) error) {
	return h.Name, h.ready, nil
}

func (h *HealthCheck) MetricName() string {
	return h.Name
}

func (h *HealthCheck) Gauges(_ context.Context) map[string]float64 {
	if h.Pool.db == nil {
		return nil
	}
	stats := h.Pool.db.Stats()
	return map[string]float64{
		"in_use":               float64(stats.InUse),
		"idle":                 float64(stats.Idle),
		"wait_count":           float64(stats.WaitCount),
		"wait_duration":        float64(stats.WaitDuration / time.Millisecond),
		"max_idle_closed":      float64(stats.MaxIdleClosed),
		"max_idle_time_closed": float64(stats.MaxIdleTimeClosed),
		"max_lifetime_closed":  float64(stats.MaxLifetimeClosed),
	}
}

// ready verifies that a connection can be acquired and a trivial select
// runs, within the pool's acquire timeout.
func (h *HealthCheck) ready(ctx context.Context) (checkErr error) {
	db := h.Pool.db
	if db == nil {
		return fmt.Errorf("health check failed: pool %q has no driver", h.Pool.name)
	}
	ctx, cancel := context.WithTimeout(ctx, h.Pool.acquireTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("health check failed on ping: %w", err)
	}
	rows, err := db.QueryContext(ctx, `SELECT 1`)
	if err != nil {
		return fmt.Errorf("health check failed on select: %w", err)
	}
	defer func() {
		// override checkErr only if there were no other errors
		if err = rows.Close(); err != nil && checkErr == nil {
			checkErr = fmt.Errorf("health check failed on rows closing: %w", err)
		}
	}()
	return nil
}
