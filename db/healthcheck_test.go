package db

import (
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/pluvio/dbx/testing/testcontext"
)

func TestHealthCheck_ReadyAndGauges(t *testing.T) {
	ctx := testcontext.Background()
	r := NewRegistry()
	t.Cleanup(func() { r.CloseAll(ctx) })

	pool, err := r.Open(ctx, "hc", Config{URL: sqliteURL(t)})
	assert.NilError(t, err)

	hc := &HealthCheck{Name: "hc-db", Pool: pool}
	assert.Check(t, cmp.Equal(hc.MetricName(), "hc-db"))

	name, ready, live := hc.HealthChecks()
	assert.Check(t, cmp.Equal(name, "hc-db"))
	assert.Check(t, live == nil)
	assert.NilError(t, ready(ctx))

	gauges := hc.Gauges(ctx)
	for _, key := range []string{
		"in_use", "idle", "wait_count", "wait_duration",
		"max_idle_closed", "max_idle_time_closed", "max_lifetime_closed",
	} {
		_, ok := gauges[key]
		assert.Check(t, ok, "missing gauge %q", key)
	}
}

func TestHealthCheck_PlaceholderPoolNeverReady(t *testing.T) {
	ctx := testcontext.Background()
	r := NewRegistry()
	t.Cleanup(func() { r.CloseAll(ctx) })

	pool, err := r.Open(ctx, "ph", Config{URL: "weirddb://host/db"})
	assert.NilError(t, err)

	hc := &HealthCheck{Name: "ph-db", Pool: pool}
	_, ready, _ := hc.HealthChecks()
	assert.Check(t, cmp.ErrorContains(ready(ctx), "no driver"))
	assert.Check(t, cmp.Nil(hc.Gauges(ctx)))
}

func TestRegistry_Gauges(t *testing.T) {
	ctx := testcontext.Background()
	r := NewRegistry()
	t.Cleanup(func() { r.CloseAll(ctx) })

	_, err := r.Open(ctx, "real", Config{URL: sqliteURL(t)})
	assert.NilError(t, err)
	// placeholder pools have no handle so they produce no gauges
	_, err = r.Open(ctx, "ph", Config{URL: "weirddb://host/db"})
	assert.NilError(t, err)

	assert.Check(t, cmp.Equal(r.GaugeName(), "db-pools"))

	gauges := r.Gauges(ctx)
	vals, ok := gauges["in_use"]
	assert.Assert(t, ok, "missing in_use gauge")
	assert.Assert(t, cmp.Len(vals, 1))
	assert.Check(t, cmp.Contains(vals[0].Tags, "pool:real"))
	assert.Check(t, cmp.Contains(vals[0].Tags, "engine:sqlite"))
}
