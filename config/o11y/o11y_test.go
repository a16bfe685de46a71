package o11y

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/pluvio/dbx/config/secret"
	"github.com/pluvio/dbx/o11y"
	"github.com/pluvio/dbx/o11y/honeyio"
	"github.com/pluvio/dbx/testing/fakestatsd"
)

// The json output path must never leak secret config values.
func TestO11Y_SecretRedacted(t *testing.T) {
	buf := bytes.Buffer{}
	provider := honeyio.New(honeyio.Config{
		Format: "json",
		Writer: &buf,
	})

	_, span := provider.StartSpan(context.Background(), "connect")
	span.AddField("db_url", secret.String("postgres://u:hunter2@db/notes"))
	span.End()
	provider.Close(context.Background())

	out := buf.String()
	assert.Check(t, !strings.Contains(out, "hunter2"), out)
	assert.Check(t, cmp.Contains(out, "REDACTED"))
}

func TestSetup(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		ctx, cleanup, err := Setup(context.Background(), Config{
			Statsd:            "127.0.0.1:8125",
			RollbarToken:      "not-a-real-token",
			RollbarDisabled:   true,
			RollbarEnv:        "testing",
			RollbarServerRoot: "github.com/pluvio/dbx",
			HoneycombEnabled:  false,
			HoneycombDataset:  "nope",
			HoneycombKey:      "0000",
			Format:            "colour",
			Version:           "dev",
			Service:           "dbx-test",
			StatsNamespace:    "dbx.test",
			Mode:              "cli",
			Debug:             true,
		})
		assert.NilError(t, err)
		cleanup(ctx)
	})

	t.Run("no statsd means noop metrics", func(t *testing.T) {
		ctx, cleanup, err := Setup(context.Background(), Config{Format: "none"})
		assert.NilError(t, err)
		defer cleanup(ctx)

		metrics := o11y.FromContext(ctx).MetricsProvider()
		assert.NilError(t, metrics.Count("ignored", 1, nil, 1))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := Setup(context.Background(), Config{Format: "yaml"})
		assert.Check(t, cmp.ErrorContains(err, "unknown format"))
	})
}

func TestSetup_StatsdRoundTrip(t *testing.T) {
	s := fakestatsd.New(t)

	ctx, cleanup, err := Setup(context.Background(), Config{
		Statsd:                  s.Addr(),
		Format:                  "text",
		Version:                 "1.2.3",
		Service:                 "dbx-test",
		StatsNamespace:          "dbx.",
		StatsdTelemetryDisabled: true,
	})
	assert.NilError(t, err)
	t.Cleanup(func() {
		cleanup(ctx)
	})

	metrics := o11y.FromContext(ctx).MetricsProvider()
	assert.NilError(t, metrics.Count("queries", 1, []string{"pool:notes"}, 1))

	got, err := s.WaitForMetric(ctx, "dbx.queries", 10*time.Second)
	assert.NilError(t, err)

	assert.Check(t, cmp.Equal(got.Value, "1|c|"))
	assert.Check(t, cmp.Contains(got.Tags, "pool:notes"))
	assert.Check(t, cmp.Contains(got.Tags, "service:dbx-test"))
	assert.Check(t, cmp.Contains(got.Tags, "version:1.2.3"))
}
