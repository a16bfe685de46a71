package healthcheck

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/pluvio/dbx/closer"
	"github.com/pluvio/dbx/system"
	"github.com/pluvio/dbx/testing/testcontext"
)

func TestAPI_Probes(t *testing.T) {
	tests := []struct {
		name      string
		readyErr  error
		liveErr   error
		wantLive  int
		wantReady int
	}{
		{
			name:      "healthy",
			wantLive:  http.StatusOK,
			wantReady: http.StatusOK,
		},
		{
			name:      "not live",
			liveErr:   errors.New("dead"),
			wantLive:  http.StatusServiceUnavailable,
			wantReady: http.StatusOK,
		},
		{
			name:      "not ready",
			readyErr:  errors.New("pool still filling"),
			wantLive:  http.StatusOK,
			wantReady: http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startAPI(t, &stubChecker{ready: tt.readyErr, live: tt.liveErr})

			body, status := get(t, srv, "/live")
			assert.Check(t, cmp.Equal(status, tt.wantLive))
			assert.Check(t, cmp.Contains(body, statusText(tt.wantLive)))

			body, status = get(t, srv, "/ready")
			assert.Check(t, cmp.Equal(status, tt.wantReady))
			assert.Check(t, cmp.Contains(body, statusText(tt.wantReady)))
		})
	}
}

// statusText is the status field value health-go writes in the body.
func statusText(code int) string {
	if code == http.StatusOK {
		return `"status":"OK"`
	}
	return `"status":"Unavailable"`
}

func TestAPI_NilChecksAreSkipped(t *testing.T) {
	srv := startAPI(t, &stubChecker{liveOnly: true, live: errors.New("dead")})

	// No ready check was registered so the probe reports OK.
	_, status := get(t, srv, "/ready")
	assert.Check(t, cmp.Equal(status, http.StatusOK))

	_, status = get(t, srv, "/live")
	assert.Check(t, cmp.Equal(status, http.StatusServiceUnavailable))
}

func TestAPI_Pprof(t *testing.T) {
	srv := startAPI(t)

	t.Run("index", func(t *testing.T) {
		body, status := get(t, srv, "/debug/pprof")
		assert.Check(t, cmp.Equal(status, http.StatusOK))
		assert.Check(t, cmp.Contains(body, "Types of profiles available"))
	})

	t.Run("named profiles", func(t *testing.T) {
		for _, profile := range []string{"heap", "goroutine", "mutex"} {
			body, status := get(t, srv, "/debug/pprof/"+profile)
			assert.Check(t, cmp.Equal(status, http.StatusOK))
			assert.Check(t, len(body) > 0)
		}
	})

	t.Run("special profiles", func(t *testing.T) {
		for _, profile := range []string{"cmdline", "symbol"} {
			_, status := get(t, srv, "/debug/pprof/"+profile)
			assert.Check(t, cmp.Equal(status, http.StatusOK))
		}
		for _, profile := range []string{"profile", "trace"} {
			_, status := get(t, srv, "/debug/pprof/"+profile+"?seconds=1")
			assert.Check(t, cmp.Equal(status, http.StatusOK))
		}
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, status := get(t, srv, "/debug/pprof/nothere")
		assert.Check(t, cmp.Equal(status, http.StatusNotFound))
	})
}

type stubChecker struct {
	ready, live error
	liveOnly    bool
}

func (s *stubChecker) HealthChecks() (string, func(ctx context.Context) error, func(ctx context.Context) error) {
	ready := func(context.Context) error { return s.ready }
	if s.liveOnly {
		ready = nil
	}
	return "stub", ready, func(context.Context) error { return s.live }
}

func startAPI(t *testing.T, checked ...system.HealthChecker) *httptest.Server {
	t.Helper()

	api, err := New(testcontext.Background(), checked)
	assert.NilError(t, err)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (body string, status int) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+path, nil)
	assert.NilError(t, err)

	resp, err := srv.Client().Do(req)
	assert.NilError(t, err)
	defer func() {
		var cerr error
		closer.ErrorHandler(resp.Body, &cerr)
		assert.Check(t, cerr)
	}()

	b, err := io.ReadAll(resp.Body)
	assert.NilError(t, err)
	return string(b), resp.StatusCode
}
