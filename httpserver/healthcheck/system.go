package healthcheck

import (
	"context"
	"fmt"

	"github.com/pluvio/dbx/httpserver"
	"github.com/pluvio/dbx/system"
)

// Load starts the admin API on addr, reporting on every health check
// registered with sys so far. Load it last so nothing is missed.
func Load(ctx context.Context, addr string, sys *system.System) (*httpserver.HTTPServer, error) {
	healthAPI, err := New(ctx, sys.HealthChecks())
	if err != nil {
		return nil, fmt.Errorf("could not build the health check API: %w", err)
	}

	return httpserver.Load(ctx, httpserver.Config{
		Name:    "admin",
		Addr:    addr,
		Handler: healthAPI.Handler(),
	}, sys)
}
