package httpserver

import (
	"context"
	"fmt"

	"github.com/pluvio/dbx/system"
)

// Load builds a server from cfg and hands it to sys, which from then on
// owns its serve loop and its connection gauges.
func Load(ctx context.Context, cfg Config, sys *system.System) (*HTTPServer, error) {
	server, err := New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not start %q server: %w", cfg.Name, err)
	}

	sys.AddService(server.Serve)
	sys.AddMetrics(server.MetricsProducer())
	return server, nil
}
