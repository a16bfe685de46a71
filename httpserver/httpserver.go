package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pluvio/dbx/o11y"
	"github.com/pluvio/dbx/recontext"
)

const (
	// requestTimeout bounds both reading a request and writing its
	// response. Long polls should use a dedicated server.
	requestTimeout = 55 * time.Second
	// shutdownGrace is how long in-flight requests get to finish once
	// the serve context is cancelled.
	shutdownGrace = 10 * time.Second
)

// HTTPServer wraps http.Server with a tracked listener and context
// driven zero-downtime shutdown.
type HTTPServer struct {
	listener *trackedListener
	server   *http.Server
}

type Config struct {
	// Name of the server in o11y and metrics.
	Name string
	// Addr is the address to listen on.
	Addr string
	// Handler serves the requests.
	Handler http.Handler

	// Network is optional. It must be "tcp", "tcp4", "tcp6", "unix",
	// "unixpacket" or "" (which means tcp).
	Network string
}

func (c Config) network() string {
	if c.Network == "" {
		return "tcp"
	}
	return c.Network
}

// New starts listening on cfg.Addr immediately, so callers can bind
// port 0 and read the final address back with Addr, but no requests are
// served until Serve.
func New(ctx context.Context, cfg Config) (s *HTTPServer, err error) {
	ctx, span := o11y.StartSpan(ctx, "httpserver: new "+cfg.Name)
	defer o11y.End(span, &err)
	span.AddField("server_name", cfg.Name)
	span.AddField("network", cfg.network())

	ln, err := net.Listen(cfg.network(), cfg.Addr)
	if err != nil {
		return nil, err
	}
	tracked := &trackedListener{
		Listener: ln,
		name:     cfg.Name,
	}
	span.AddField("address", tracked.Addr().String())

	return &HTTPServer{
		listener: tracked,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      cfg.Handler,
			ReadTimeout:  requestTimeout,
			WriteTimeout: requestTimeout,
		},
	}, nil
}

// Serve blocks serving requests. When ctx is cancelled the server
// shuts down, giving in-flight requests shutdownGrace to finish.
func (s *HTTPServer) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.server.Serve(s.listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := recontext.WithNewTimeout(ctx, shutdownGrace)
		defer cancel()
		if err := s.server.Shutdown(sctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// MetricsProducer exposes the listener's connection gauges.
func (s *HTTPServer) MetricsProducer() MetricProducer {
	return s.listener
}

// Addr returns the address the listener is bound to.
func (s *HTTPServer) Addr() string {
	return s.listener.Addr().String()
}
