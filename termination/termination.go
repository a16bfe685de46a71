// Package termination turns shutdown signals into an error the service
// runtime can act on.
package termination

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pluvio/dbx/o11y"
)

// ErrTerminated is returned once a shutdown signal has been handled.
var ErrTerminated = errors.New("terminated")

// Handle blocks until the process receives SIGINT or SIGTERM, waits for
// delay so load balancers notice we are going away, then returns
// ErrTerminated. It returns nil if ctx is cancelled first.
func Handle(ctx context.Context, delay time.Duration) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		o11y.Log(ctx, "termination: signal received",
			o11y.Field("signal", sig.String()),
			o11y.Field("delay", delay.String()),
		)
		wait(ctx, delay)
		return ErrTerminated
	case <-ctx.Done():
		return nil
	}
}

func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
