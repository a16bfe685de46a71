// Package poll retries a check until it settles or a deadline passes.
package poll

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

const interval = 50 * time.Millisecond

// Check is called on every attempt. Return done to stop polling; err is
// the check's verdict at that point.
type Check func() (done bool, err error)

// Wait asserts that check settles without error before the deadline.
func Wait(ctx context.Context, t *testing.T, deadline time.Duration, check Check) {
	t.Helper()
	assert.NilError(t, WaitFor(ctx, deadline, check))
}

// WaitFor polls check until it reports done, returning the check's
// error, or until the deadline passes, returning the context error
// wrapped around whatever the last attempt reported. The check always
// gets at least one attempt.
func WaitFor(ctx context.Context, deadline time.Duration, check Check) error {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		done, err := check()
		if done {
			return err
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("%w: last attempt: %w", ctx.Err(), err)
			}
			return ctx.Err()
		case <-tick.C:
		}
	}
}
