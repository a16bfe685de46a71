// Package recontext derives contexts that keep the parent's values but
// drop its cancellation and deadline. This is for cleanup work that must
// proceed after the triggering request has died, such as rolling back an
// abandoned transaction.
package recontext

import (
	"context"
	"time"
)

// detached passes Value through to the parent and reports no deadline,
// no done channel and no error. It is never handed out directly, only
// wrapped in a real deadline context so nothing can hang forever.
type detached struct{ context.Context }

func (detached) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detached) Done() <-chan struct{}       { return nil }
func (detached) Err() error                  { return nil }

// WithNewDeadline derives a context from parent that ignores the
// parent's cancellation and deadline. The new deadline is mandatory so
// a detached context can never be unbounded.
func WithNewDeadline(parent context.Context, deadline time.Time) (context.Context, context.CancelFunc) {
	return context.WithDeadline(detached{parent}, deadline)
}

// WithNewTimeout is WithNewDeadline for a relative duration.
func WithNewTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(detached{parent}, timeout)
}
