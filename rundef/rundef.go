// Package rundef applies container aware go runtime defaults. Inside a
// cgroup the runtime's own detection sees the host's CPUs and memory
// rather than the quotas that will actually be enforced.
package rundef

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/pluvio/dbx/o11y"
)

// Defaults applies every runtime default, currently GOMEMLIMIT and
// GOMAXPROCS, for the detected environment.
func Defaults(ctx context.Context) (err error) {
	ctx, span := o11y.StartSpan(ctx, "rundef: defaults")
	defer o11y.End(span, &err)

	g := errgroup.Group{}
	g.Go(func() error { return MemLimit(ctx) })
	g.Go(func() error { return MaxProcs(ctx) })
	return g.Wait()
}
