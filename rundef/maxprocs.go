package rundef

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/pluvio/dbx/o11y"
)

// MaxProcs caps GOMAXPROCS at the container's CPU quota, never going
// below one.
func MaxProcs(ctx context.Context) (err error) {
	ctx, span := o11y.StartSpan(ctx, "rundef: max procs")
	defer o11y.End(span, &err)

	logger := func(format string, args ...interface{}) {
		// Prefixed so the lines can be sampled as a group.
		o11y.Log(ctx, fmt.Sprintf("rundef: "+format, args...))
	}
	if _, err := maxprocs.Set(maxprocs.Min(1), maxprocs.Logger(logger)); err != nil {
		return err
	}

	span.AddField("limit", runtime.GOMAXPROCS(0))
	return nil
}
