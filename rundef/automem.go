package rundef

import (
	"context"

	"github.com/KimMachineGun/automemlimit/memlimit"

	"github.com/pluvio/dbx/o11y"
)

// memRatio leaves the runtime some headroom below the container's hard
// memory limit.
const memRatio = 0.9

// MemLimit sets GOMEMLIMIT to memRatio of the available memory, read
// from the process cgroup when there is one, otherwise from the system
// total.
func MemLimit(ctx context.Context) (err error) {
	ctx, span := o11y.StartSpan(ctx, "rundef: mem limit")
	defer o11y.End(span, &err)

	limit, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(memRatio),
		memlimit.WithProvider(
			memlimit.ApplyFallback(
				memlimit.FromCgroup,
				memlimit.FromSystem,
			),
		),
	)
	if err != nil {
		return err
	}
	span.AddField("limit", limit)
	return nil
}
