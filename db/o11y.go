package db

import (
	"context"
	"fmt"

	"github.com/pluvio/dbx/o11y"
)

// Recommendations for naming here are taken from
// https://github.com/open-telemetry/opentelemetry-specification/blob/7ae3d066c95c716ef3086228ef955d84ba03ac88/specification/trace/semantic_conventions/database.md

func (p *Pool) span(ctx context.Context, op string) (context.Context, o11y.Span) {
	ctx, span := o11y.StartSpan(ctx, fmt.Sprintf("db: %s.%s", p.name, op))
	span.RecordMetric(o11y.Timing("db.query", "db.system", "db.pool", "db.op", "result"))
	span.AddRawField("db.system", string(p.kind))
	span.AddRawField("db.pool", p.name)
	span.AddRawField("db.op", op)
	return ctx, span
}
