package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/pluvio/dbx/o11y"
	"github.com/pluvio/dbx/sqltpl"
	"github.com/pluvio/dbx/value"
)

// The CRUD surface is package level because methods cannot carry type
// parameters. Every operation routes through the ambient transaction
// scope, rebinds ? placeholders to the engine's native form, and maps
// driver failures through the engine adapter.

// Get runs query and decodes the first row into T. Zero rows is not an
// error: the caller gets (nil, nil).
func Get[T any](ctx context.Context, p *Pool, query string, params ...value.Param) (out *T, err error) {
	ctx, span := p.span(ctx, "get")
	defer o11y.End(span, &err)

	items, err := selectRows[T](ctx, p, "get", query, params, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// List runs query and decodes every row into a T. No matches give an
// empty, non-nil slice.
func List[T any](ctx context.Context, p *Pool, query string, params ...value.Param) (items []T, err error) {
	ctx, span := p.span(ctx, "list")
	defer o11y.End(span, &err)

	return selectRows[T](ctx, p, "list", query, params, 0)
}

// Create runs a row-returning insert (INSERT ... RETURNING style) and
// decodes the returned row. An insert that returns no row is an error,
// unlike Get.
func Create[T any](ctx context.Context, p *Pool, query string, params ...value.Param) (out *T, err error) {
	ctx, span := p.span(ctx, "create")
	defer o11y.End(span, &err)

	items, err := selectRows[T](ctx, p, "create", query, params, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &ExecutionError{Op: "create", Err: errors.New("no row returned")}
	}
	return &items[0], nil
}

// BatchCreate runs Create once per parameter set, in order, stopping at
// the first failure. The sets are not atomic unless the caller holds
// them inside one scope transaction.
func BatchCreate[T any](ctx context.Context, p *Pool, query string, paramSets [][]value.Param) (items []T, err error) {
	ctx, span := p.span(ctx, "batch-create")
	defer o11y.End(span, &err)
	span.AddRawField("db.batch_size", len(paramSets))

	items = make([]T, 0, len(paramSets))
	for i, params := range paramSets {
		item, err := Create[T](ctx, p, query, params...)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		items = append(items, *item)
	}
	return items, nil
}

// Update executes a statement and returns the affected row count.
// Touching zero rows is a valid outcome, not an error.
func Update(ctx context.Context, p *Pool, query string, params ...value.Param) (n int64, err error) {
	ctx, span := p.span(ctx, "update")
	defer o11y.End(span, &err)

	return execStatement(ctx, p, "update", query, params)
}

// Delete is Update under a name that reads better at delete call sites.
func Delete(ctx context.Context, p *Pool, query string, params ...value.Param) (n int64, err error) {
	ctx, span := p.span(ctx, "delete")
	defer o11y.End(span, &err)

	return execStatement(ctx, p, "delete", query, params)
}

// Exec passes a statement through verbatim: no parameters, no rebind,
// no decode. It is the one operation an unrecognized-engine pool may
// run, provided the pool was registered with a caller-owned handle.
func Exec(ctx context.Context, p *Pool, query string) (n int64, err error) {
	ctx, span := p.span(ctx, "exec")
	defer o11y.End(span, &err)

	if p.db == nil {
		return 0, unsupportedKind(p.kind)
	}
	q, release := p.querier(ctx)
	defer release()
	res, err := q.ExecContext(ctx, query)
	if err != nil {
		return 0, &ExecutionError{Op: "exec", Err: p.ad.mapError(err)}
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, &ExecutionError{Op: "exec", Err: p.ad.mapError(err)}
	}
	return n, nil
}

// Query renders the named template against param and lists the results.
// The template's ? placeholders are rebound to the engine's native form
// before execution.
func Query[T any](ctx context.Context, p *Pool, name, content string, param any) (items []T, err error) {
	ctx, span := p.span(ctx, "query")
	defer o11y.End(span, &err)
	span.AddRawField("db.query_name", name)

	q, params, err := renderTemplate(name, content, param)
	if err != nil {
		return nil, err
	}
	return selectRows[T](ctx, p, "query", q, params, 0)
}

// QueryOne is Query for a single optional row, with Get's zero-row
// behavior.
func QueryOne[T any](ctx context.Context, p *Pool, name, content string, param any) (out *T, err error) {
	ctx, span := p.span(ctx, "query-one")
	defer o11y.End(span, &err)
	span.AddRawField("db.query_name", name)

	q, params, err := renderTemplate(name, content, param)
	if err != nil {
		return nil, err
	}
	items, err := selectRows[T](ctx, p, "query-one", q, params, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func renderTemplate(name, content string, param any) (string, []value.Param, error) {
	v, err := value.ToValue(param)
	if err != nil {
		return "", nil, err
	}
	return sqltpl.Render(name, content, v)
}

func selectRows[T any](ctx context.Context, p *Pool, op, query string, params []value.Param, limit int) ([]T, error) {
	if !p.kind.Recognized() || p.db == nil {
		return nil, unsupportedKind(p.kind)
	}
	args, err := p.bindArgs(params)
	if err != nil {
		return nil, err
	}

	q, release := p.querier(ctx)
	defer release()
	rows, err := q.QueryContext(ctx, p.ad.rebind(query), args...)
	if err != nil {
		return nil, &ExecutionError{Op: op, Err: p.ad.mapError(err)}
	}
	defer func() {
		_ = rows.Close()
	}()

	r, err := newRowReader(rows)
	if err != nil {
		return nil, &ExecutionError{Op: op, Err: p.ad.mapError(err)}
	}
	items := []T{}
	for rows.Next() {
		if err := r.Scan(rows); err != nil {
			return nil, &ExecutionError{Op: op, Err: p.ad.mapError(err)}
		}
		m, err := rowToMap(r, p.ad)
		if err != nil {
			return nil, &DeserializationError{Target: typeName[T](), Err: err}
		}
		item, err := decodeRow[T](m)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecutionError{Op: op, Err: p.ad.mapError(err)}
	}
	return items, nil
}

func execStatement(ctx context.Context, p *Pool, op, query string, params []value.Param) (int64, error) {
	if !p.kind.Recognized() || p.db == nil {
		return 0, unsupportedKind(p.kind)
	}
	args, err := p.bindArgs(params)
	if err != nil {
		return 0, err
	}

	q, release := p.querier(ctx)
	defer release()
	res, err := q.ExecContext(ctx, p.ad.rebind(query), args...)
	if err != nil {
		return 0, &ExecutionError{Op: op, Err: p.ad.mapError(err)}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &ExecutionError{Op: op, Err: p.ad.mapError(err)}
	}
	return n, nil
}

func (p *Pool) bindArgs(params []value.Param) ([]any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	args := make([]any, len(params))
	for i, param := range params {
		v, err := p.ad.bindValue(param)
		if err != nil {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("cannot bind parameter %d", i+1), Err: err}
		}
		args[i] = v
	}
	return args, nil
}
