package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pluvio/dbx/o11y"
	"github.com/pluvio/dbx/recontext"
)

// Scope is a unit of work whose transactions are tracked together. A
// scope holds at most one open transaction per pool, and statements run
// under the scope's context are routed onto those transactions.
type Scope struct {
	mu  sync.Mutex
	txs map[string]*scopedTx
}

// scopedTx serializes statements on a single transaction. A scope may be
// shared between goroutines but the database session underneath cannot
// interleave work, so each statement takes the entry lock for its
// duration.
type scopedTx struct {
	mu sync.Mutex
	tx *sqlx.Tx
}

type scopeCtxKey struct{}

// NewScope derives a context carrying a fresh Scope. Scopes do not
// nest: the new scope replaces any outer one for the subtree.
func NewScope(ctx context.Context) (context.Context, *Scope) {
	s := &Scope{txs: map[string]*scopedTx{}}
	return context.WithValue(ctx, scopeCtxKey{}, s), s
}

func scopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeCtxKey{}).(*Scope)
	return s, ok
}

const abandonedRollbackTimeout = 5 * time.Second

// WithScope runs fn inside a new scope and guarantees that any
// transaction fn leaves open is rolled back, whether fn returns an
// error, succeeds without committing, or panics.
func WithScope(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, scope := NewScope(ctx)
	defer scope.RollbackAbandoned(ctx)
	return fn(ctx)
}

// RollbackAbandoned drains the scope and rolls back anything still
// open. It detaches from the caller's cancellation first so that a dead
// request context cannot stop the cleanup. Safe to call on an empty or
// already drained scope.
func (s *Scope) RollbackAbandoned(ctx context.Context) {
	s.mu.Lock()
	abandoned := s.txs
	s.txs = map[string]*scopedTx{}
	s.mu.Unlock()
	if len(abandoned) == 0 {
		return
	}

	ctx, cancel := recontext.WithNewTimeout(ctx, abandonedRollbackTimeout)
	defer cancel()
	for name, e := range abandoned {
		e.mu.Lock()
		err := e.tx.Rollback()
		e.mu.Unlock()
		if errors.Is(err, sql.ErrTxDone) {
			// database/sql already rolled it back when the transaction's
			// context was cancelled.
			err = nil
		}
		if err != nil {
			o11y.LogError(ctx, "db: failed to roll back abandoned transaction", err,
				o11y.Field("db.pool", name))
			continue
		}
		o11y.Log(ctx, "db: rolled back abandoned transaction",
			o11y.Field("db.pool", name))
	}
}

// active returns the open transaction entry for name, or nil.
func (s *Scope) active(name string) *scopedTx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txs[name]
}

// add records a new transaction entry for name. It reports false if an
// entry already exists, in which case the caller keeps ownership of e.
func (s *Scope) add(name string, e *scopedTx) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[name]; ok {
		return false
	}
	s.txs[name] = e
	return true
}

// take removes and returns the transaction entry for name, or nil.
func (s *Scope) take(name string) *scopedTx {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.txs[name]
	delete(s.txs, name)
	return e
}

// StartTransaction begins a transaction on this pool and records it in
// the ambient scope. The transaction is bound to ctx, so cancelling ctx
// rolls it back. A scope can hold only one open transaction per pool.
func (p *Pool) StartTransaction(ctx context.Context) (err error) {
	ctx, span := p.span(ctx, "start-transaction")
	defer o11y.End(span, &err)

	if !p.kind.Recognized() {
		return unsupportedKind(p.kind)
	}
	scope, ok := scopeFromContext(ctx)
	if !ok {
		return &TransactionStateError{Msg: "transaction scope not active"}
	}
	if scope.active(p.name) != nil {
		return &TransactionStateError{Msg: fmt.Sprintf("transaction already active for pool %q", p.name)}
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return &ExecutionError{Op: "start transaction", Err: p.ad.mapError(err)}
	}
	if !scope.add(p.name, &scopedTx{tx: tx}) {
		// Lost a race with a concurrent start on the same scope.
		_ = tx.Rollback()
		return &TransactionStateError{Msg: fmt.Sprintf("transaction already active for pool %q", p.name)}
	}
	return nil
}

// Commit commits the scope's transaction for this pool. The transaction
// is removed from the scope whether or not the commit succeeds; the
// driver has released the connection either way.
func (p *Pool) Commit(ctx context.Context) (err error) {
	ctx, span := p.span(ctx, "commit")
	defer o11y.End(span, &err)

	e, err := p.takeScoped(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.tx.Commit(); err != nil {
		return &ExecutionError{Op: "commit", Err: p.ad.mapError(err)}
	}
	return nil
}

// Rollback rolls back the scope's transaction for this pool and removes
// it from the scope.
func (p *Pool) Rollback(ctx context.Context) (err error) {
	ctx, span := p.span(ctx, "rollback")
	defer o11y.End(span, &err)

	e, err := p.takeScoped(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.tx.Rollback(); err != nil {
		return &ExecutionError{Op: "rollback", Err: p.ad.mapError(err)}
	}
	return nil
}

func (p *Pool) takeScoped(ctx context.Context) (*scopedTx, error) {
	scope, ok := scopeFromContext(ctx)
	if !ok {
		return nil, &TransactionStateError{Msg: "transaction scope not active"}
	}
	e := scope.take(p.name)
	if e == nil {
		return nil, &TransactionStateError{Msg: fmt.Sprintf("no active transaction for pool %q", p.name)}
	}
	return e, nil
}

// querier resolves where a statement should run: on the scope's open
// transaction for this pool when there is one, otherwise directly on
// the pool. The returned release func must be called when the statement
// is done.
func (p *Pool) querier(ctx context.Context) (sqlx.ExtContext, func()) {
	if scope, ok := scopeFromContext(ctx); ok {
		if e := scope.active(p.name); e != nil {
			e.mu.Lock()
			return e.tx, e.mu.Unlock
		}
	}
	return p.db, func() {}
}
