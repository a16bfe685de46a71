package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgconn"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/pluvio/dbx/o11y"
)

func TestErrNop_StaysWarningWhenWrapped(t *testing.T) {
	var err error

	err = ErrNop
	assert.Assert(t, o11y.IsWarning(err))

	err = fmt.Errorf("some other error: %w", err)
	assert.Assert(t, o11y.IsWarning(err))

	err = fmt.Errorf("another error: %w", err)
	assert.Assert(t, errors.Is(err, ErrNop))
	assert.Assert(t, o11y.IsWarning(err))
}

func TestMapError_Common(t *testing.T) {
	for _, ad := range adapters {
		t.Run(string(ad.kind()), func(t *testing.T) {
			assert.Check(t, cmp.Nil(ad.mapError(nil)))

			err := ad.mapError(fmt.Errorf("query: %w", context.Canceled))
			assert.Check(t, errors.Is(err, ErrCanceled))
			assert.Check(t, o11y.IsWarning(err))

			err = ad.mapError(fmt.Errorf("query: %w", context.DeadlineExceeded))
			assert.Check(t, errors.Is(err, ErrCanceled))

			plain := errors.New("nothing special")
			assert.Check(t, cmp.Equal(ad.mapError(plain), error(plain)))
		})
	}
}

func TestMapError_Postgres(t *testing.T) {
	ad := adapters[Postgres]

	tests := []struct {
		code string
		want error
	}{
		{code: "23503", want: ErrConstrained},
		{code: "23505", want: ErrNop},
		{code: "P0001", want: ErrException},
		{code: "57014", want: ErrCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			pgErr := &pgconn.PgError{
				Code:    tt.code,
				Message: "message",
				Detail:  "detail",
			}
			err := ad.mapError(fmt.Errorf("exec: %w", pgErr))
			assert.Check(t, errors.Is(err, tt.want), "got: %v", err)
			assert.Check(t, cmp.ErrorContains(err, "message"))
		})
	}

	t.Run("unmapped code passes through", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "42601", Message: "syntax error"}
		err := ad.mapError(pgErr)
		assert.Check(t, !errors.Is(err, ErrNop))
		assert.Check(t, !errors.Is(err, ErrConstrained))
		outErr := &pgconn.PgError{}
		assert.Check(t, errors.As(err, &outErr))
	})
}

func TestMapError_MySQL(t *testing.T) {
	ad := adapters[MySQL]

	tests := []struct {
		number uint16
		want   error
	}{
		{number: 1451, want: ErrConstrained},
		{number: 1452, want: ErrConstrained},
		{number: 1062, want: ErrNop},
		{number: 1644, want: ErrException},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.number), func(t *testing.T) {
			myErr := &mysql.MySQLError{Number: tt.number, Message: "message"}
			err := ad.mapError(fmt.Errorf("exec: %w", myErr))
			assert.Check(t, errors.Is(err, tt.want), "got: %v", err)
		})
	}

	t.Run("unmapped number passes through", func(t *testing.T) {
		myErr := &mysql.MySQLError{Number: 1146, Message: "no such table"}
		err := ad.mapError(myErr)
		assert.Check(t, !errors.Is(err, ErrNop))
		assert.Check(t, !errors.Is(err, ErrConstrained))
	})
}

func TestErrorTypes_Messages(t *testing.T) {
	cfgErr := &ConfigurationError{Msg: "no pool named \"x\""}
	assert.Check(t, cmp.Error(cfgErr, `no pool named "x"`))

	wrapped := &ConfigurationError{Msg: "cannot parse database url", Err: errors.New("bad scheme")}
	assert.Check(t, cmp.Error(wrapped, "cannot parse database url: bad scheme"))
	assert.Check(t, cmp.ErrorContains(errors.Unwrap(wrapped), "bad scheme"))

	execErr := &ExecutionError{Op: "create", Err: errors.New("no row returned")}
	assert.Check(t, cmp.Error(execErr, "create: no row returned"))

	txErr := &TransactionStateError{Msg: "no active transaction for pool \"default\""}
	assert.Check(t, cmp.Error(txErr, `no active transaction for pool "default"`))

	desErr := &DeserializationError{Target: "db.user", Field: "name"}
	assert.Check(t, cmp.Error(desErr, "cannot decode row into db.user: no column for field name"))
}
