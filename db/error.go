package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/pluvio/dbx/o11y"
)

var (
	ErrNop         = o11y.NewWarning("no update or results")
	ErrConstrained = errors.New("violates constraints")
	ErrException   = errors.New("exception raised")
	ErrCanceled    = o11y.NewWarning("statement canceled")
	ErrBadConn     = o11y.NewWarning("bad connection")
)

// ConfigurationError reports invalid wiring: unknown pool names, duplicate
// registrations, malformed URLs, or operations an engine does not support.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ExecutionError wraps a driver failure with the operation that hit it.
// The wrapped error may be one of the package sentinels after engine
// mapping, so errors.Is(err, ErrNop) and friends keep working.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// TransactionStateError reports transaction misuse: no scope active, no
// transaction to commit, or a second transaction started on one pool.
type TransactionStateError struct {
	Msg string
}

func (e *TransactionStateError) Error() string {
	return e.Msg
}

// DeserializationError reports a row that could not be decoded into the
// caller's type.
type DeserializationError struct {
	Target string
	Field  string
	Err    error
}

func (e *DeserializationError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("cannot decode row into %s: field %s: %s", e.Target, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("cannot decode row into %s: no column for field %s", e.Target, e.Field)
	default:
		return fmt.Sprintf("cannot decode row into %s: %s", e.Target, e.Err)
	}
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

func unsupportedKind(k Kind) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf("unsupported database type %q", string(k))}
}

// mapCommonError maps driver-independent failures. If a mapping was made
// the returned bool is true, otherwise the original error comes back and
// the bool is false.
func mapCommonError(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, driver.ErrBadConn):
		return true, ErrBadConn
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return true, fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return false, err
}
