package o11y

import (
	"context"
	"errors"
	"fmt"
)

// errWarning is the sentinel that warning errors match via errors.Is.
var errWarning = errors.New("warning")

type warning struct {
	warn string
}

func (w *warning) Error() string {
	return w.warn
}

// Is makes any warning match the errWarning sentinel.
func (w *warning) Is(target error) bool {
	return target == errWarning
}

// NewWarning returns an error that the o11y system records as a warning
// rather than an error. Use it for expected failure modes that operators
// should not be paged for, such as a lookup finding nothing.
func NewWarning(warn string) error {
	return &warning{warn: warn}
}

// Warningf is NewWarning with formatting.
func Warningf(format string, args ...any) error {
	return NewWarning(fmt.Sprintf(format, args...))
}

// IsWarning reports whether any error in err's chain is a warning.
func IsWarning(err error) bool {
	return errors.Is(err, errWarning)
}

// AllWarning reports whether every non-nil error in errs is a warning.
// It returns false if errs contains no errors at all.
func AllWarning(errs ...error) bool {
	seen := false
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !IsWarning(err) {
			return false
		}
		seen = true
	}
	return seen
}

// DontErrorTrace reports whether err should not mark a trace as errored:
// warnings and context cancellation.
func DontErrorTrace(err error) bool {
	return IsWarning(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
