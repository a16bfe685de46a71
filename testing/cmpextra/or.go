// Package cmpextra combines gotest.tools comparisons.
package cmpextra

import (
	"fmt"
	"strings"

	"gotest.tools/v3/assert/cmp"
)

// Or succeeds as soon as one of the comparisons succeeds. On failure
// the result lists every individual failure message. Fewer than two
// comparisons is an error, use the comparison directly instead.
func Or(comparisons ...cmp.Comparison) cmp.Comparison {
	return func() cmp.Result {
		if len(comparisons) < 2 {
			return cmp.ResultFailure("Or needs at least two comparisons")
		}

		b := strings.Builder{}
		b.WriteString("no comparisons passed:\n")
		for _, compare := range comparisons {
			res := compare()
			if res.Success() {
				return res
			}
			fmt.Fprintf(&b, "%s\n", failureMessage(res))
		}
		return cmp.ResultFailure(b.String())
	}
}

type messager interface {
	FailureMessage() string
}

func failureMessage(res cmp.Result) string {
	if m, ok := res.(messager); ok {
		return m.FailureMessage()
	}
	return fmt.Sprintf("%v", res)
}
