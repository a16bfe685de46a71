package sqltpl

import "fmt"

// SyntaxError reports malformed template content. It carries the cache
// name and the text near the failure.
type SyntaxError struct {
	Template string
	Detail   string
	Snippet  string
}

func (e *SyntaxError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("template %s: %s", e.Template, e.Detail)
	}
	return fmt.Sprintf("template %s: %s near %q", e.Template, e.Detail, e.Snippet)
}

// ResolveError reports an <include> that could not be spliced.
type ResolveError struct {
	Template string
	RefID    string
	Reason   string
}

func (e *ResolveError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("template %s: include %q: %s", e.Template, e.RefID, e.Reason)
	}
	return fmt.Sprintf("template %s: no template registered for refid %q", e.Template, e.RefID)
}
