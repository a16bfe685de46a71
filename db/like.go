package db

import "strings"

// EscapeLike escapes the pattern metacharacters in s so it can be
// embedded in a LIKE expression as a literal. Pair it with ESCAPE '\'
// in the statement; MySQL and Postgres default to backslash but SQLite
// has no default escape character.
func EscapeLike(s string) string {
	return strings.NewReplacer(
		`\`, `\\`,
		"_", `\_`,
		"%", `\%`,
	).Replace(s)
}
