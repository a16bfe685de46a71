// Package secret keeps sensitive config values out of logs and traces.
package secret

import "strconv"

// String is a string that redacts itself in formatted output. Use it for
// config fields that hold credentials, such as database URLs.
//
// The %s, %v and %#v verbs all print REDACTED, as does JSON marshalling.
// Only an explicit Raw call reveals the value.
type String string

const redacted = "REDACTED"

// Raw returns the sensitive value.
func (s String) Raw() string {
	return string(s)
}

func (s String) String() string   { return redacted }
func (s String) GoString() string { return redacted }

func (s String) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(redacted)), nil
}
