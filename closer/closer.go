// Package closer keeps errors raised by deferred Close calls.
package closer

import "io"

// ErrorHandler closes c and stores the result in *in, unless *in
// already holds an error. Use it with a named error return:
//
//	defer closer.ErrorHandler(f, &err)
func ErrorHandler(c io.Closer, in *error) {
	if cerr := c.Close(); *in == nil {
		*in = cerr
	}
}
