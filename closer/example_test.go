package closer_test

import (
	"fmt"
	"io"
	"os"

	"github.com/pluvio/dbx/closer"
)

func ExampleErrorHandler() {
	path, err := write("select 1")
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = os.Remove(path) }()

	query, err := read(path)
	if err != nil {
		os.Exit(1)
	}
	fmt.Println(query)

	// output: select 1
}

// read returns the file contents. The named error return lets the
// deferred close surface a failure without clobbering an earlier one.
func read(path string) (_ string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer closer.ErrorHandler(f, &err)

	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func write(query string) (string, error) {
	f, err := os.CreateTemp("", "query-*.sql")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(query); err != nil {
		return "", err
	}
	return f.Name(), f.Close()
}
