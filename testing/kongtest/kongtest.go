// Package kongtest renders the help output of a kong CLI struct so it can
// be asserted against a golden file.
package kongtest

import (
	"bytes"
	"testing"

	"github.com/alecthomas/kong"
	"gotest.tools/v3/assert"
)

// Help parses --help against cli and returns everything written to the
// terminal. The application is always named test-app, so golden files do
// not depend on the name of the test binary.
func Help(t testing.TB, cli any) string {
	t.Helper()

	buf := bytes.NewBuffer(nil)
	exited := -1
	app, err := kong.New(cli,
		kong.Name("test-app"),
		kong.Writers(buf, buf),
		kong.Exit(func(code int) {
			exited = code
		}),
	)
	assert.NilError(t, err)

	_, err = app.Parse([]string{"--help"})
	assert.NilError(t, err)
	assert.Check(t, exited == 0)

	return buf.String()
}
