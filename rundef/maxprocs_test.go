package rundef

import (
	"runtime"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/pluvio/dbx/testing/testcontext"
)

func TestMaxProcs(t *testing.T) {
	orig := runtime.GOMAXPROCS(0)
	t.Cleanup(func() {
		runtime.GOMAXPROCS(orig)
	})

	// Checking the exact value it picks would mean reimplementing the
	// library's quota lookup, so just exercise the call and the floor.
	assert.NilError(t, MaxProcs(testcontext.Background()))
	assert.Check(t, runtime.GOMAXPROCS(0) >= 1)
}
