package main

import (
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/golden"

	"github.com/pluvio/dbx/testing/kongtest"
)

// Keeps the cli surface under review, go test -update refreshes it.
func TestHelp(t *testing.T) {
	help := kongtest.Help(t, &cli{})
	assert.Check(t, golden.String(help, "help.txt"))
}
