// Package testcontext provides a context for tests that carries a
// working o11y provider, so test runs produce readable span logs.
package testcontext

import (
	"context"

	"github.com/pluvio/dbx/o11y"
	"github.com/pluvio/dbx/o11y/honeyio"
)

// ctx is a package level singleton so every test shares one provider
// rather than racing to construct them.
var ctx = newContext()

// Background returns a context for use in tests which contains a
// working o11y, so you get logs.
func Background() context.Context {
	return ctx
}

func newContext() context.Context {
	provider := honeyio.New(honeyio.Config{
		Format: "colour",
	})
	return o11y.WithProvider(context.Background(), provider)
}
