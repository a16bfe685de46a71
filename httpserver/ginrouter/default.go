// Package ginrouter builds gin engines with the standard middleware every
// server in a service should carry.
package ginrouter

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/pluvio/dbx/o11y"
	"github.com/pluvio/dbx/o11y/wrappers/o11ygin"
)

var once sync.Once

// Default returns a gin engine wired for tracing, panic recovery and
// client cancellation detection. The o11y provider is taken from ctx.
// No query params are traced, pass an allow list to o11ygin.Middleware
// directly if some are wanted.
func Default(ctx context.Context, serverName string) *gin.Engine {
	once.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	provider := o11y.FromContext(ctx)

	r := gin.New()
	r.Use(
		o11ygin.Middleware(provider, serverName, nil),
		o11ygin.Recovery(),
		o11ygin.ClientCancelled(),
	)

	// Keep route params percent-encoded until the handler asks for them.
	r.UseRawPath = true

	return r
}
