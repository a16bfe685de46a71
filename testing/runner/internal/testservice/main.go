package main

import (
	"errors"
	"net/http"
	"os"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"

	"github.com/pluvio/dbx/httpserver"
	"github.com/pluvio/dbx/httpserver/ginrouter"
	"github.com/pluvio/dbx/httpserver/healthcheck"
	"github.com/pluvio/dbx/system"
	"github.com/pluvio/dbx/termination"
	"github.com/pluvio/dbx/testing/testcontext"
)

// testservice is the binary the runner tests launch. It reports its
// environment back over HTTP so tests can confirm what was passed in.
type cli struct {
	AdminOnly bool `name:"admin-only" env:"ADMIN_ONLY" default:"false" help:"Serve only the admin endpoints."`
}

func main() {
	c := &cli{}
	kong.Parse(c)

	if err := run(c.AdminOnly); err != nil {
		panic(err)
	}
}

func run(adminOnly bool) error {
	ctx := testcontext.Background()
	sys := system.New()

	if !adminOnly {
		r := ginrouter.Default(ctx, "testservice")
		r.GET("/api/env", func(c *gin.Context) {
			c.JSON(http.StatusOK, os.Environ())
		})

		_, err := httpserver.Load(ctx, httpserver.Config{
			Name:    "testservice-api",
			Addr:    "localhost:0",
			Handler: r,
		}, sys)
		if err != nil {
			return err
		}
	}

	if _, err := healthcheck.Load(ctx, "localhost:0", sys); err != nil {
		return err
	}

	err := sys.Run(ctx, 0)
	if err != nil && !errors.Is(err, termination.ErrTerminated) {
		return err
	}
	return nil
}
