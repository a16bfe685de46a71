package healthcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellofresh/health-go/v4"

	"github.com/pluvio/dbx/httpserver/ginrouter"
	"github.com/pluvio/dbx/system"
)

const checkTimeout = 5 * time.Second

// API serves the kubernetes style liveness and readiness probes and
// the pprof handlers.
type API struct {
	router *gin.Engine
}

func New(ctx context.Context, checked []system.HealthChecker) (*API, error) {
	r := ginrouter.Default(ctx, "admin")

	live, err := buildHealth(checked, func(c system.HealthChecker) (string, health.CheckFunc) {
		name, _, live := c.HealthChecks()
		return name, live
	})
	if err != nil {
		return nil, fmt.Errorf("could not build liveness checks: %w", err)
	}

	ready, err := buildHealth(checked, func(c system.HealthChecker) (string, health.CheckFunc) {
		name, ready, _ := c.HealthChecks()
		return name, ready
	})
	if err != nil {
		return nil, fmt.Errorf("could not build readiness checks: %w", err)
	}

	r.GET("/live", gin.WrapH(live.Handler()))
	r.GET("/ready", gin.WrapH(ready.Handler()))

	// pprof.Index serves the named runtime profiles itself, so the catch-all
	// route covers heap, goroutine and friends, and 404s unknown names.
	debug := r.Group("/debug/pprof")
	debug.GET("", gin.WrapF(pprof.Index))
	debug.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	debug.GET("/profile", gin.WrapF(pprof.Profile))
	debug.GET("/symbol", gin.WrapF(pprof.Symbol))
	debug.GET("/trace", gin.WrapF(pprof.Trace))
	debug.GET("/:profile", gin.WrapF(pprof.Index))

	return &API{router: r}, nil
}

func (a *API) Handler() http.Handler {
	return a.router
}

// buildHealth registers the check pick selects from each checker.
// Checkers may return a nil check to opt out of one of the probes.
func buildHealth(checked []system.HealthChecker, pick func(system.HealthChecker) (string, health.CheckFunc)) (*health.Health, error) {
	h, err := health.New()
	if err != nil {
		return nil, err
	}

	for _, c := range checked {
		name, check := pick(c)
		if check == nil {
			continue
		}
		err := h.Register(health.Config{
			Name:    name,
			Timeout: checkTimeout,
			Check:   check,
		})
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}
