// Package o11ygin instruments gin handlers with one span per request.
package o11ygin

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pluvio/dbx/o11y"
)

const contextCancelledKey = "o11y-context-cancelled-key"

// statusClientClosed is the nginx convention for a client that went
// away before the response was written.
const statusClientClosed = 499

// Middleware returns the tracing middleware. Every request gets a span
// named after the method and matched route, and a timing metric
// tagged with the route and status. serverName separates the servers
// one process may run. queryParams lists the query keys safe to
// record, nil records none.
func Middleware(provider o11y.Provider, serverName string, queryParams map[string]struct{}) gin.HandlerFunc {
	metrics := provider.MetricsProvider()
	return func(c *gin.Context) {
		start := time.Now()

		route := c.FullPath()
		if route == "" {
			route = "not-found"
		}

		ctx := o11y.WithProvider(c.Request.Context(), provider)
		ctx, span := o11y.StartSpan(ctx, c.Request.Method+" "+route)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		// The route placeholders and their values for this request.
		for _, param := range c.Params {
			span.AddRawField("handler.vars."+param.Key, param.Value)
		}
		recordQuery(span, queryParams, c.Request.URL.Query())

		// Expose the matched route so clients and proxies can aggregate on it.
		c.Header("X-Route", route)

		span.AddRawField("meta.type", "http_server")
		span.AddRawField("http.server_name", serverName)
		span.AddRawField("http.route", route)
		span.AddRawField("http.client_ip", c.ClientIP())
		span.AddRawField("http.method", c.Request.Method)
		span.AddRawField("http.url", c.Request.URL.String())
		span.AddRawField("http.target", c.Request.URL.Path)
		span.AddRawField("http.host", c.Request.Host)
		span.AddRawField("http.user_agent", c.Request.UserAgent())
		span.AddRawField("http.request_content_length", c.Request.ContentLength)

		defer func() {
			status := c.Writer.Status()
			if c.GetBool(contextCancelledKey) {
				status = statusClientClosed
			}
			span.AddRawField("http.status_code", status)
			span.AddRawField("http.response_content_length", c.Writer.Size())

			if metrics == nil {
				return
			}
			_ = metrics.TimeInMilliseconds("handler",
				float64(time.Since(start).Nanoseconds())/float64(time.Millisecond),
				[]string{
					"http.server_name:" + serverName,
					"http.method:" + c.Request.Method,
					"http.route:" + route,
					"http.status_code:" + strconv.Itoa(status),
				},
				1,
			)
		}()

		c.Next()
	}
}

// recordQuery adds the allowed subset of the query to the span.
func recordQuery(span o11y.Span, allowed map[string]struct{}, query url.Values) {
	for key, value := range query {
		if _, ok := allowed[key]; !ok {
			continue
		}
		switch len(value) {
		case 0:
			span.AddRawField("handler.query."+key, nil)
		case 1:
			span.AddRawField("handler.query."+key, value[0])
		default:
			span.AddRawField("handler.query."+key, value)
		}
	}
}

// ClientCancelled marks requests whose context was cancelled before
// the handler finished, so Middleware reports statusClientClosed
// instead of whatever status the aborted handler managed to write. A
// response that was already written keeps its status. For requests
// that complete it records any errors gin collected, such as render
// failures.
func ClientCancelled() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		defer func() {
			if errors.Is(ctx.Err(), context.Canceled) {
				c.Set(contextCancelledKey, true)
				return
			}
			if len(c.Errors) > 0 {
				o11y.AddField(ctx, "gin_internal_error", c.Errors)
			}
		}()
		c.Next()
	}
}

// Recovery recovers panics, records them on the request span and
// responds with a 500. Install it after Middleware so the span exists.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		c.AbortWithStatus(http.StatusInternalServerError)
		ctx := c.Request.Context()
		span := o11y.FromContext(ctx).GetSpan(ctx)

		// net/http aborts handlers with this sentinel when the other end
		// of the connection is lost, see golang.org/issue/28239. Record
		// it as a result rather than a panic.
		if abort, ok := err.(error); ok && errors.Is(abort, http.ErrAbortHandler) {
			o11y.AddResultToSpan(span, abort)
			return
		}

		_ = o11y.HandlePanic(ctx, span, err, c.Request)
	})
}
