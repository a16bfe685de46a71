// Package httpserver runs HTTP servers with connection gauge metrics,
// request timeouts and graceful shutdown on context cancellation.
package httpserver
