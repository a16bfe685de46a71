/*
Package healthcheck serves the admin API: liveness and readiness checks
aggregated from everything registered with the system, and the Go
runtime's standard pprof endpoints.
*/
package healthcheck
