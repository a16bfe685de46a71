/*
Package system manages the startup, running, metrics and shutdown of a
service.

Most services run several things in the background: HTTP servers, the
admin health check API, database pools, worker loops. They also need to
shut down cleanly when told to, and services behind a load balancer
should keep serving for a short drain period first. This package rolls
all of that into one runtime: register services, health checks, metric
producers and cleanups, then Run.

See the example service for canonical usage.
*/
package system
