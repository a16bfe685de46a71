/*
Package worker runs a repeating work loop with observability and
back-off while no work is found.

The system runtime uses it for the metrics reporting loop, and services
use it for recurring jobs such as purging expired rows.
*/
package worker
