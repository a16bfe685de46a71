/*
Package runner launches real service binaries from acceptance tests,
discovering their ports from the startup logs and waiting for the
readiness probe before handing control back to the test.

Exercising the exact binary that ships, rather than a test-only
assembly of its parts, is the point: the closer the test process is to
production, the more the test is worth.

Stopping a runner sends the process an INT signal, so services are
expected to drain in-flight work and exit cleanly when interrupted.
*/
package runner
