/*
Package compiler builds service binaries for acceptance tests.

Binaries land in a shared temporary directory which should be removed
at the end of the test run with Cleanup.
*/
package compiler
