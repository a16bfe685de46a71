// Package types holds interfaces shared by the testing helpers.
package types

// TestingTB is the subset of testing.TB the helpers rely on. Taking an
// interface rather than the concrete type keeps the helpers usable
// under other runners that provide a compatible object.
type TestingTB interface {
	Cleanup(func())
	Fail()
	FailNow()
	Helper()
	Log(args ...interface{})
	Logf(format string, args ...interface{})
	Name() string
}
