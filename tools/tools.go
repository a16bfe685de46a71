//go:build tools

// Package tools pins the dev tool versions the repo scripts install.
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "github.com/gwatts/rootcerts/gencerts"
	_ "github.com/rinchsan/gosimports/cmd/gosimports"
	_ "gotest.tools/gotestsum"
)
