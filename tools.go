//go:build tools

package tools

// Pins the mock generator version in go.mod. Run `go run
// github.com/vektra/mockery/v2` from the repository root to regenerate
// pkg/entry/mocks.
import (
	_ "github.com/vektra/mockery/v2"
)
