package main

import (
	"github.com/aptoseidon/aptoseidon/internal/cmd"
	"github.com/aptoseidon/aptoseidon/internal/server/handlers"
)

// Version information set via ldflags during build
// Example: go build -ldflags="-X main.version=0.4.0 -X main.commit=abc123" ./cmd/aptoseidon
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		cmd.ExitWithCodeStderr(cmd.ExitCodeFor(err), "Command execution failed", err)
	}
}
