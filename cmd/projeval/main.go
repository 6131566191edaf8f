package main

import (
	"os"

	"github.com/wonny/projeval/cmd/projeval/commands"
)

// main is the entry point for the projeval CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/projeval [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
