// Package main is the entry point for the prosemd-lsp language server.
package main

import (
	"errors"
	"fmt"
	"os"

	_ "github.com/tliron/commonlog/simple"

	"github.com/kitten/prosemd-lsp/internal/cli"
)

// Version information is set during the build process using ldflags.
var (
	Version = "(dev) v0.0.0"
	Commit  = "none"
	Date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := cli.NewRootCommand(cli.BuildInfo{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
	})

	if err := rootCmd.Execute(); err != nil {
		// ErrSuggestionsFound only signals the exit code.
		if !errors.Is(err, cli.ErrSuggestionsFound) {
			fmt.Fprintf(os.Stderr, "prosemd-lsp: %v\n", err)
		}
		return 1
	}
	return 0
}
