// Package main provides the entry point for the aceflow CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aceflow-ai/aceflow/internal/cli"
	"github.com/aceflow-ai/aceflow/internal/signal"
)

// Build information set via ldflags at build time.
var (
	version = "dev"     //nolint:gochecknoglobals // set by ldflags
	commit  = "none"    //nolint:gochecknoglobals // set by ldflags
	date    = "unknown" //nolint:gochecknoglobals // set by ldflags
)

func main() {
	h := signal.NewHandler(context.Background())
	defer h.Stop()

	err := cli.Execute(h.Context(), cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})

	cli.CloseLogFile()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCodeForError(err))
	}
}
