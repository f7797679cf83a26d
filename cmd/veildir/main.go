// Package main provides the entry point for veildir.
//
// veildir manages a local directory-document cache and client state
// store: it reports cache freshness, sweeps expired documents, and
// gives raw access to the underlying key-value backend.
package main

import (
	"fmt"
	"os"

	"github.com/veildir/veildir-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
