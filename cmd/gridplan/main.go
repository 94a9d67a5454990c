// Package main is the entry point for the gridplan CLI.
package main

import (
	"os"

	"github.com/gridplan-labs/gridplan/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
