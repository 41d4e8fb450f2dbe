// Package main is the entry point for launchseq.
package main

import (
	"fmt"
	"os"

	"launchseq/cmd"
)

// run executes the command line.
func run() error {
	return cmd.NewRootCmd().Execute()
}

// main is the entry point.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
