// Package main is the entry point for the statcast-harvester CLI.
package main

import (
	"os"

	"github.com/statforge/statcast-harvester/cmd/statcast-harvester/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
