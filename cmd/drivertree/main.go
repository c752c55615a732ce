// Package main provides the drivertree CLI.
package main

import (
	"os"

	"github.com/driverstack-labs/drivertree/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
