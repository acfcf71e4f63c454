// Package main is the entry point for the portalctl CLI
package main

import (
	"os"

	"github.com/jrsteele09/member-portal/cmd/portalctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
