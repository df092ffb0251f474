// Package main is the entry point for the catalog sync server and CLI.
package main

import (
	"os"

	"github.com/pokemnky/catalog-sync/cmd/catalog-sync/app"
)

func main() {
	// Logs go to stderr so stdout stays clean for commands that print data
	app.SetupLogging(os.Stderr, app.LogLevel(""), nil)

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
