// Package main is the entry point for the tilesearch CLI.
//
// Usage:
//
//	tilesearch [flags] <command> [args]
//
// Commands:
//
//	serve   - Run the HTTP API
//	search  - Run one similarity search for a point and print the matches
//	sql     - Print the query a search would submit
package main

import (
	"fmt"
	"os"

	"github.com/hubenschmidt/go-tilesearch/cmd/tilesearch/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
