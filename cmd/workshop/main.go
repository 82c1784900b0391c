/*
Package main is the entry point for the workshop CLI.

Usage:

	workshop [command]

Available Commands:

	serve       Run the HTTP, WebSocket and MCP server
	generate    Generate prompt card variants for an idea
	optimize    Rewrite a saved card into a clearer prompt
	refine      Edit a saved card with a free-text instruction
	list        List saved prompt cards
	save        Save a hand-written prompt card
	delete      Remove a card from the library
	clear       Remove every card from the library
*/
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alanyang/prompt-workshop/internal/cli"
	"github.com/alanyang/prompt-workshop/internal/wire"
)

// Version information (set via ldflags during build)
var version = "dev"

func main() {
	// Interactive commands only surface warnings; serve installs its own JSON logger.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	wire.Version = version

	root := cli.NewRootCmd(cli.DefaultOpener)
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
