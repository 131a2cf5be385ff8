// Package main provides the repldoc CLI application entry point.
// repldoc verifies that the Nix REPL transcripts and expressions embedded in
// markdown documentation still evaluate as documented.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"repldoc/cmd/repldoc/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.NewApp().Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
