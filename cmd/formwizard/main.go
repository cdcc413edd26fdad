package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-formwizard/internal/cli"
	"github.com/goliatone/go-formwizard/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, os.Args[1:]); err != nil {
		logging.NewLogger(os.Stderr, logging.ParseLevel("info")).Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}
