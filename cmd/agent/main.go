// Package main is the entry point for the context agent.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/easeaico/context-agent/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.RootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
