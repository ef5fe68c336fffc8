// Command teamsctl watches and drives a Teams emulator service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"teamsemu/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cli.Execute(ctx)
}
