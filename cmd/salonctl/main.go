package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"salonpro/cmd/salonctl/commands"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx, version, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", commands.Describe(err))
		stop()
		os.Exit(1)
	}
}
