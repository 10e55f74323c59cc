package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"appforge/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	conf := cli.NewCliConfig()
	conf.Context = ctx
	rc, _ := cli.Cli(os.Args[1:], conf)

	stop()
	os.Exit(rc)
}
