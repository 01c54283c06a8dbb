package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func runCommand() *cli.Command {
	cmd := &cli.Command{}
	cmd.Name = "run"
	cmd.Usage = "Set the image of the day now and again every RefreshInterval"
	cmd.Description = "Runs until interrupted. This is what launch on startup " +
		"registers."
	cmd.Before = beforeFunc

	cmd.Action = runAction

	return cmd
}

func runAction(c *cli.Context) error {
	a := newApp()
	defer a.close()

	a.applyStartup()

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Refreshing every %s\n", a.refresher.Interval())
	a.refresher.Run(ctx)
	return nil
}
