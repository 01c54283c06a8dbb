package main

import (
	"context"

	"github.com/urfave/cli/v2"
)

func refreshCommand() *cli.Command {
	cmd := &cli.Command{}
	cmd.Name = "refresh"
	cmd.Usage = "Fetch and set the image of the day once"
	cmd.Before = beforeFunc

	cmd.Action = refreshAction

	return cmd
}

func refreshAction(c *cli.Context) error {
	a := newApp()
	defer a.close()

	if err := a.refresher.Refresh(context.Background()); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}
