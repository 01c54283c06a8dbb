package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

func saveCommand() *cli.Command {
	cmd := &cli.Command{}
	cmd.Name = "save"
	cmd.Usage = "Download the image of the day without setting it as the wallpaper"
	cmd.Description = "Saves to the pictures folder by default. PATH may be a " +
		"directory or a file name."
	cmd.ArgsUsage = "[PATH]"
	cmd.Before = beforeFunc

	cmd.Action = saveAction

	return cmd
}

func saveAction(c *cli.Context) error {
	a := newApp()
	defer a.close()

	if _, err := a.refresher.Download(context.Background()); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	path, err := a.refresher.SaveCurrent(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Println(path)
	return nil
}
