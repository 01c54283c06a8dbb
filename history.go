package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func historyCommand() *cli.Command {
	cmd := &cli.Command{}
	cmd.Name = "history"
	cmd.Usage = "List previously fetched images, newest first"
	cmd.Before = beforeFunc
	cmd.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    limit,
			Aliases: []string{"l"},
			Value:   10,
			Usage:   "The maximum number of images to list.",
		},
	}

	cmd.Action = historyAction

	return cmd
}

const limit = "limit"

func historyAction(c *cli.Context) error {
	a := newApp()
	defer a.close()

	if a.history == nil {
		fmt.Println("History is disabled")
		return nil
	}

	entries, err := a.history.Recent(c.Int(limit))
	checkErr(err)

	for _, e := range entries {
		market := e.Market
		if market == "" {
			market = "local"
		}
		fmt.Printf("%s [%s] %s\n", e.DateKey, market, e.Title)
		if e.Copyright != "" {
			fmt.Printf("\t%s\n", e.Copyright)
		}
		fmt.Printf("\t%s\n", e.ImageURL)
		if e.SavedPath != "" {
			fmt.Printf("\tSaved to %s\n", e.SavedPath)
		}
	}
	return nil
}
