package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/awused/bing-wallpaper/settings"
	"github.com/urfave/cli/v2"
)

func settingsCommand() *cli.Command {
	cmd := &cli.Command{}
	cmd.Name = "settings"
	cmd.Usage = "Print the stored settings"
	cmd.Before = beforeFunc
	cmd.Action = settingsAction

	set := &cli.Command{}
	set.Name = "set"
	set.Usage = "Change a stored setting"
	set.Description = "FIELD is one of " + strings.Join([]string{
		settings.FieldAutoSave,
		settings.FieldPause,
		settings.FieldStartup,
		settings.FieldLocation,
	}, ", ") + ". Locations are " + strings.Join(settings.Locations(), ", ")
	set.ArgsUsage = "FIELD VALUE"
	set.Action = settingsSetAction

	cmd.Subcommands = []*cli.Command{set}

	return cmd
}

func settingsAction(c *cli.Context) error {
	a := newApp()
	defer a.close()

	b, err := json.MarshalIndent(a.settings.Get(), "", "  ")
	checkErr(err)

	fmt.Printf("%s\n# %s\n", b, a.settings.Path())
	return nil
}

func settingsSetAction(c *cli.Context) error {
	if c.NArg() != 2 {
		checkErr(errors.New("settings set takes exactly FIELD and VALUE"))
	}

	a := newApp()
	defer a.close()

	field := c.Args().Get(0)
	if err := a.settings.Set(field, c.Args().Get(1)); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if field == settings.FieldStartup {
		a.applyStartup()
	}
	return nil
}
