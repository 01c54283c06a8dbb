package main

import (
	"os"

	"github.com/BurntSushi/toml"
	lib "github.com/awused/bing-wallpaper/lib"
	"github.com/urfave/cli/v2"
)

func configCommand() *cli.Command {
	cmd := &cli.Command{}
	cmd.Name = "config"
	cmd.Usage = "Print the effective configuration, including defaults"
	cmd.Before = beforeFunc

	cmd.Action = configAction

	return cmd
}

func configAction(c *cli.Context) error {
	conf, err := lib.GetConfig()
	checkErr(err)

	return toml.NewEncoder(os.Stdout).Encode(conf)
}
