package main

import (
	"log"
	"os"

	lib "github.com/awused/bing-wallpaper/lib"
	"github.com/urfave/cli/v2"
)

func main() {
	lib.AttachParentConsole()

	app := cli.NewApp()
	app.Name = "bing-wallpaper"
	app.Usage = "Sets Bing's image of the day as the desktop wallpaper"
	app.Commands = []*cli.Command{
		runCommand(),
		interactiveCommand(),
		refreshCommand(),
		saveCommand(),
		settingsCommand(),
		historyCommand(),
		configCommand(),
	}

	err := app.Run(os.Args)
	checkErr(err)
}

// Only init when necessary
// Can't do conditionally in app.Before because app.Before is useless for any purpose
func beforeFunc(ctxt *cli.Context) error {
	c, err := lib.Init()
	checkErr(err)

	if c.LogFile != "" {
		// Left open for the life of the process
		f, err := os.OpenFile(c.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("Error opening log file: %v", err)
		}

		log.SetOutput(f)
	}
	return nil
}

func checkErr(err error) {
	if err != nil {
		log.Println(err)
		panic(err)
	}
}
