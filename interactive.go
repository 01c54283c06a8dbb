package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	lib "github.com/awused/bing-wallpaper/lib"
	"github.com/awused/bing-wallpaper/refresher"
	"github.com/awused/bing-wallpaper/settings"
	prompt "github.com/c-bata/go-prompt"
	"github.com/urfave/cli/v2"
)

func interactiveCommand() *cli.Command {
	cmd := &cli.Command{}
	cmd.Name = "interactive"
	cmd.Usage = "Keep the wallpaper updated while offering a console menu to " +
		"save the image, change location, and toggle settings."
	cmd.Before = beforeFunc

	cmd.Action = interactiveAction

	return cmd
}

func interactiveAction(c *cli.Context) error {
	a := newApp()
	defer a.close()

	a.applyStartup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan struct{})
	go func() {
		a.refresher.Run(ctx)
		close(runDone)
	}()

	// Large buffered channel so it doesn't block signals if it's busy
	sigs := make(chan os.Signal, 100)
	promptChan := make(chan struct{}, 1)
	inputChan := make(chan string)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)

	go func() {
		promptUntilDone(ctx, a, inputChan)
		promptChan <- struct{}{}
	}()

	for {
		select {
		case <-promptChan:
			cancel()
			<-runDone
			return nil
		case <-sigs:
			// We need to make sure we clean up, so consume sigint
			inputChan <- "exit"
		}
	}
}

var commands = []prompt.Suggest{
	{Text: "refresh", Description: "Fetch and set the image of the day now"},
	{Text: "save", Description: "Save the current image, optionally to PATH"},
	{Text: "location", Description: "Show locations or switch to one"},
	{Text: "pause", Description: "on|off, stop changing the wallpaper"},
	{Text: "autosave", Description: "on|off, save every new image to Pictures"},
	{Text: "startup", Description: "on|off, launch on login"},
	{Text: "info", Description: "Describe the current image"},
	{Text: "open", Description: "copyright|quiz, open the link in a browser"},
	{Text: "exit", Description: "Exit the program"},
}

func completer(d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	word := d.GetWordBeforeCursor()

	fields := strings.Fields(before)
	if len(fields) == 0 || (len(fields) == 1 && word != "") {
		return prompt.FilterHasPrefix(commands, word, true)
	}

	var s []prompt.Suggest
	switch strings.ToLower(fields[0]) {
	case "location":
		for _, l := range settings.Locations() {
			s = append(s, prompt.Suggest{Text: l})
		}
	case "pause", "autosave", "startup":
		s = []prompt.Suggest{{Text: "on"}, {Text: "off"}}
	case "open":
		s = []prompt.Suggest{{Text: "copyright"}, {Text: "quiz"}}
	}
	return prompt.FilterHasPrefix(s, word, true)
}

var toggles = map[string]string{
	"pause":    settings.FieldPause,
	"autosave": settings.FieldAutoSave,
	"startup":  settings.FieldStartup,
}

func promptUntilDone(ctx context.Context, a *app, inputChan chan string) {
	exit := prompt.OptionAddKeyBind(prompt.KeyBind{
		Key: prompt.ControlC,
		Fn: func(b *prompt.Buffer) {
			inputChan <- "exit"
		},
	})

	for {
		go func() {
			// prompt.Input is blocking, synchronous, and provides no way to abort it
			inputChan <- strings.TrimSpace(prompt.Input("> ", completer, exit))
		}()
		in := <-inputChan
		if in == "" {
			continue
		}

		// Arguments keep their case, paths need it
		cmd, arg, _ := strings.Cut(in, " ")
		cmd = strings.ToLower(cmd)
		arg = strings.TrimSpace(arg)

		if cmd == "exit" {
			return
		}

		runInteractive(ctx, a, cmd, arg)
	}
}

func runInteractive(ctx context.Context, a *app, cmd, arg string) {
	defer func() {
		r := recover()
		if r != nil {
			fmt.Println("Unexpected error: ", r)
		}
	}()

	switch cmd {
	case "refresh":
		// The notifier has already reported the outcome
		_ = a.refresher.Refresh(ctx)
	case "save":
		path, err := a.refresher.SaveCurrent(arg)
		if errors.Is(err, refresher.ErrNoImage) {
			fmt.Println("No image has been downloaded yet, try refresh")
		} else if err != nil {
			fmt.Println(err)
		} else {
			fmt.Printf("Saved to %s\n", path)
		}
	case "location":
		if arg == "" {
			printLocations(a.settings.Get().Location)
			return
		}
		fmt.Println(locationResult(arg, a.refresher.SetLocation(arg)))
	case "pause", "autosave", "startup":
		if err := a.settings.Set(toggles[cmd], arg); err != nil {
			fmt.Printf("Invalid input \"%s\", use on or off\n", arg)
			return
		}
		if cmd == "startup" {
			a.applyStartup()
		}
	case "info":
		printInfo(a)
	case "open":
		openLink(a, arg)
	default:
		fmt.Println("Unknown command")
	}
}

func locationResult(code string, err error) string {
	switch {
	case errors.Is(err, settings.ErrUnknownLocation):
		return fmt.Sprintf("Invalid location \"%s\"", code)
	case err != nil:
		return err.Error()
	}
	return fmt.Sprintf("Location set to %s, refreshing", code)
}

func printLocations(current string) {
	for _, l := range settings.Locations() {
		if l == current {
			fmt.Printf("* %s\n", l)
		} else {
			fmt.Printf("  %s\n", l)
		}
	}
}

func printInfo(a *app) {
	st := a.settings.Get()
	if st.ImageTitle == "" && st.ImageCopyright == "" {
		fmt.Println("No image has been downloaded yet")
	} else {
		fmt.Println(st.ImageTitle)
		fmt.Println(st.ImageCopyright)
	}

	if img := a.refresher.Current(); img != nil {
		fmt.Printf("Date: %s\n", img.DateKey)
		fmt.Printf("Image: %s\n", img.URL)
	}
	fmt.Printf("Location: %s\n", st.Location)
	fmt.Printf("Paused: %t, auto save: %t, launch on startup: %t\n",
		st.PauseSettingWallpaper, st.AutoSaveWallpaperToPictures, st.LaunchOnStartup)
}

func openLink(a *app, which string) {
	st := a.settings.Get()

	var link string
	switch strings.ToLower(which) {
	case "copyright", "":
		link = st.ImageCopyrightLink
	case "quiz":
		link = st.ImageQuiz
	default:
		fmt.Println("Use open copyright or open quiz")
		return
	}

	if link == "" {
		fmt.Println("No link for the current image")
		return
	}
	if err := lib.OpenURL(link); err != nil {
		fmt.Println(err)
	}
}
