package main

import (
	"log"

	"github.com/awused/bing-wallpaper/bing"
	"github.com/awused/bing-wallpaper/history"
	lib "github.com/awused/bing-wallpaper/lib"
	"github.com/awused/bing-wallpaper/refresher"
	"github.com/awused/bing-wallpaper/settings"
)

type app struct {
	conf      *lib.Config
	settings  *settings.Store
	history   *history.Database
	refresher *refresher.Refresher
}

// newApp wires everything together from the loaded config. Call close when
// done.
func newApp() *app {
	conf, err := lib.GetConfig()
	checkErr(err)

	a := &app{
		conf:     conf,
		settings: settings.Load(conf.SettingsFile),
	}

	client, err := bing.NewClient(bing.Options{
		Endpoint:    conf.Endpoint,
		ImageSuffix: conf.ImageSuffix,
		Timeout:     conf.Timeout(),
	})
	checkErr(err)

	opts := refresher.Options{
		Fetcher:     client,
		Settings:    a.settings,
		Wallpaper:   lib.NewDesktop(conf),
		Notifier:    lib.NewNotifier(conf),
		Files:       lib.Files{},
		PicturesDir: conf.PicturesDir,
		Interval:    conf.Interval(),
	}

	if conf.HistoryDatabase != "" {
		a.history, err = history.Open(conf.HistoryDatabase)
		checkErr(err)
		opts.History = a.history
	}

	a.refresher, err = refresher.New(opts)
	checkErr(err)

	return a
}

func (a *app) close() {
	if a.history == nil {
		return
	}
	if err := a.history.Close(); err != nil {
		log.Printf("Error closing history database: %s\n", err)
	}
}

// applyStartup makes the login registration match the stored setting.
func (a *app) applyStartup() {
	if err := lib.SetStartup(a.settings.Get().LaunchOnStartup); err != nil {
		log.Printf("Error updating launch on startup: %s\n", err)
	}
}
