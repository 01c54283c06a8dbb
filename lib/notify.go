package bingwallpaperlib

import (
	"log"
)

const notificationTitle = "Bing Wallpaper"

// Notifier reports refresh results. Everything is logged, and shown on the
// desktop as well when Desktop is set.
type Notifier struct {
	Desktop bool
}

func NewNotifier(c *Config) Notifier {
	return Notifier{Desktop: c.Notifications()}
}

func (n Notifier) Info(text string) {
	log.Println(text)
	n.show(false, text)
}

func (n Notifier) Error(text string) {
	log.Println("Error: " + text)
	n.show(true, text)
}

func (n Notifier) show(critical bool, text string) {
	if !n.Desktop {
		return
	}
	if err := notify(critical, text); err != nil {
		log.Printf("Error showing notification: %s\n", err)
	}
}
