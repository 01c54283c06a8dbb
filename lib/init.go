package bingwallpaperlib

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/awused/awconf"
)

const appName = "bing-wallpaper"

const (
	defaultRefreshInterval = "24h"
	defaultRequestTimeout  = "30s"
	defaultPosition        = "stretch"
)

type Config struct {
	LogFile              string
	SettingsFile         string
	HistoryDatabase      string
	DisableHistory       bool
	OutputDirectory      string
	PicturesDirectory    string
	RefreshInterval      string
	Position             string
	Endpoint             string
	ImageSuffix          string
	RequestTimeout       string
	DesktopNotifications *bool

	refreshInterval time.Duration
	requestTimeout  time.Duration
	position        Position
}

var conf *Config

func GetConfig() (*Config, error) {
	if conf != nil {
		return conf, nil
	}

	return nil, fmt.Errorf("Init never called")
}

// Init reads the config file. A config that can't be found or read leaves
// every option at its default, but values that are present must be valid.
func Init() (*Config, error) {
	c := &Config{}

	if err := awconf.LoadConfig(appName, c); err != nil {
		log.Printf("Error loading config, using defaults: %s\n", err)
		c = &Config{}
	}

	err := c.validate()
	if err != nil {
		return nil, err
	}

	conf = c
	return c, nil
}

func (c *Config) Interval() time.Duration {
	return c.refreshInterval
}

func (c *Config) Timeout() time.Duration {
	return c.requestTimeout
}

func (c *Config) WallpaperPosition() Position {
	return c.position
}

func (c *Config) Notifications() bool {
	return c.DesktopNotifications == nil || *c.DesktopNotifications
}

// PicturesDir is where images are saved when no other path is given.
func (c *Config) PicturesDir() (string, error) {
	if c.PicturesDirectory != "" {
		return c.PicturesDirectory, nil
	}
	return picturesDir()
}

func (c *Config) validate() error {
	var err error

	if c.RefreshInterval == "" {
		c.RefreshInterval = defaultRefreshInterval
	}
	c.refreshInterval, err = time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return fmt.Errorf("Invalid RefreshInterval [%s]: %s", c.RefreshInterval, err)
	}
	if c.refreshInterval <= 0 {
		return fmt.Errorf("RefreshInterval must be greater than 0")
	}

	if c.RequestTimeout == "" {
		c.RequestTimeout = defaultRequestTimeout
	}
	c.requestTimeout, err = time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return fmt.Errorf("Invalid RequestTimeout [%s]: %s", c.RequestTimeout, err)
	}
	if c.requestTimeout <= 0 {
		return fmt.Errorf("RequestTimeout must be greater than 0")
	}

	if c.Position == "" {
		c.Position = defaultPosition
	}
	c.position, err = ParsePosition(c.Position)
	if err != nil {
		return err
	}

	if c.DesktopNotifications == nil {
		enabled := true
		c.DesktopNotifications = &enabled
	}

	if c.SettingsFile == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("Error locating executable for SettingsFile: %s", err)
		}
		c.SettingsFile = filepath.Join(filepath.Dir(exe), "settings.txt")
	}

	if c.DisableHistory {
		c.HistoryDatabase = ""
	} else if c.HistoryDatabase == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("Error locating HistoryDatabase: %s", err)
		}
		c.HistoryDatabase = filepath.Join(dir, appName, "history.db")
	}

	if c.OutputDirectory == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("Error locating OutputDirectory: %s", err)
		}
		c.OutputDirectory = filepath.Join(dir, appName)
	}

	c.OutputDirectory, err = filepath.Abs(c.OutputDirectory)
	if err != nil {
		return err
	}

	fi, err := os.Stat(c.OutputDirectory)
	if err == nil && !fi.IsDir() {
		return fmt.Errorf("OutputDirectory [%s] is a regular file", c.OutputDirectory)
	} else if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf(
			"Error calling os.Stat on OutputDirectory [%s]: %s", c.OutputDirectory, err)
	}

	if c.PicturesDirectory != "" {
		fi, err = os.Stat(c.PicturesDirectory)
		if err == nil && !fi.IsDir() {
			return fmt.Errorf(
				"PicturesDirectory [%s] is a regular file", c.PicturesDirectory)
		}
	}

	return nil
}
