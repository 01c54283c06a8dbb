//go:build !windows
// +build !windows

package bingwallpaperlib

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
)

type environment int

const (
	gnome environment = iota
	i3
	unknown
)

const dbusAddress = "DBUS_SESSION_BUS_ADDRESS"

func setDBUSAddress() error {
	dbus := os.Getenv(dbusAddress)
	if dbus == "" {
		// For now just assume we're dealing with per-user dbus sessions
		user, err := user.Current()
		if err != nil {
			return nil
		}
		uid := user.Uid
		if uid == "" {
			return errors.New("No $UID set")
		}
		return os.Setenv(dbusAddress, "unix:path=/run/user/"+uid+"/bus")
	}

	return nil
}

func detectEnvironment() environment {
	desktop := strings.ToLower(os.Getenv("XDG_CURRENT_DESKTOP"))
	if strings.Contains(desktop, "gnome") {
		return gnome
	}

	// Stop polluting stdout
	xgb.Logger.SetOutput(io.Discard)
	xgbutil.Logger.SetOutput(io.Discard)

	X, err := xgbutil.NewConn()
	if err != nil {
		return unknown
	}
	defer X.Conn().Close()

	wm, err := ewmh.GetEwmhWM(X)
	if err != nil {
		return unknown
	}

	wm = strings.ToLower(wm)
	if strings.Contains(wm, "gnome") || strings.Contains(wm, "mutter") {
		return gnome
	} else if wm == "i3" {
		return i3
	}
	// Feh probably works
	log.Printf("Encountered unknown WM/DE: %s\n", wm)
	return unknown
}

func setWallpaperFile(wallpaper string, p Position) error {
	if err := setDBUSAddress(); err != nil {
		return err
	}

	if detectEnvironment() == gnome {
		return setGnomeWallpaper(wallpaper, p)
	}
	return setFehWallpaper(wallpaper, p)
}

func gsettings(args ...string) error {
	cmd := exec.Command("gsettings", append([]string{"set", "org.gnome.desktop.background"}, args...)...)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func setGnomeWallpaper(wallpaper string, p Position) error {
	uri := "file://" + wallpaper

	if err := gsettings("picture-options", p.gnomeOption()); err != nil {
		return fmt.Errorf("Error setting picture-options: %w", err)
	}
	if err := gsettings("picture-uri", uri); err != nil {
		return fmt.Errorf("Error setting picture-uri: %w", err)
	}
	// Only present since GNOME 42
	if err := gsettings("picture-uri-dark", uri); err != nil {
		log.Printf("Error setting picture-uri-dark: %s\n", err)
	}
	return nil
}

func setFehWallpaper(wallpaper string, p Position) error {
	args := append(p.fehArgs(), wallpaper)

	cmd := exec.Command("feh", args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("Error running feh: %w", err)
	}
	return nil
}

func autostartFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "autostart", appName+".desktop"), nil
}

// SetStartup adds or removes the XDG autostart entry for "run".
func SetStartup(launch bool) error {
	path, err := autostartFile()
	if err != nil {
		return err
	}

	if !launch {
		err = os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	exe, args, err := startupCommand()
	if err != nil {
		return err
	}

	entry := "[Desktop Entry]\n" +
		"Type=Application\n" +
		"Name=" + notificationTitle + "\n" +
		"Comment=Sets Bing's image of the day as the wallpaper\n" +
		"Exec=" + commandLine(exe, args) + "\n" +
		"X-GNOME-Autostart-enabled=true\n"

	return Files{}.WriteFile(path, []byte(entry))
}

func picturesDir() (string, error) {
	out, err := runBash(`xdg-user-dir PICTURES`)
	if dir := strings.TrimSpace(out); err == nil && dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Pictures"), nil
}

func notify(critical bool, text string) error {
	if err := setDBUSAddress(); err != nil {
		return err
	}

	urgency := "normal"
	if critical {
		urgency = "critical"
	}
	return exec.Command(
		"notify-send", "-a", notificationTitle, "-u", urgency,
		notificationTitle, text).Run()
}

// No-op
func AttachParentConsole() {}

func runBash(cmd string) (string, error) {
	// See http://redsymbol.net/articles/unofficial-bash-strict-mode/
	command := `
		set -euo pipefail
		IFS=$'\n\t'
		` + cmd + "\n"

	bash := exec.Command("/usr/bin/env", "bash")
	bash.Stdin = strings.NewReader(command)

	bashOut, err := bash.Output()
	return string(bashOut), err
}

// OpenURL opens u in the default browser.
func OpenURL(u string) error {
	return exec.Command("xdg-open", u).Start()
}
