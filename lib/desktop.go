package bingwallpaperlib

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const outputPrefix = "wallpaper-"

// Desktop applies wallpapers through the desktop environment. Every image is
// written to a fresh file in OutputDir since some environments ignore a change
// when the path stays the same.
type Desktop struct {
	OutputDir string
	Position  Position

	mu sync.Mutex
	// Swapped out in tests
	apply func(path string, p Position) error
}

func NewDesktop(c *Config) *Desktop {
	return &Desktop{
		OutputDir: c.OutputDirectory,
		Position:  c.WallpaperPosition(),
	}
}

func (d *Desktop) SetWallpaper(img []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := os.MkdirAll(d.OutputDir, 0755)
	if err != nil {
		return fmt.Errorf(
			"Error creating OutputDirectory [%s]: %s", d.OutputDir, err)
	}

	wallpaper, err := d.writeOutputFile(img)
	if err != nil {
		return err
	}

	apply := d.apply
	if apply == nil {
		apply = setWallpaperFile
	}
	if err = apply(wallpaper, d.Position); err != nil {
		_ = os.Remove(wallpaper)
		return err
	}

	d.removeOldWallpapers(wallpaper)
	return nil
}

func (d *Desktop) writeOutputFile(img []byte) (string, error) {
	dir, err := filepath.Abs(d.OutputDir)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, outputPrefix+"*"+extension(img))
	if err != nil {
		return "", err
	}

	_, err = f.Write(img)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Only remove files we own
func (d *Desktop) removeOldWallpapers(current string) {
	old, err := filepath.Glob(filepath.Join(d.OutputDir, outputPrefix+"*"))
	if err != nil {
		return
	}

	for _, o := range old {
		abs, err := filepath.Abs(o)
		if err != nil || abs == current {
			continue
		}
		if err = os.Remove(abs); err != nil && !os.IsNotExist(err) {
			log.Printf("Error removing old wallpaper [%s]: %s\n", abs, err)
		}
	}
}

func extension(img []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return ".jpg"
	}

	switch format {
	case "jpeg":
		return ".jpg"
	default:
		return "." + format
	}
}
