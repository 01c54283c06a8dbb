// Package refresher runs the daily image workflow: fetch the image, apply it
// as the wallpaper unless paused, keep it as the current image, save it to
// the pictures folder when enabled, and tell the user how it went.
//
// Refreshes come from a ticker and from manual triggers. Both end up in
// Refresh, which never runs more than once at a time.
package refresher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/awused/bing-wallpaper/bing"
	"github.com/awused/bing-wallpaper/history"
	"github.com/awused/bing-wallpaper/settings"
)

const DefaultInterval = 24 * time.Hour

// User-visible notification texts
const (
	MsgApplied     = "Wallpaper has been set to Bing's image of the day!"
	MsgPaused      = "Downloaded Bing's image of the day (wallpaper changes are paused)."
	MsgFetchFailed = "Could not update wallpaper, please check your internet connection."
	msgApplyFailed = "Downloaded Bing's image of the day but could not set it as the wallpaper."
	msgSaveFailed  = "Downloaded Bing's image of the day but could not save it to Pictures."
	msgBothFailed  = "Downloaded Bing's image of the day but could not set it as the wallpaper or save it to Pictures."
)

var ErrNoImage = errors.New("no image has been downloaded yet")

type Fetcher interface {
	FetchDailyImage(ctx context.Context, location string) (*bing.Image, error)
}

type SettingsStore interface {
	Get() settings.Settings
	SetLocation(code string) error
	SetImageInfo(copyright, copyrightLink, title, quiz string) error
}

// WallpaperSetter makes the encoded image the desktop background.
type WallpaperSetter interface {
	SetWallpaper(img []byte) error
}

type Notifier interface {
	Info(text string)
	Error(text string)
}

type FileWriter interface {
	// WriteFile creates or replaces path.
	WriteFile(path string, data []byte) error
	// WriteNewFile only writes when nothing exists at path yet.
	WriteNewFile(path string, data []byte) (bool, error)
}

type History interface {
	Record(e history.Entry) error
	MarkSaved(dateKey, market, path string) error
}

// ApplyOrSaveError is a failure of the OS wallpaper call or of a file write
// after the image itself was fetched.
type ApplyOrSaveError struct {
	Op   string
	Path string
	Err  error
}

func (e *ApplyOrSaveError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Path, e.Err)
}

func (e *ApplyOrSaveError) Unwrap() error {
	return e.Err
}

const (
	opApply = "apply wallpaper"
	opSave  = "save image"
)

// Options wire a Refresher to its collaborators. History may be nil.
// PicturesDir is consulted every time an image is saved.
type Options struct {
	Fetcher     Fetcher
	Settings    SettingsStore
	Wallpaper   WallpaperSetter
	Notifier    Notifier
	Files       FileWriter
	History     History
	PicturesDir func() (string, error)
	Interval    time.Duration
}

type Refresher struct {
	fetcher     Fetcher
	settings    SettingsStore
	wallpaper   WallpaperSetter
	notifier    Notifier
	files       FileWriter
	history     History
	picturesDir func() (string, error)
	interval    time.Duration

	// Held for the whole of Refresh
	mu sync.Mutex

	currentMu sync.RWMutex
	current   *bing.Image

	trigger chan struct{}
}

func New(opts Options) (*Refresher, error) {
	switch {
	case opts.Fetcher == nil:
		return nil, errors.New("no fetcher provided for refresher")
	case opts.Settings == nil:
		return nil, errors.New("no settings provided for refresher")
	case opts.Wallpaper == nil:
		return nil, errors.New("no wallpaper setter provided for refresher")
	case opts.Notifier == nil:
		return nil, errors.New("no notifier provided for refresher")
	case opts.Files == nil:
		return nil, errors.New("no file writer provided for refresher")
	case opts.PicturesDir == nil:
		return nil, errors.New("no pictures directory provided for refresher")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Refresher{
		fetcher:     opts.Fetcher,
		settings:    opts.Settings,
		wallpaper:   opts.Wallpaper,
		notifier:    opts.Notifier,
		files:       opts.Files,
		history:     opts.History,
		picturesDir: opts.PicturesDir,
		interval:    interval,
		trigger:     make(chan struct{}, 1),
	}, nil
}

// Interval is the time between scheduled refreshes.
func (r *Refresher) Interval() time.Duration {
	return r.interval
}

// Current returns the last successfully fetched image, or nil.
func (r *Refresher) Current() *bing.Image {
	r.currentMu.RLock()
	defer r.currentMu.RUnlock()
	return r.current
}

func (r *Refresher) setCurrent(img *bing.Image) {
	r.currentMu.Lock()
	r.current = img
	r.currentMu.Unlock()
}

// Refresh runs one complete cycle. Concurrent calls wait for each other. The
// returned error is a *bing.FetchError, one or more *ApplyOrSaveError, or the
// context's error on shutdown.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.settings.Get()

	img, err := r.fetcher.FetchDailyImage(ctx, st.Location)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("Error fetching image of the day: %s\n", err)
		r.notifier.Error(MsgFetchFailed)
		return err
	}

	var applyErr, saveErr error

	if !st.PauseSettingWallpaper {
		if err := r.wallpaper.SetWallpaper(img.Bytes); err != nil {
			applyErr = &ApplyOrSaveError{Op: opApply, Err: err}
			log.Println(applyErr)
		}
	}

	r.setCurrent(img)

	savedPath := ""
	if st.AutoSaveWallpaperToPictures {
		savedPath, saveErr = r.autoSave(img)
		if saveErr != nil {
			log.Println(saveErr)
		}
	}

	err = r.settings.SetImageInfo(img.Copyright, img.CopyrightLink, img.Title, img.QuizLink)
	if err != nil {
		log.Printf("Error caching image details in settings: %s\n", err)
	}
	r.record(img, savedPath)

	switch {
	case applyErr != nil && saveErr != nil:
		r.notifier.Error(msgBothFailed)
		return errors.Join(applyErr, saveErr)
	case applyErr != nil:
		r.notifier.Error(msgApplyFailed)
		return applyErr
	case saveErr != nil:
		r.notifier.Error(msgSaveFailed)
		return saveErr
	case st.PauseSettingWallpaper:
		r.notifier.Info(MsgPaused)
	default:
		r.notifier.Info(MsgApplied)
	}
	return nil
}

// Download fetches the image of the day and makes it the current image
// without applying it, saving it, or notifying anyone.
func (r *Refresher) Download(ctx context.Context) (*bing.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.settings.Get()
	img, err := r.fetcher.FetchDailyImage(ctx, st.Location)
	if err != nil {
		return nil, err
	}

	r.setCurrent(img)
	r.record(img, "")
	return img, nil
}

// autoSave writes the image as <pictures>/<date>.jpg unless a copy for that
// date already exists. It returns the path when it wrote a file.
func (r *Refresher) autoSave(img *bing.Image) (string, error) {
	dir, err := r.picturesDir()
	if err != nil {
		return "", &ApplyOrSaveError{Op: opSave, Err: fmt.Errorf("locate pictures folder: %w", err)}
	}

	path := filepath.Join(dir, img.ShortFileName())
	created, err := r.files.WriteNewFile(path, img.Bytes)
	if err != nil {
		return "", &ApplyOrSaveError{Op: opSave, Path: path, Err: err}
	}
	if !created {
		return "", nil
	}
	log.Printf("Saved image of the day to [%s]\n", path)
	return path, nil
}

func (r *Refresher) record(img *bing.Image, savedPath string) {
	if r.history == nil {
		return
	}
	err := r.history.Record(history.Entry{
		DateKey:       img.DateKey,
		Market:        img.Market,
		Title:         img.Title,
		Copyright:     img.Copyright,
		CopyrightLink: img.CopyrightLink,
		QuizLink:      img.QuizLink,
		ImageURL:      img.URL,
		SavedPath:     savedPath,
	})
	if err != nil {
		log.Printf("Error recording history: %s\n", err)
	}
}

// SaveCurrent writes the current image to path. An empty path saves into the
// pictures folder and a directory saves into that directory, both using a
// name derived from the copyright text. Existing files are replaced.
func (r *Refresher) SaveCurrent(path string) (string, error) {
	img := r.Current()
	if img == nil {
		return "", ErrNoImage
	}

	target, err := r.manualSavePath(img, path)
	if err != nil {
		return "", &ApplyOrSaveError{Op: opSave, Err: err}
	}

	if err := r.files.WriteFile(target, img.Bytes); err != nil {
		return "", &ApplyOrSaveError{Op: opSave, Path: target, Err: err}
	}

	if r.history != nil {
		if err := r.history.MarkSaved(img.DateKey, img.Market, target); err != nil {
			log.Printf("Error recording saved image: %s\n", err)
		}
	}
	return target, nil
}

func (r *Refresher) manualSavePath(img *bing.Image, path string) (string, error) {
	name := img.LongFileName() + ".jpg"

	if strings.TrimSpace(path) == "" {
		dir, err := r.picturesDir()
		if err != nil {
			return "", fmt.Errorf("locate pictures folder: %w", err)
		}
		return filepath.Join(dir, name), nil
	}

	fi, err := os.Stat(path)
	if err == nil && fi.IsDir() {
		return filepath.Join(path, name), nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if filepath.Ext(path) == "" {
		path += ".jpg"
	}
	return path, nil
}

// SetLocation stores a new location and schedules a refresh for it.
func (r *Refresher) SetLocation(code string) error {
	if err := r.settings.SetLocation(code); err != nil {
		return err
	}
	r.Trigger()
	return nil
}

// Trigger asks the Run loop for a refresh. Triggers that arrive while one is
// already pending are merged into it.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes immediately and then on every tick or trigger until ctx is
// cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		// Failures are already logged and sent to the notifier
		_ = r.Refresh(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.trigger:
		}
	}
}
