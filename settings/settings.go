// Package settings persists the user's preferences as a single JSON record.
//
// The record is read once at startup and every change is written straight
// back to disk. A missing, unreadable or corrupt file is never an error, the
// defaults are used instead.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Settings is the persisted record. The JSON names are shared with existing
// settings files and must not change.
type Settings struct {
	AutoSaveWallpaperToPictures bool   `json:"autoSaveWallpaperToPictures"`
	PauseSettingWallpaper       bool   `json:"pauseSettingWallpaper"`
	LaunchOnStartup             bool   `json:"launchOnStartup"`
	Location                    string `json:"location"`

	// Details of the last image that was fetched
	ImageCopyright     string `json:"imageCopyright"`
	ImageCopyrightLink string `json:"imageCopyrightLink"`
	ImageTitle         string `json:"imageTitle"`
	ImageQuiz          string `json:"imageQuiz"`
}

// Field names accepted by Set
const (
	FieldAutoSave = "autoSaveWallpaperToPictures"
	FieldPause    = "pauseSettingWallpaper"
	FieldStartup  = "launchOnStartup"
	FieldLocation = "location"
)

var ErrUnknownLocation = errors.New("unknown location")
var ErrUnknownField = errors.New("unknown settings field")

// Defaults returns the settings used on first run or after corruption.
func Defaults() Settings {
	return Settings{
		LaunchOnStartup: true,
		Location:        LocalLocation,
	}
}

// Store guards a Settings record and its backing file.
type Store struct {
	mu       sync.Mutex
	path     string
	settings Settings
}

// Load reads the settings file at path. It never fails; problems are logged
// and replaced with defaults.
func Load(path string) *Store {
	s := &Store{path: path, settings: Defaults()}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Error reading settings [%s], using defaults: %s\n", path, err)
		}
		return s
	}

	loaded := Defaults()
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Printf("Corrupt settings file [%s], using defaults: %s\n", path, err)
		return s
	}

	if !IsLocation(loaded.Location) {
		log.Printf("Unknown location %q in settings, using %q\n",
			loaded.Location, LocalLocation)
		loaded.Location = LocalLocation
	}

	s.settings = loaded
	return s
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Store) SetLaunchOnStartup(v bool) error {
	return s.update(func(st *Settings) error {
		st.LaunchOnStartup = v
		return nil
	})
}

func (s *Store) SetAutoSaveToPictures(v bool) error {
	return s.update(func(st *Settings) error {
		st.AutoSaveWallpaperToPictures = v
		return nil
	})
}

func (s *Store) SetPauseApplyingWallpaper(v bool) error {
	return s.update(func(st *Settings) error {
		st.PauseSettingWallpaper = v
		return nil
	})
}

// SetLocation rejects anything that is not a recognized location code.
func (s *Store) SetLocation(code string) error {
	if !IsLocation(code) {
		return fmt.Errorf("%w: %q", ErrUnknownLocation, code)
	}
	return s.update(func(st *Settings) error {
		st.Location = code
		return nil
	})
}

// SetImageInfo caches the details of the most recently fetched image.
func (s *Store) SetImageInfo(copyright, copyrightLink, title, quiz string) error {
	return s.update(func(st *Settings) error {
		st.ImageCopyright = copyright
		st.ImageCopyrightLink = copyrightLink
		st.ImageTitle = title
		st.ImageQuiz = quiz
		return nil
	})
}

// Set updates one user-editable field from its string form.
func (s *Store) Set(field, value string) error {
	switch field {
	case FieldLocation:
		return s.SetLocation(value)
	case FieldAutoSave, FieldPause, FieldStartup:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	b, err := parseBool(value)
	if err != nil {
		return err
	}

	switch field {
	case FieldAutoSave:
		return s.SetAutoSaveToPictures(b)
	case FieldPause:
		return s.SetPauseApplyingWallpaper(b)
	default:
		return s.SetLaunchOnStartup(b)
	}
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", value)
	}
	return b, nil
}

// update applies fn and writes the whole record while holding the lock. The
// in-memory copy only changes once the write succeeds.
func (s *Store) update(fn func(*Settings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.settings = next
	return nil
}

func (s *Store) write(st Settings) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	// Rename over the old file so readers never see a partial record
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, s.path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
