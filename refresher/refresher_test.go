package refresher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/awused/bing-wallpaper/bing"
	"github.com/awused/bing-wallpaper/history"
	"github.com/awused/bing-wallpaper/settings"
)

type fakeFetcher struct {
	mu        sync.Mutex
	img       *bing.Image
	err       error
	calls     int
	locations []string

	// When set every call blocks until release is closed
	release  chan struct{}
	started  chan struct{}
	inFlight int32
	maxSeen  int32
}

func (f *fakeFetcher) FetchDailyImage(ctx context.Context, location string) (*bing.Image, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		m := atomic.LoadInt32(&f.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxSeen, m, n) {
			break
		}
	}

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, &bing.FetchError{Op: "fetch metadata", Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.locations = append(f.locations, location)
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSettings struct {
	mu sync.Mutex
	st settings.Settings
}

func (s *fakeSettings) Get() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

func (s *fakeSettings) SetLocation(code string) error {
	if !settings.IsLocation(code) {
		return settings.ErrUnknownLocation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Location = code
	return nil
}

func (s *fakeSettings) SetImageInfo(copyright, link, title, quiz string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.ImageCopyright = copyright
	s.st.ImageCopyrightLink = link
	s.st.ImageTitle = title
	s.st.ImageQuiz = quiz
	return nil
}

type fakeWallpaper struct {
	mu      sync.Mutex
	applied [][]byte
	err     error
}

func (w *fakeWallpaper) SetWallpaper(img []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.applied = append(w.applied, img)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (n *fakeNotifier) Info(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, text)
}

func (n *fakeNotifier) Error(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, text)
}

type fakeFiles struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func (f *fakeFiles) WriteFile(path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.files[path] = data
	return nil
}

func (f *fakeFiles) WriteNewFile(path string, data []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.files[path]; ok {
		return false, nil
	}
	f.files[path] = data
	return true, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []history.Entry
	saved   map[string]string
}

func (h *fakeHistory) Record(e history.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	return nil
}

func (h *fakeHistory) MarkSaved(dateKey, market, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved[dateKey+"/"+market] = path
	return nil
}

type harness struct {
	fetcher   *fakeFetcher
	settings  *fakeSettings
	wallpaper *fakeWallpaper
	notifier  *fakeNotifier
	files     *fakeFiles
	history   *fakeHistory
	pictures  string
	r         *Refresher
}

func testImage() *bing.Image {
	return &bing.Image{
		Bytes:         []byte("jpeg bytes"),
		Title:         "T",
		Copyright:     "© Photographer",
		CopyrightLink: "http://a",
		QuizLink:      "https://www.bing.com/q",
		DateKey:       "20240101",
		URL:           "https://www.bing.com/th?id=X_UHD.jpg",
	}
}

func newHarness(t *testing.T, st settings.Settings) *harness {
	t.Helper()
	h := &harness{
		fetcher:   &fakeFetcher{img: testImage()},
		settings:  &fakeSettings{st: st},
		wallpaper: &fakeWallpaper{},
		notifier:  &fakeNotifier{},
		files:     &fakeFiles{files: map[string][]byte{}},
		history:   &fakeHistory{saved: map[string]string{}},
		pictures:  t.TempDir(),
	}
	r, err := New(Options{
		Fetcher:     h.fetcher,
		Settings:    h.settings,
		Wallpaper:   h.wallpaper,
		Notifier:    h.notifier,
		Files:       h.files,
		History:     h.history,
		PicturesDir: func() (string, error) { return h.pictures, nil },
		Interval:    time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.r = r
	return h
}

func TestRefresh_AppliesAndNotifies(t *testing.T) {
	h := newHarness(t, settings.Defaults())

	if err := h.r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if len(h.wallpaper.applied) != 1 || string(h.wallpaper.applied[0]) != "jpeg bytes" {
		t.Fatalf("applied = %q, want one apply of the image bytes", h.wallpaper.applied)
	}
	if len(h.notifier.infos) != 1 || h.notifier.infos[0] != MsgApplied || len(h.notifier.errors) != 0 {
		t.Fatalf("notifications infos=%q errors=%q", h.notifier.infos, h.notifier.errors)
	}
	if h.r.Current() != h.fetcher.img {
		t.Fatalf("Current() was not updated")
	}
	if h.fetcher.locations[0] != settings.LocalLocation {
		t.Fatalf("fetched location = %q", h.fetcher.locations[0])
	}

	st := h.settings.Get()
	if st.ImageTitle != "T" || st.ImageCopyright != "© Photographer" || st.ImageQuiz != "https://www.bing.com/q" {
		t.Fatalf("cached image info = %+v", st)
	}
	if len(h.history.entries) != 1 || h.history.entries[0].DateKey != "20240101" {
		t.Fatalf("history = %+v", h.history.entries)
	}
	if len(h.files.files) != 0 {
		t.Fatalf("auto-save is off but files were written: %v", h.files.files)
	}
}

func TestRefresh_PausedNeverApplies(t *testing.T) {
	st := settings.Defaults()
	st.PauseSettingWallpaper = true
	h := newHarness(t, st)

	for i := 0; i < 3; i++ {
		if err := h.r.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
	}

	if len(h.wallpaper.applied) != 0 {
		t.Fatalf("wallpaper applied %d times while paused", len(h.wallpaper.applied))
	}
	if h.r.Current() == nil {
		t.Fatalf("Current() should still be set while paused")
	}
	for _, msg := range h.notifier.infos {
		if msg != MsgPaused {
			t.Fatalf("notification = %q, want %q", msg, MsgPaused)
		}
	}
}

func TestRefresh_PausedFetchFailureDoesNotApply(t *testing.T) {
	st := settings.Defaults()
	st.PauseSettingWallpaper = true
	h := newHarness(t, st)
	h.fetcher.err = &bing.FetchError{Op: "fetch metadata", Err: errors.New("boom")}

	_ = h.r.Refresh(context.Background())
	if len(h.wallpaper.applied) != 0 {
		t.Fatalf("wallpaper applied while paused")
	}
}

func TestRefresh_FetchFailure(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	if err := h.r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	previous := h.r.Current()
	h.notifier.infos = nil

	h.fetcher.err = &bing.FetchError{Op: "fetch metadata", Err: errors.New("network unreachable")}
	err := h.r.Refresh(context.Background())

	var fe *bing.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Refresh error = %v, want *bing.FetchError", err)
	}
	if len(h.notifier.errors) != 1 || h.notifier.errors[0] != MsgFetchFailed {
		t.Fatalf("error notifications = %q, want exactly one fetch failure", h.notifier.errors)
	}
	if len(h.notifier.infos) != 0 {
		t.Fatalf("unexpected info notifications %q", h.notifier.infos)
	}
	if h.r.Current() != previous {
		t.Fatalf("Current() changed after a failed fetch")
	}
	if len(h.wallpaper.applied) != 1 {
		t.Fatalf("wallpaper applied %d times, want only the first refresh", len(h.wallpaper.applied))
	}
}

func TestRefresh_CancelledContextIsSilent(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	h.fetcher.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.r.Refresh(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Refresh error = %v, want context.Canceled", err)
	}
	if len(h.notifier.errors) != 0 {
		t.Fatalf("shutdown produced notifications %q", h.notifier.errors)
	}
}

func TestRefresh_AutoSave(t *testing.T) {
	st := settings.Defaults()
	st.AutoSaveWallpaperToPictures = true
	h := newHarness(t, st)

	if err := h.r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	want := filepath.Join(h.pictures, "20240101.jpg")
	if string(h.files.files[want]) != "jpeg bytes" {
		t.Fatalf("auto-saved files = %v, want %s", h.files.files, want)
	}
	if h.history.entries[0].SavedPath != want {
		t.Fatalf("history SavedPath = %q, want %q", h.history.entries[0].SavedPath, want)
	}
}

func TestRefresh_AutoSaveNeverOverwrites(t *testing.T) {
	st := settings.Defaults()
	st.AutoSaveWallpaperToPictures = true
	h := newHarness(t, st)

	path := filepath.Join(h.pictures, "20240101.jpg")
	h.files.files[path] = []byte("original copy")

	for i := 0; i < 2; i++ {
		if err := h.r.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
	}

	if string(h.files.files[path]) != "original copy" {
		t.Fatalf("existing auto-saved file was overwritten")
	}
	if len(h.notifier.errors) != 0 {
		t.Fatalf("skipping an existing copy produced errors %q", h.notifier.errors)
	}
}

func TestRefresh_ApplyFailureIsDistinct(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	h.wallpaper.err = errors.New("IDesktopWallpaper failed")

	err := h.r.Refresh(context.Background())

	var ae *ApplyOrSaveError
	if !errors.As(err, &ae) {
		t.Fatalf("Refresh error = %v, want *ApplyOrSaveError", err)
	}
	if ae.Op != opApply {
		t.Fatalf("Op = %q, want %q", ae.Op, opApply)
	}
	var fe *bing.FetchError
	if errors.As(err, &fe) {
		t.Fatalf("apply failure reported as a fetch failure")
	}
	if len(h.notifier.errors) != 1 || h.notifier.errors[0] == MsgFetchFailed {
		t.Fatalf("error notifications = %q, want one apply failure", h.notifier.errors)
	}
	if h.r.Current() == nil {
		t.Fatalf("Current() should be set after a successful fetch")
	}
}

func TestRefresh_ApplyAndSaveFailures(t *testing.T) {
	st := settings.Defaults()
	st.AutoSaveWallpaperToPictures = true
	h := newHarness(t, st)
	h.wallpaper.err = errors.New("apply failed")
	h.files.err = errors.New("disk full")

	err := h.r.Refresh(context.Background())
	if err == nil {
		t.Fatalf("Refresh returned nil error")
	}
	var ae *ApplyOrSaveError
	if !errors.As(err, &ae) {
		t.Fatalf("Refresh error = %v, want *ApplyOrSaveError", err)
	}
	if len(h.notifier.errors) != 1 || h.notifier.errors[0] != msgBothFailed {
		t.Fatalf("error notifications = %q", h.notifier.errors)
	}
}

func TestRefresh_PicturesLookupFailure(t *testing.T) {
	st := settings.Defaults()
	st.AutoSaveWallpaperToPictures = true
	h := newHarness(t, st)
	h.r.picturesDir = func() (string, error) { return "", errors.New("no known folder") }

	err := h.r.Refresh(context.Background())
	var ae *ApplyOrSaveError
	if !errors.As(err, &ae) || ae.Op != opSave {
		t.Fatalf("Refresh error = %v, want save failure", err)
	}
	if len(h.wallpaper.applied) != 1 {
		t.Fatalf("wallpaper should still be applied when saving fails")
	}
	if len(h.notifier.errors) != 1 || h.notifier.errors[0] != msgSaveFailed {
		t.Fatalf("error notifications = %q", h.notifier.errors)
	}
}

func TestRefresh_Serialized(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	h.fetcher.release = make(chan struct{})
	h.fetcher.started = make(chan struct{}, 10)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.r.Refresh(context.Background())
		}()
	}

	<-h.fetcher.started
	// Give the others a chance to pile up behind the lock
	time.Sleep(20 * time.Millisecond)
	close(h.fetcher.release)
	wg.Wait()

	if got := atomic.LoadInt32(&h.fetcher.maxSeen); got != 1 {
		t.Fatalf("max concurrent fetches = %d, want 1", got)
	}
	if h.fetcher.callCount() != 5 {
		t.Fatalf("fetch calls = %d, want 5", h.fetcher.callCount())
	}
}

func TestTrigger_Coalesces(t *testing.T) {
	h := newHarness(t, settings.Defaults())

	for i := 0; i < 5; i++ {
		h.r.Trigger()
	}
	if len(h.r.trigger) != 1 {
		t.Fatalf("pending triggers = %d, want 1", len(h.r.trigger))
	}
}

func TestRun_RefreshesOnStartAndTrigger(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	h.fetcher.started = make(chan struct{}, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.r.Run(ctx)
		close(done)
	}()

	waitStarted(t, h.fetcher.started)

	if err := h.r.SetLocation("deDE"); err != nil {
		t.Fatalf("SetLocation: %v", err)
	}
	waitStarted(t, h.fetcher.started)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}

	h.fetcher.mu.Lock()
	defer h.fetcher.mu.Unlock()
	if len(h.fetcher.locations) < 2 || h.fetcher.locations[1] != "deDE" {
		t.Fatalf("fetched locations = %q, want the second for deDE", h.fetcher.locations)
	}
}

func TestRun_Ticks(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	h.r.interval = 10 * time.Millisecond
	h.fetcher.started = make(chan struct{}, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.r.Run(ctx)

	for i := 0; i < 3; i++ {
		waitStarted(t, h.fetcher.started)
	}
}

func waitStarted(t *testing.T, started chan struct{}) {
	t.Helper()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a refresh")
	}
}

func TestSetLocation_RejectsUnknown(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	if err := h.r.SetLocation("xxXX"); err == nil {
		t.Fatalf("SetLocation accepted an unknown code")
	}
	if len(h.r.trigger) != 0 {
		t.Fatalf("rejected location triggered a refresh")
	}
}

func TestSaveCurrent(t *testing.T) {
	h := newHarness(t, settings.Defaults())

	if _, err := h.r.SaveCurrent(""); !errors.Is(err, ErrNoImage) {
		t.Fatalf("SaveCurrent before refresh = %v, want ErrNoImage", err)
	}

	if err := h.r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	got, err := h.r.SaveCurrent("")
	if err != nil {
		t.Fatalf("SaveCurrent: %v", err)
	}
	if want := filepath.Join(h.pictures, "© Photographer.jpg"); got != want {
		t.Fatalf("SaveCurrent(\"\") = %q, want %q", got, want)
	}

	dir := t.TempDir()
	got, err = h.r.SaveCurrent(dir)
	if err != nil {
		t.Fatalf("SaveCurrent(dir): %v", err)
	}
	if want := filepath.Join(dir, "© Photographer.jpg"); got != want {
		t.Fatalf("SaveCurrent(dir) = %q, want %q", got, want)
	}

	got, err = h.r.SaveCurrent(filepath.Join(dir, "mine"))
	if err != nil {
		t.Fatalf("SaveCurrent(file): %v", err)
	}
	if want := filepath.Join(dir, "mine.jpg"); got != want {
		t.Fatalf("SaveCurrent(file) = %q, want %q", got, want)
	}
	if string(h.files.files[got]) != "jpeg bytes" {
		t.Fatalf("saved bytes = %q", h.files.files[got])
	}
	if h.history.saved["20240101/"] != got {
		t.Fatalf("history saved = %v", h.history.saved)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("New with no collaborators returned nil error")
	}

	h := newHarness(t, settings.Defaults())
	r, err := New(Options{
		Fetcher:     h.fetcher,
		Settings:    h.settings,
		Wallpaper:   h.wallpaper,
		Notifier:    h.notifier,
		Files:       h.files,
		PicturesDir: os.UserHomeDir,
	})
	if err != nil {
		t.Fatalf("New without history: %v", err)
	}
	if r.Interval() != DefaultInterval {
		t.Fatalf("Interval() = %v, want %v", r.Interval(), DefaultInterval)
	}
}

func TestDownload(t *testing.T) {
	st := settings.Defaults()
	st.AutoSaveWallpaperToPictures = true
	h := newHarness(t, st)

	img, err := h.r.Download(context.Background())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if img != h.r.Current() {
		t.Fatalf("Download did not set Current()")
	}
	if len(h.wallpaper.applied) != 0 || len(h.files.files) != 0 {
		t.Fatalf("Download applied or saved the image")
	}
	if len(h.notifier.infos) != 0 || len(h.notifier.errors) != 0 {
		t.Fatalf("Download sent notifications")
	}
	if len(h.history.entries) != 1 {
		t.Fatalf("history = %+v, want one entry", h.history.entries)
	}

	h.fetcher.err = &bing.FetchError{Op: "fetch metadata", Err: errors.New("offline")}
	if _, err := h.r.Download(context.Background()); err == nil {
		t.Fatalf("Download returned nil error on fetch failure")
	}
	if h.r.Current() != img {
		t.Fatalf("failed Download changed Current()")
	}
}
