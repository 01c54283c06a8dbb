//go:build windows
// +build windows

package bingwallpaperlib

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/go-toast/toast"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// DesktopWallpaper does not extend IDispatch so this needs to be done manually
type IDesktopWallpaperVtbl struct {
	QueryInterface            uintptr
	AddRef                    uintptr
	Release                   uintptr
	SetWallpaper              uintptr
	GetWallpaper              uintptr
	GetMonitorDevicePathAt    uintptr
	GetMonitorDevicePathCount uintptr
	GetMonitorRECT            uintptr
	SetBackgroundColor        uintptr
	GetBackgroundColor        uintptr
	SetPosition               uintptr
	GetPosition               uintptr
	SetSlideshow              uintptr
	GetSlideshow              uintptr
	SetSlideshowOptions       uintptr
	GetSlideshowOptions       uintptr
	AdvanceSlideshow          uintptr
	GetStatus                 uintptr
	Enable                    uintptr
}

// Pulled from headers
const CLSID = "{C2CF3110-460E-4fc1-B9D0-8A1C0C9CC4BD}"
const IID = "{B92B56A9-8B55-4E14-9A89-0199BBB6F93B}"

const runKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\Run`
const runValue = "BingWallpaper"

func setWallpaperFile(wallpaper string, p Position) error {
	err := setRegistryKeys()
	if err != nil {
		return err
	}

	err = ole.CoInitialize(0)
	if err != nil {
		return err
	}
	defer ole.CoUninitialize()

	desktop, err := ole.CreateInstance(
		ole.NewGUID(CLSID),
		ole.NewGUID(IID))
	if err != nil {
		return err
	}
	defer desktop.Release()

	vtable := (*IDesktopWallpaperVtbl)(unsafe.Pointer(desktop.RawVTable))

	hr, _, _ := syscall.Syscall(
		vtable.SetPosition,
		2,
		uintptr(unsafe.Pointer(desktop)),
		uintptr(p),
		0)
	if hr != 0 {
		return fmt.Errorf("Unexpected value from SetPosition %d", hr)
	}

	path, err := syscall.UTF16PtrFromString(wallpaper)
	if err != nil {
		return err
	}

	// A NULL monitor ID sets the same wallpaper on every monitor
	hr, _, _ = syscall.Syscall(
		vtable.SetWallpaper,
		3,
		uintptr(unsafe.Pointer(desktop)),
		0,
		uintptr(unsafe.Pointer(path)))
	if hr != 0 {
		return fmt.Errorf("Unexpected value from SetWallpaper %d", hr)
	}

	return nil
}

func setRegistryKeys() error {
	k, err := registry.OpenKey(registry.CURRENT_USER, `Control Panel\Desktop`, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	return k.SetDWordValue("JPEGImportQuality", 100)
}

// SetStartup adds or removes the Run key value that starts "run" on login.
func SetStartup(launch bool) error {
	k, _, err := registry.CreateKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	if !launch {
		err = k.DeleteValue(runValue)
		if err != nil && !errors.Is(err, registry.ErrNotExist) {
			return err
		}
		return nil
	}

	exe, args, err := startupCommand()
	if err != nil {
		return err
	}

	// The executable is always quoted so paths with spaces survive
	cmd := `"` + exe + `"`
	for _, a := range args {
		cmd += " " + quoteArg(a)
	}
	return k.SetStringValue(runValue, cmd)
}

func picturesDir() (string, error) {
	return windows.KnownFolderPath(windows.FOLDERID_Pictures, 0)
}

// Toasts need a registered AppUserModelID, borrow PowerShell's
const toastAppID = `{1AC14E77-02E7-4E5D-B744-2EB1AE5198B7}\WindowsPowerShell\v1.0\powershell.exe`

func pushToast(n *toast.Notification) error {
	return n.Push()
}

func notify(critical bool, text string) error {
	return notifyWith(critical, text, pushToast, os.Stdout)
}

// notifyWith shows a toast and falls back to the console when that fails.
func notifyWith(
	critical bool, text string,
	push func(*toast.Notification) error, console io.Writer) error {
	title := notificationTitle
	if critical {
		title = notificationTitle + " error"
	}

	n := &toast.Notification{
		AppID:   toastAppID,
		Title:   title,
		Message: text,
	}
	err := push(n)
	if err == nil {
		return nil
	}

	if _, cerr := fmt.Fprintf(console, "%s: %s\n", title, text); cerr != nil {
		return fmt.Errorf("toast failed: %w, console failed: %v", err, cerr)
	}
	return nil
}

func OpenURL(u string) error {
	cmd := exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	return cmd.Start()
}

const ATTACH_PARENT_PROCESS = uintptr(^uint32(0)) // (DWORD)-1

var modkernel32 = syscall.NewLazyDLL("kernel32.dll")
var procAttachConsole = modkernel32.NewProc("AttachConsole")

// Attempts to attach to the parent console if one exists so we can get stdout
// Note that it's impossible to properly redirect stdin
// See https://stackoverflow.com/questions/23743217/
func AttachParentConsole() {
	r, _, _ :=
		syscall.Syscall(procAttachConsole.Addr(), 1, ATTACH_PARENT_PROCESS, 0, 0)

	if r == 0 {
		return
	}

	hout, err := syscall.GetStdHandle(syscall.STD_OUTPUT_HANDLE)
	if err != nil {
		return
	}
	herr, err := syscall.GetStdHandle(syscall.STD_ERROR_HANDLE)
	if err != nil {
		return
	}

	os.Stdout = os.NewFile(uintptr(hout), "/dev/stdout")
	os.Stderr = os.NewFile(uintptr(herr), "/dev/stderr")
}
