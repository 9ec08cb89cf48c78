package engine

import (
	"os/exec"
	"runtime"
)

// Environment abstracts the running platform's SDK capabilities (store
// page, external URLs), so the rest of the engine never branches on
// "are we running under Steam" directly.
type Environment interface {
	// Name identifies the environment for debugging/logging.
	Name() string
	// CanOpenStorePage reports whether OpenStorePage is meaningful here.
	CanOpenStorePage() bool
	// OpenStorePage opens the game's store page, if supported.
	OpenStorePage(url string) bool
	// CanOpenURL reports whether OpenURL is meaningful here.
	CanOpenURL() bool
	// OpenURL opens url in the platform's default handler.
	OpenURL(url string) bool
}

// DefaultEnvironment is the environment used when no richer SDK
// integration (e.g. Steam) is present or ready. A storefront-specific
// Environment is a Non-goal here: none of the retrieved examples carry a
// Go Steamworks binding to ground one on.
type DefaultEnvironment struct{}

// Name identifies this environment for debugging/logging.
func (DefaultEnvironment) Name() string { return "default" }

// CanOpenStorePage reports that the default environment has no
// storefront of its own to open.
func (DefaultEnvironment) CanOpenStorePage() bool { return false }

// OpenStorePage always fails in the default environment.
func (DefaultEnvironment) OpenStorePage(string) bool { return false }

// CanOpenURL reports that the default environment can hand a URL to the
// OS's preferred opener.
func (DefaultEnvironment) CanOpenURL() bool { return true }

// OpenURL hands url to the platform's default opener (xdg-open, open, or
// start, depending on GOOS). Returns false if no opener is known for the
// current platform or it fails to launch.
func (DefaultEnvironment) OpenURL(url string) bool {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start() == nil
}
