package auth

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openBrowser launches the system default web browser at url and returns
// without waiting for it. Callers must print the URL as well: headless
// environments have no browser to open, and the user then follows the link
// from another machine while the callback server keeps waiting.
func openBrowser(url string) error {
	var name string
	var args []string

	switch runtime.GOOS {
	case "linux":
		name = "xdg-open"
		args = []string{url}
	case "darwin":
		name = "open"
		args = []string{url}
	case "windows":
		name = "cmd"
		args = []string{"/c", "start", url}
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
