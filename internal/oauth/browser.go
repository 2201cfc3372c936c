package oauth

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"qwenauth/pkg/logging"
)

// browserLauncher starts the browser command. Tests replace it.
var browserLauncher = func(cmd *exec.Cmd) error {
	return cmd.Start()
}

// OpenBrowser opens the specified URL in the default web browser.
// It supports Linux, macOS, and Windows, and does not wait for the
// browser to exit.
func OpenBrowser(rawURL string) error {
	if rawURL == "" {
		return errors.New("browser URL cannot be empty")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid browser URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("refusing to open URL with scheme %q", parsed.Scheme)
	}

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", rawURL)
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := browserLauncher(cmd); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// OpenBrowserBestEffort opens url and only logs a failure. The user can
// always open the printed URL by hand.
func OpenBrowserBestEffort(url string) {
	if err := OpenBrowser(url); err != nil {
		logging.Debug("OAuth", "Could not open browser: %v", err)
	}
}
