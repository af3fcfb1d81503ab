// Package browser opens URLs in the user's default browser.
package browser

import (
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"
)

// Open launches the default browser on url. Failures are logged, never
// returned; a missing browser must not break report generation.
func Open(url string, logger zerolog.Logger) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	if err := cmd.Start(); err != nil {
		logger.Error().Err(err).Str("url", url).Msg("Failed to open browser")
		return
	}
	// Reap the child in the background so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
}
