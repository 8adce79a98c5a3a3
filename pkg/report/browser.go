package report

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
)

// OpenCommand returns the platform command that opens path in the default
// browser.
func OpenCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	default:
		return "xdg-open", []string{path}
	}
}

// Open launches the default browser on path without waiting for it.
func Open(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	name, args := OpenCommand(runtime.GOOS, abs)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", abs, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
