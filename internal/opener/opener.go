// Package opener hands local files to the desktop's default viewer.
package opener

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// start launches the viewer without waiting for it. Replaced in tests.
var start = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open shows the file at path with the platform's default application.
// Only existing regular files are accepted.
func Open(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", abs, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("refusing to open %s: not a regular file", abs)
	}

	switch runtime.GOOS {
	case "darwin":
		return start("open", abs)
	case "windows":
		// rundll32 avoids shell interpretation of the path
		return start("rundll32", "url.dll,FileProtocolHandler", abs)
	default:
		return start("xdg-open", abs)
	}
}
