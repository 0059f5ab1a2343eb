// Package launcher implements the thin post-sync process-launch hook
// named by the updater's --launch flag: once a sync completes
// successfully, start the game binary and exit.
package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Launch starts exe (resolved relative to installRoot if not already
// absolute) with the given arguments, inheriting the current
// process's standard streams, and returns once the child has started.
// It does not wait for the child to exit.
func Launch(installRoot, exe string, args []string) error {
	path := exe
	if !filepath.IsAbs(path) {
		path = filepath.Join(installRoot, path)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("launcher: %w", err)
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = filepath.Dir(path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launcher: starting %s: %w", path, err)
	}
	return nil
}
