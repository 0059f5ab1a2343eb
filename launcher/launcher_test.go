package launcher_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rednimgames/rose-updater/launcher"
)

func TestLaunchRejectsMissingExecutable(t *testing.T) {
	dir := t.TempDir()
	err := launcher.Launch(dir, "does-not-exist", nil)
	if err == nil {
		t.Fatalf("expected error for missing executable")
	}
}

func TestLaunchResolvesRelativeToInstallRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses a unix shebang script")
	}

	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "game.sh")
	script := "#!/bin/sh\nsleep 1\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := launcher.Launch(dir, "game.sh", []string{"--windowed"}); err != nil {
		t.Fatalf("Launch: %v", err)
	}
}

func TestLaunchAcceptsAbsolutePath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses a unix shebang script")
	}

	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "game.sh")
	script := "#!/bin/sh\nsleep 1\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := launcher.Launch("/nonexistent-root", scriptPath, nil); err != nil {
		t.Fatalf("Launch: %v", err)
	}
}
