// Package testutil provides utilities for testing playlistify in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// EnvTestMode marks a process as running under test.
const EnvTestMode = "PLAYLISTIFY_TEST_MODE"

// Env describes the isolated directories created by SetupTestEnv.
type Env struct {
	// DataDir is exported as PLAYLISTIFY_DATA_DIR.
	DataDir string
	// TempDir is exported as TMPDIR; install scratch dirs land here.
	TempDir string
	// BinDir is the only entry on PATH, so no system yt-dlp or ffmpeg
	// is ever found unless a test puts one there.
	BinDir string
}

// SetupTestEnv creates isolated test directories for each test.
// This ensures tests never touch the user's real data directory or pick
// up tools installed on the host.
//
// The cleanup function is automatically handled by t.TempDir(),
// so callers don't need to manually clean up.
func SetupTestEnv(t *testing.T) Env {
	t.Helper()

	tmpDir := t.TempDir()

	env := Env{
		DataDir: filepath.Join(tmpDir, "data"),
		TempDir: filepath.Join(tmpDir, "tmp"),
		BinDir:  filepath.Join(tmpDir, "bin"),
	}

	for _, dir := range []string{env.DataDir, env.TempDir, env.BinDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	t.Setenv("PLAYLISTIFY_DATA_DIR", env.DataDir)
	t.Setenv("TMPDIR", env.TempDir)
	t.Setenv("PATH", env.BinDir)
	t.Setenv(EnvTestMode, "1")

	return env
}
