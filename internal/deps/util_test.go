package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{1, "1 Bytes"},
		{1023, "1023 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{5 * 1024 * 1024 / 4, "1.25 MB"},
		{1073741824, "1 GB"},
		{3 * 1073741824 / 2, "1.5 GB"},
		{1 << 40, "1024 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatBytes(tt.in); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanupTempFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "playlistify-ffmpeg-1")
	if err := os.MkdirAll(filepath.Join(dir, "extract", "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "extract", "bin", "ffmpeg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	CleanupTempFiles(nil, dir)

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("temp directory should be removed")
	}

	// Missing and empty paths are no-ops.
	CleanupTempFiles(nil, dir)
	CleanupTempFiles(nil, "")
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "nested", "dst")

	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("a much longer previous content"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := copyFile(src, dst, 0o755); err != nil {
		t.Fatalf("copyFile() error = %v", err)
	}

	content, _ := os.ReadFile(dst)
	if string(content) != "payload" {
		t.Errorf("content = %q, want %q", content, "payload")
	}
	if !fileExists(dst) {
		t.Error("fileExists() = false for copied file")
	}
	if fileExists(dir) {
		t.Error("fileExists() = true for a directory")
	}
}
