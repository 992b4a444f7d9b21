package deps

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/playlistify/playlistify/internal/platform"
)

// archiveFile is one entry of a test archive.
type archiveFile struct {
	Name    string
	Content string
	Mode    os.FileMode
}

func hostInfo() *platform.Info {
	return &platform.Info{OS: runtime.GOOS, Arch: platform.ArchAMD64, ArchRaw: "amd64"}
}

func newTestResolver(t *testing.T, dataDir string, overrides map[Name]Override) *Resolver {
	t.Helper()

	r, err := NewResolver(hostInfo(), dataDir, overrides)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
}

// writeScript writes an executable shell script at path.
func writeScript(t *testing.T, path, body string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create script dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
}

func createTestZip(t *testing.T, path string, files []archiveFile) {
	t.Helper()

	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create zip: %v", err)
	}

	zw := zip.NewWriter(out)
	for _, f := range files {
		hdr := &zip.FileHeader{Name: f.Name, Method: zip.Deflate}
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}
		hdr.SetMode(mode)

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("failed to add %s: %v", f.Name, err)
		}
		if _, err := io.WriteString(w, f.Content); err != nil {
			t.Fatalf("failed to write %s: %v", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
}

// createTestTar writes a tar archive compressed according to path's suffix.
// Writers are closed before returning so the archive is complete on disk.
func createTestTar(t *testing.T, path string, files []archiveFile) {
	t.Helper()

	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}

	var (
		w     io.Writer = out
		outer io.Closer
	)
	switch DetectFormat(path) {
	case FormatTarGz:
		gz := gzip.NewWriter(out)
		w, outer = gz, gz
	case FormatTarXz:
		xw, err := xz.NewWriter(out)
		if err != nil {
			t.Fatalf("failed to create xz writer: %v", err)
		}
		w, outer = xw, xw
	}

	tw := tar.NewWriter(w)
	for _, f := range files {
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}
		hdr := &tar.Header{
			Name:     f.Name,
			Mode:     int64(mode),
			Size:     int64(len(f.Content)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write header for %s: %v", f.Name, err)
		}
		if _, err := io.WriteString(tw, f.Content); err != nil {
			t.Fatalf("failed to write content for %s: %v", f.Name, err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	if outer != nil {
		if err := outer.Close(); err != nil {
			t.Fatalf("failed to close compressor: %v", err)
		}
	}
	if err := out.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}
}
