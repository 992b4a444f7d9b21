package deps

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ulikunitz/xz"
)

// ArchiveFormat identifies how an artifact must be unpacked.
type ArchiveFormat int

const (
	FormatNone ArchiveFormat = iota // plain executable, no extension or .exe
	FormatZip
	FormatTar
	FormatTarGz
	FormatTarXz
	FormatUnknown
)

// DetectFormat classifies an artifact by its filename suffix.
func DetectFormat(filename string) ArchiveFormat {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return FormatTarXz
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || ext == ".exe" {
		return FormatNone
	}
	return FormatUnknown
}

// ExtractArchive unpacks archivePath into destDir based on its suffix.
func ExtractArchive(archivePath, destDir string) error {
	switch DetectFormat(archivePath) {
	case FormatZip:
		return ExtractZip(archivePath, destDir)
	case FormatTar, FormatTarGz, FormatTarXz:
		return ExtractTar(archivePath, destDir)
	default:
		return newError(KindExtraction, "extract",
			fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath)))
	}
}

// ExtractZip extracts a zip archive into destDir, creating it if needed and
// overwriting existing files. Entry paths are kept as-is.
func ExtractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return newError(KindExtraction, "open zip", err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return newError(KindFileSystem, "create extract dir", err)
	}

	for _, f := range r.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return newError(KindExtraction, "extract zip", err)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return newError(KindFileSystem, "create directory", err)
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}

		if err := extractZipEntry(f, target); err != nil {
			return newError(KindExtraction, "extract "+f.Name, err)
		}
	}

	return nil
}

func extractZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ExtractTar extracts .tar, .tar.gz/.tgz and .tar.xz/.txz archives into
// destDir. The outermost directory level of every entry is stripped so the
// extracted tree matches the zip layout.
func ExtractTar(tarPath, destDir string) error {
	f, err := os.Open(tarPath)
	if err != nil {
		return newError(KindExtraction, "open archive", err)
	}
	defer f.Close()

	var r io.Reader
	switch DetectFormat(tarPath) {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return newError(KindExtraction, "create gzip reader", err)
		}
		defer gz.Close()
		r = gz
	case FormatTarXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return newError(KindExtraction, "create xz reader", err)
		}
		r = xr
	case FormatTar:
		r = f
	default:
		return newError(KindExtraction, "extract",
			fmt.Errorf("unsupported tar format: %s", filepath.Base(tarPath)))
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return newError(KindFileSystem, "create extract dir", err)
	}

	if err := extractTarStream(r, destDir, 1); err != nil {
		return newError(KindExtraction, "extract "+filepath.Base(tarPath), err)
	}
	return nil
}

func extractTarStream(r io.Reader, destDir string, strip int) error {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		name, ok := stripComponents(header.Name, strip)
		if !ok {
			continue
		}

		target, err := safeJoin(destDir, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}

			mode := os.FileMode(header.Mode).Perm()
			if mode == 0 {
				mode = 0o644
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
			if err != nil {
				return fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("write file %s: %w", target, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("close file %s: %w", target, err)
			}

		case tar.TypeSymlink:
			// Only links that stay inside the extracted tree are recreated.
			if filepath.IsAbs(header.Linkname) {
				continue
			}
			if !withinDir(destDir, filepath.Join(filepath.Dir(target), header.Linkname)) {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			_ = os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		default:
			// char devices, fifos, hard links and PAX metadata are skipped
			continue
		}
	}
}

// stripComponents drops the first n path elements of an archive entry name.
// ok is false when nothing remains.
func stripComponents(name string, n int) (string, bool) {
	clean := path.Clean(strings.TrimPrefix(filepath.ToSlash(name), "./"))
	if clean == "." || clean == "/" {
		return "", false
	}
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	if len(parts) <= n {
		return "", false
	}
	return path.Join(parts[n:]...), true
}

// safeJoin joins name onto dir and rejects results escaping dir.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	if !withinDir(dir, target) {
		return "", fmt.Errorf("illegal file path: %s", name)
	}
	return target, nil
}

func withinDir(dir, p string) bool {
	base := filepath.Clean(dir)
	p = filepath.Clean(p)
	return p == base || strings.HasPrefix(p, base+string(os.PathSeparator))
}

// MakeExecutable sets mode 0o755 on path. It is a no-op on Windows.
func MakeExecutable(filePath string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := os.Chmod(filePath, executablePermissions); err != nil {
		return newError(KindFileSystem, "set executable", err)
	}
	return nil
}

// FindExecutable searches root depth-first for a file named exactly
// executable. At each level subdirectories are searched before the files of
// that level. On Windows the comparison is case-insensitive and a missing
// ".exe" suffix on executable is tolerated.
func FindExecutable(root, executable, goos string) (string, error) {
	found, err := findExecutable(root, executable, goos)
	if err != nil {
		return "", newError(KindExtraction, "search executable", err)
	}
	if found == "" {
		return "", newError(KindExtraction, "search executable",
			fmt.Errorf("%s not found in extracted archive", executable))
	}
	return found, nil
}

func findExecutable(dir, executable, goos string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		found, err := findExecutable(filepath.Join(dir, e.Name()), executable, goos)
		if err != nil {
			return "", err
		}
		if found != "" {
			return found, nil
		}
	}

	for _, e := range entries {
		if e.IsDir() || !e.Type().IsRegular() {
			continue
		}
		if matchesExecutable(e.Name(), executable, goos) {
			return filepath.Join(dir, e.Name()), nil
		}
	}

	return "", nil
}

func matchesExecutable(name, executable, goos string) bool {
	if name == executable {
		return true
	}
	if goos != "windows" {
		return false
	}
	if strings.EqualFold(name, executable) {
		return true
	}
	return !strings.HasSuffix(strings.ToLower(executable), ".exe") &&
		strings.EqualFold(name, executable+".exe")
}
