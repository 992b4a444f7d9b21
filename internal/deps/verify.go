package deps

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork

	"github.com/playlistify/playlistify/internal/logging"
)

// DefaultVersionTimeout bounds a version probe. The child is killed when it
// expires.
const DefaultVersionTimeout = 10 * time.Second

// versionProbeTimeout is a variable so tests can shorten it.
var versionProbeTimeout = DefaultVersionTimeout

var versionPattern = regexp.MustCompile(`\d+\.[\d.]+`)

// ValidateBinary reports whether binaryPath exists as a regular file that
// is readable and executable. Any error yields false.
func ValidateBinary(binaryPath string) bool {
	info, err := os.Stat(binaryPath)
	if err != nil {
		return false
	}
	if !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}

	perm := info.Mode().Perm()
	return perm&0o444 != 0 && perm&0o111 != 0
}

// BinaryVersion runs binaryPath with args (default "--version") and returns
// the first dotted version number found in its output, or the first output
// line when none matches. It fails on spawn errors, on timeout, and on a
// non-zero exit that produced no output.
func BinaryVersion(ctx context.Context, binaryPath string, args ...string) (string, error) {
	if len(args) == 0 {
		args = []string{"--version"}
	}

	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	runErr := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("version probe timed out after %s", versionProbeTimeout)
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return "", fmt.Errorf("run %s: %w", filepath.Base(binaryPath), runErr)
	}

	output := strings.TrimSpace(stdout.String())
	if output == "" {
		output = strings.TrimSpace(stderr.String())
	}
	if output == "" {
		if runErr != nil {
			return "", fmt.Errorf("run %s: %w", filepath.Base(binaryPath), runErr)
		}
		return "", fmt.Errorf("%s produced no version output", filepath.Base(binaryPath))
	}

	return parseVersion(output), nil
}

func parseVersion(output string) string {
	if m := versionPattern.FindString(output); m != "" {
		return strings.TrimRight(m, ".")
	}
	line, _, _ := strings.Cut(output, "\n")
	return strings.TrimSpace(line)
}

// Verifier checks downloaded artifacts against a SHA-256 manifest and,
// when a keyring is configured, the manifest's OpenPGP signature.
type Verifier struct {
	keyringPath string
	log         logging.Logger
}

// NewVerifier creates a new verifier. keyringPath may be empty, which
// disables signature checks.
func NewVerifier(keyringPath string, log logging.Logger) *Verifier {
	return &Verifier{
		keyringPath: keyringPath,
		log:         logging.OrNop(log),
	}
}

// HasKeyring reports whether signature verification is possible.
func (v *Verifier) HasKeyring() bool {
	return v != nil && v.keyringPath != ""
}

// VerifyChecksum compares the SHA-256 of artifactPath with the entry for
// filename in manifestPath.
func (v *Verifier) VerifyChecksum(artifactPath, manifestPath, filename string) error {
	expected, err := findChecksum(manifestPath, filename)
	if err != nil {
		return newError(KindValidation, "verify checksum", err)
	}

	actual, err := calculateSHA256(artifactPath)
	if err != nil {
		return newError(KindValidation, "verify checksum", fmt.Errorf("calculate checksum: %w", err))
	}

	if !strings.EqualFold(actual, expected) {
		return newError(KindValidation, "verify checksum",
			fmt.Errorf("checksum mismatch for %s:\nactual:   %s\nexpected: %s", filename, actual, expected))
	}

	v.log.Debug("checksum verified", "file", filename, "sha256", actual)
	return nil
}

// VerifySignature checks a detached signature (armored or binary) of
// signedPath against the configured keyring.
func (v *Verifier) VerifySignature(signedPath, signaturePath string) error {
	if !v.HasKeyring() {
		return newError(KindValidation, "verify signature", errors.New("no keyring configured"))
	}

	keyring, err := loadKeyring(v.keyringPath)
	if err != nil {
		return newError(KindValidation, "verify signature", err)
	}

	signed, err := os.Open(signedPath)
	if err != nil {
		return newError(KindValidation, "verify signature", fmt.Errorf("open signed file: %w", err))
	}
	defer signed.Close()

	sig, err := os.Open(signaturePath)
	if err != nil {
		return newError(KindValidation, "verify signature", fmt.Errorf("open signature: %w", err))
	}
	defer sig.Close()

	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, signed, sig, nil)
	if err != nil {
		if _, serr := signed.Seek(0, io.SeekStart); serr != nil {
			return newError(KindValidation, "verify signature", serr)
		}
		if _, serr := sig.Seek(0, io.SeekStart); serr != nil {
			return newError(KindValidation, "verify signature", serr)
		}
		signer, err = openpgp.CheckDetachedSignature(keyring, signed, sig, nil)
	}
	if err != nil {
		return newError(KindValidation, "verify signature", err)
	}

	if signer != nil && signer.PrimaryKey != nil {
		v.log.Debug("signature verified", "file", filepath.Base(signedPath), "key", signer.PrimaryKey.KeyIdString())
	}
	return nil
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// findChecksum finds the checksum for filename in a manifest of
// "<hex>  <name>" lines. A leading "*" (binary mode marker) and directory
// prefixes on the name are ignored.
func findChecksum(manifestPath, filename string) (string, error) {
	file, err := os.Open(manifestPath)
	if err != nil {
		return "", fmt.Errorf("open checksum file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		name := strings.TrimPrefix(parts[1], "*")
		if name == filename || filepath.Base(filepath.FromSlash(name)) == filename {
			return parts[0], nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum file: %w", err)
	}

	return "", fmt.Errorf("checksum not found for %s", filename)
}
