package deps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/playlistify/playlistify/internal/logging"
)

// Config holds configuration for the dependency manager
type Config struct {
	// Resolver supplies per-platform URLs and install paths (required).
	Resolver *Resolver
	// Downloader defaults to NewDownloader with default options.
	Downloader *Downloader
	// Verifier defaults to a verifier without keyring.
	Verifier *Verifier
	Logger   logging.Logger
	Clock    Clock
	// TempDir is where per-install scratch directories are created
	// (default os.TempDir()).
	TempDir string
	// Retry defaults to DefaultRetryPolicy.
	Retry *RetryPolicy
	// MetadataTimeout bounds checksum and signature downloads.
	MetadataTimeout time.Duration
}

// Manager installs, checks and removes the managed dependencies. It owns
// the cached status of every dependency. Installs of different
// dependencies may run concurrently; a second concurrent install of the
// same dependency is rejected with ErrInstallInProgress.
type Manager struct {
	resolver        *Resolver
	downloader      *Downloader
	verifier        *Verifier
	log             logging.Logger
	clock           Clock
	tempDir         string
	retry           RetryPolicy
	metadataTimeout time.Duration

	events emitter

	mu          sync.RWMutex
	status      map[Name]Status
	initialized bool
}

// NewManager creates a new dependency manager
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}

	log := logging.OrNop(cfg.Logger)

	m := &Manager{
		resolver:        cfg.Resolver,
		downloader:      cfg.Downloader,
		verifier:        cfg.Verifier,
		log:             log,
		clock:           cfg.Clock,
		tempDir:         cfg.TempDir,
		metadataTimeout: cfg.MetadataTimeout,
		status:          make(map[Name]Status),
	}

	if m.downloader == nil {
		m.downloader = NewDownloader(DownloaderOptions{Logger: log})
	}
	if m.verifier == nil {
		m.verifier = NewVerifier("", log)
	}
	if m.clock == nil {
		m.clock = RealClock{}
	}
	if m.tempDir == "" {
		m.tempDir = os.TempDir()
	}
	if m.metadataTimeout <= 0 {
		m.metadataTimeout = DefaultMetadataTimeout
	}
	if cfg.Retry != nil {
		m.retry = *cfg.Retry
	} else {
		m.retry = DefaultRetryPolicy()
	}

	return m, nil
}

// Subscribe registers l for all events and returns a func that removes it.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	return m.events.subscribe(l)
}

// Resolver returns the platform resolver the manager was built with.
func (m *Manager) Resolver() *Resolver {
	return m.resolver
}

func (m *Manager) unsupportedPlatform(op string) error {
	info := m.resolver.Platform()
	return &Error{
		Kind: KindUnsupportedPlatform,
		Op:   op,
		Err:  fmt.Errorf("%s/%s is not supported (supported: windows, darwin, linux)", info.OS, info.Arch),
	}
}

// Initialize verifies platform support, creates the dependencies root,
// runs an initial check and emits EventInitialized.
func (m *Manager) Initialize(ctx context.Context) error {
	if !m.resolver.IsPlatformSupported() {
		return m.unsupportedPlatform("initialize")
	}

	root := m.resolver.DependenciesRoot()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return newError(KindFileSystem, "create dependencies root", err)
	}

	if _, err := m.CheckDependencies(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()

	m.log.Info("dependency manager initialized", "root", root)
	m.events.emit(Event{Type: EventInitialized})
	return nil
}

// CheckDependencies checks every dependency concurrently, replaces the
// cached status, emits EventStatusUpdated and returns the new snapshot.
// Individual check failures are reported inside the returned statuses; an
// error is returned only for an unsupported platform.
func (m *Manager) CheckDependencies(ctx context.Context) (map[Name]Status, error) {
	if !m.resolver.IsPlatformSupported() {
		return nil, m.unsupportedPlatform("check dependencies")
	}

	names := AllNames()
	results := make([]Status, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = m.checkSingleDependency(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	status := make(map[Name]Status, len(results))
	for _, st := range results {
		status[st.Name] = st
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()

	snapshot := copyStatus(status)
	m.events.emit(Event{Type: EventStatusUpdated, Status: copyStatus(status)})
	return snapshot, nil
}

// checkSingleDependency never fails: problems end up in Status.Error.
func (m *Manager) checkSingleDependency(ctx context.Context, name Name) (st Status) {
	path := m.resolver.ExecutablePath(name)
	st = Status{Name: name, Path: path}

	defer func() {
		if r := recover(); r != nil {
			st = Status{Name: name, Path: path, Error: fmt.Sprintf("check panicked: %v", r)}
		}
	}()

	cfg, err := m.resolver.Config(name)
	if err != nil {
		st.Error = err.Error()
		return st
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			st.Error = err.Error()
		}
		return st
	}
	st.Installed = true

	if !ValidateBinary(path) {
		st.Error = "binary is not executable"
		return st
	}

	version, err := BinaryVersion(ctx, path, cfg.VersionArgs...)
	if err != nil {
		st.Error = err.Error()
		return st
	}

	st.Valid = true
	st.Version = version
	return st
}

// InstallDependency downloads, verifies, extracts and places name, then
// refreshes the cached status. Events: installStarted, downloadProgress
// (download and extraction start), then installCompleted or installFailed.
// The temp directory is always removed; a failed install may leave a
// partial install directory behind.
func (m *Manager) InstallDependency(ctx context.Context, name Name) error {
	if !name.Valid() {
		return &Error{Kind: KindInstallation, Dependency: name, Op: "install", Err: errors.New("unknown dependency")}
	}
	if !m.resolver.IsPlatformSupported() {
		return m.unsupportedPlatform("install " + name.String())
	}

	installID := uuid.NewString()

	lock, err := acquireInstallLock(m.resolver.DependenciesRoot(), name, installID)
	if err != nil {
		return &Error{Kind: KindInstallation, Dependency: name, Op: "install", Err: err}
	}
	defer func() {
		if err := lock.release(); err != nil {
			m.log.Warn("failed to release install lock", "dependency", name, "error", err)
		}
	}()

	m.log.Info("installing dependency", "dependency", name, "install_id", installID)
	m.events.emit(Event{Type: EventInstallStarted, Dependency: name})

	if err := m.install(ctx, name, installID); err != nil {
		wrapped := &Error{Kind: KindInstallation, Dependency: name, Op: "install", Err: err}
		m.log.Error("dependency install failed", "dependency", name, "install_id", installID, "error", err)
		m.events.emit(Event{Type: EventInstallFailed, Dependency: name, Err: wrapped})
		return wrapped
	}

	m.log.Info("dependency installed", "dependency", name, "install_id", installID)
	m.events.emit(Event{Type: EventInstallCompleted, Dependency: name})
	return nil
}

func (m *Manager) install(ctx context.Context, name Name, installID string) error {
	cfg, err := m.resolver.Config(name)
	if err != nil {
		return err
	}

	installDir := m.resolver.DependencyDirectory(name)
	binDir := m.resolver.BinDirectory(name)
	tempDir := filepath.Join(m.tempDir, fmt.Sprintf("playlistify-%s-%d", name, m.clock.Now().UnixMilli()))
	defer CleanupTempFiles(m.log, tempDir)

	if err := os.RemoveAll(installDir); err != nil {
		return newError(KindFileSystem, "remove previous install", err)
	}
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return newError(KindFileSystem, "create install dir", err)
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return newError(KindFileSystem, "create temp dir", err)
	}

	if !m.downloader.CheckURLAccessibility(ctx, cfg.DownloadURL) {
		return newError(KindDownload, "probe",
			fmt.Errorf("download URL is not accessible: %s", cfg.DownloadURL))
	}

	m.emitProgress(name, 0, ProgressStarting, "Starting download of "+cfg.Filename)

	artifact := filepath.Join(tempDir, cfg.Filename)
	policy := m.retry
	policy.OnRetry = func(err error, wait time.Duration) {
		m.log.Warn("download attempt failed, retrying",
			"dependency", name, "install_id", installID, "wait", wait, "error", err)
	}
	err = RetryWithBackoff(ctx, policy, func() error {
		return m.downloader.DownloadFile(ctx, cfg.DownloadURL, artifact, func(p Progress) {
			p.Dependency = name
			m.events.emit(Event{Type: EventDownloadProgress, Dependency: name, Progress: p})
		})
	})
	if err != nil {
		return err
	}

	if err := m.verifyArtifact(ctx, name, cfg, artifact, tempDir); err != nil {
		return err
	}

	m.emitProgress(name, 100, ProgressExtracting, "Extracting "+cfg.Filename)

	if err := m.extractAndInstall(name, cfg, artifact, tempDir, binDir); err != nil {
		return err
	}

	exe := m.resolver.ExecutablePath(name)
	if !ValidateBinary(exe) {
		return newError(KindValidation, "validate", fmt.Errorf("%s is missing or not executable", exe))
	}
	version, err := BinaryVersion(ctx, exe, cfg.VersionArgs...)
	if err != nil {
		return newError(KindValidation, "validate", err)
	}
	m.log.Debug("installed binary validated", "dependency", name, "version", version, "path", exe)

	if _, err := m.CheckDependencies(ctx); err != nil {
		return err
	}
	return nil
}

// verifyArtifact checks the artifact against the configured checksum
// manifest, verifying the manifest's signature first when possible.
func (m *Manager) verifyArtifact(ctx context.Context, name Name, cfg PlatformConfig, artifact, tempDir string) error {
	if cfg.ChecksumURL == "" {
		return nil
	}

	manifest := filepath.Join(tempDir, "checksums.txt")
	if err := m.downloader.DownloadFileWithTimeout(ctx, cfg.ChecksumURL, manifest, m.metadataTimeout, nil); err != nil {
		return err
	}

	switch {
	case cfg.SignatureURL == "":
	case !m.verifier.HasKeyring():
		m.log.Debug("no keyring configured, skipping signature check", "dependency", name)
	default:
		sig := manifest + ".sig"
		if err := m.downloader.DownloadFileWithTimeout(ctx, cfg.SignatureURL, sig, m.metadataTimeout, nil); err != nil {
			return err
		}
		if err := m.verifier.VerifySignature(manifest, sig); err != nil {
			return err
		}
	}

	return m.verifier.VerifyChecksum(artifact, manifest, cfg.Filename)
}

// extractAndInstall places the executable into binDir. The downloader tool
// ships as a bare executable; the transcoder ships as an archive that is
// unpacked and searched.
func (m *Manager) extractAndInstall(name Name, cfg PlatformConfig, artifact, tempDir, binDir string) error {
	target := filepath.Join(binDir, cfg.ExecutableName)
	format := DetectFormat(cfg.Filename)

	source := artifact
	switch name {
	case NameYtDlp:
		if format != FormatNone {
			return newError(KindExtraction, "install",
				fmt.Errorf("unexpected package format for %s: %s", name, cfg.Filename))
		}

	case NameFFmpeg:
		switch format {
		case FormatZip, FormatTar, FormatTarGz, FormatTarXz:
		default:
			return newError(KindExtraction, "install",
				fmt.Errorf("unsupported archive format for %s: %s", name, cfg.Filename))
		}

		scratch := filepath.Join(tempDir, "extract")
		if err := ExtractArchive(artifact, scratch); err != nil {
			return err
		}

		found, err := FindExecutable(scratch, cfg.ExecutableName, m.resolver.Platform().OS)
		if err != nil {
			return err
		}
		m.log.Debug("found executable in archive", "dependency", name, "path", found)
		source = found

	default:
		return newError(KindInstallation, "install", fmt.Errorf("unknown dependency: %s", name))
	}

	if err := copyFile(source, target, executablePermissions); err != nil {
		return newError(KindFileSystem, "place executable", err)
	}
	return MakeExecutable(target)
}

func (m *Manager) emitProgress(name Name, pct int, status ProgressStatus, msg string) {
	m.events.emit(Event{
		Type:       EventDownloadProgress,
		Dependency: name,
		Progress:   Progress{Dependency: name, Progress: pct, Status: status, Message: msg},
	})
}

// ValidateDependency reports whether the installed executable exists, is
// executable and answers a version probe.
func (m *Manager) ValidateDependency(ctx context.Context, name Name) bool {
	cfg, err := m.resolver.Config(name)
	if err != nil {
		return false
	}
	path := m.resolver.ExecutablePath(name)
	if !ValidateBinary(path) {
		return false
	}
	_, err = BinaryVersion(ctx, path, cfg.VersionArgs...)
	return err == nil
}

// DependencyVersion returns the installed version of name, or "" when it
// cannot be determined.
func (m *Manager) DependencyVersion(ctx context.Context, name Name) string {
	cfg, err := m.resolver.Config(name)
	if err != nil {
		return ""
	}
	version, err := BinaryVersion(ctx, m.resolver.ExecutablePath(name), cfg.VersionArgs...)
	if err != nil {
		m.log.Debug("version probe failed", "dependency", name, "error", err)
		return ""
	}
	return version
}

// CleanupDependencies deletes the dependencies root, resets the cached
// status, re-checks and emits EventDependenciesCleanedUp.
func (m *Manager) CleanupDependencies(ctx context.Context) error {
	root := m.resolver.DependenciesRoot()
	if err := os.RemoveAll(root); err != nil {
		return newError(KindFileSystem, "remove dependencies root", err)
	}

	m.mu.Lock()
	m.status = make(map[Name]Status)
	m.mu.Unlock()

	if _, err := m.CheckDependencies(ctx); err != nil {
		return err
	}

	m.log.Info("dependencies cleaned up", "root", root)
	m.events.emit(Event{Type: EventDependenciesCleanedUp})
	return nil
}

// DependencyStatus returns a copy of the last known status of every
// dependency.
func (m *Manager) DependencyStatus() map[Name]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyStatus(m.status)
}

// IsInitialized reports whether Initialize completed successfully.
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// AreAllDependenciesReady reports whether every dependency is cached as
// installed and valid.
func (m *Manager) AreAllDependenciesReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range AllNames() {
		if !m.status[name].Ready() {
			return false
		}
	}
	return true
}

func copyStatus(in map[Name]Status) map[Name]Status {
	out := make(map[Name]Status, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
