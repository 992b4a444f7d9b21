package deps

import "time"

// Name identifies a managed external tool.
type Name string

const (
	// NameYtDlp is the playlist/video downloader.
	NameYtDlp Name = "ytdlp"
	// NameFFmpeg is the media transcoder.
	NameFFmpeg Name = "ffmpeg"
)

// String returns the string representation of the name
func (n Name) String() string {
	return string(n)
}

// Valid reports whether n is one of the managed dependencies.
func (n Name) Valid() bool {
	return n == NameYtDlp || n == NameFFmpeg
}

// AllNames returns every managed dependency in a fixed order.
func AllNames() []Name {
	return []Name{NameYtDlp, NameFFmpeg}
}

// ParseName converts user input such as "yt-dlp" or "FFmpeg" into a Name.
func ParseName(s string) (Name, bool) {
	switch s {
	case "ytdlp", "yt-dlp", "YtDlp", "yt_dlp":
		return NameYtDlp, true
	case "ffmpeg", "FFmpeg", "FFMPEG":
		return NameFFmpeg, true
	default:
		return "", false
	}
}

// PlatformConfig describes where to fetch one dependency for the current
// platform and what the placed executable is called.
type PlatformConfig struct {
	DownloadURL    string
	Filename       string // artifact name inside the temp dir
	ExecutableName string
	VersionArgs    []string
	// ChecksumURL points at a SHA-256 manifest ("<hex>  <filename>" lines).
	// Empty skips checksum verification.
	ChecksumURL string
	// SignatureURL points at a detached OpenPGP signature of the manifest.
	// Ignored unless ChecksumURL is set and a keyring is configured.
	SignatureURL string
}

// DependencyConfig holds the resolved PlatformConfig of every dependency.
type DependencyConfig map[Name]PlatformConfig

// Status is the result of one health check. A new value is produced on
// every check.
type Status struct {
	Name      Name
	Path      string
	Installed bool
	Valid     bool
	Version   string
	Error     string
}

// Ready reports whether the dependency is installed and valid.
func (s Status) Ready() bool {
	return s.Installed && s.Valid
}

// ProgressStatus is the phase reported in a Progress event.
type ProgressStatus string

const (
	ProgressStarting    ProgressStatus = "starting"
	ProgressDownloading ProgressStatus = "downloading"
	ProgressExtracting  ProgressStatus = "extracting"
	ProgressCompleted   ProgressStatus = "completed"
	ProgressFailed      ProgressStatus = "failed"
	ProgressCancelled   ProgressStatus = "cancelled"
)

// Progress is a transient download/install progress report.
type Progress struct {
	Dependency Name
	Progress   int // 0-100
	Status     ProgressStatus
	Message    string
}

// ProgressFunc receives progress reports.
type ProgressFunc func(Progress)

// Location says where a located executable lives.
type Location string

const (
	LocationSystem  Location = "system"
	LocationBundled Location = "bundled"
)

// InstallationResult is produced by Locate for standalone verification.
type InstallationResult struct {
	Installed bool
	Location  Location
	Path      string
	Err       error
}

// Clock provides time operations. This interface enables deterministic testing.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}
