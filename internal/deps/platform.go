package deps

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/playlistify/playlistify/internal/platform"
)

const (
	ytdlpReleaseBase  = "https://github.com/yt-dlp/yt-dlp/releases/latest/download"
	btbnReleaseBase   = "https://github.com/BtbN/FFmpeg-Builds/releases/download/latest"
	johnvansickleBase = "https://johnvansickle.com/ffmpeg/releases"

	evermeetZipURL   = "https://evermeet.cx/ffmpeg/getrelease/zip"
	osxExpertsZipURL = "https://www.osxexperts.net/ffmpeg7arm.zip"

	// DependenciesDirName is the directory under the app data root holding
	// every managed dependency.
	DependenciesDirName = "dependencies"

	executablePermissions os.FileMode = 0o755
)

// Override replaces individual fields of a resolved PlatformConfig. Empty
// strings keep the default.
type Override struct {
	DownloadURL     string
	Filename        string
	ExecutableName  string
	ChecksumURL     string
	SignatureURL    string
	DisableChecksum bool
	VersionArgs     []string
}

// Resolver maps the detected platform to per-dependency download
// configuration and install paths. It is immutable after construction.
type Resolver struct {
	info    platform.Info
	dataDir string
	config  DependencyConfig
}

// NewResolver creates a resolver for info rooted at dataDir, the
// application-owned user data directory.
func NewResolver(info *platform.Info, dataDir string, overrides map[Name]Override) (*Resolver, error) {
	if info == nil {
		return nil, fmt.Errorf("platform info is required")
	}
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}

	r := &Resolver{
		info:    *info,
		dataDir: dataDir,
		config: DependencyConfig{
			NameYtDlp:  ytdlpConfig(info),
			NameFFmpeg: ffmpegConfig(info),
		},
	}

	for name, o := range overrides {
		cfg, ok := r.config[name]
		if !ok {
			return nil, fmt.Errorf("override for unknown dependency: %s", name)
		}
		r.config[name] = applyOverride(cfg, o)
	}

	return r, nil
}

// Platform returns the platform the resolver was built for.
func (r *Resolver) Platform() platform.Info {
	return r.info
}

// IsPlatformSupported reports whether the OS is windows, darwin or linux.
func (r *Resolver) IsPlatformSupported() bool {
	return r.info.IsSupported()
}

// DependencyConfig returns a copy of the resolved configuration.
func (r *Resolver) DependencyConfig() DependencyConfig {
	out := make(DependencyConfig, len(r.config))
	for name, cfg := range r.config {
		cfg.VersionArgs = append([]string(nil), cfg.VersionArgs...)
		out[name] = cfg
	}
	return out
}

// Config returns the resolved configuration of one dependency.
func (r *Resolver) Config(name Name) (PlatformConfig, error) {
	cfg, ok := r.config[name]
	if !ok {
		return PlatformConfig{}, fmt.Errorf("unknown dependency: %s", name)
	}
	return cfg, nil
}

// DependenciesRoot returns <dataDir>/dependencies.
func (r *Resolver) DependenciesRoot() string {
	return filepath.Join(r.dataDir, DependenciesDirName)
}

// DependencyDirectory returns the install directory of name.
func (r *Resolver) DependencyDirectory(name Name) string {
	return filepath.Join(r.DependenciesRoot(), name.String())
}

// BinDirectory returns the directory holding the placed executable.
func (r *Resolver) BinDirectory(name Name) string {
	return filepath.Join(r.DependencyDirectory(name), "bin")
}

// ExecutablePath returns the full path of the placed executable.
func (r *Resolver) ExecutablePath(name Name) string {
	return filepath.Join(r.BinDirectory(name), r.config[name].ExecutableName)
}

// ExecutablePermissions returns the mode applied to placed executables on
// non-Windows platforms.
func (r *Resolver) ExecutablePermissions() os.FileMode {
	return executablePermissions
}

func exeName(info *platform.Info, base string) string {
	if info.IsWindows() {
		return base + ".exe"
	}
	return base
}

// ytdlpConfig picks the standalone yt-dlp build. Every variant is a single
// executable, never an archive.
func ytdlpConfig(info *platform.Info) PlatformConfig {
	var filename string
	switch info.OS {
	case platform.OSWindows:
		filename = "yt-dlp.exe"
		if info.IsARM64() {
			filename = "yt-dlp_arm64.exe"
		}
	case platform.OSDarwin:
		filename = "yt-dlp_macos"
	default:
		switch {
		case info.IsAlpine() && info.IsARM64():
			filename = "yt-dlp_musllinux_aarch64"
		case info.IsAlpine():
			filename = "yt-dlp_musllinux"
		case info.IsARM64():
			filename = "yt-dlp_linux_aarch64"
		case info.IsARM():
			filename = "yt-dlp_linux_armv7l"
		default:
			filename = "yt-dlp_linux"
		}
	}

	return PlatformConfig{
		DownloadURL:    ytdlpReleaseBase + "/" + filename,
		Filename:       filename,
		ExecutableName: exeName(info, "yt-dlp"),
		VersionArgs:    []string{"--version"},
		ChecksumURL:    ytdlpReleaseBase + "/SHA2-256SUMS",
		SignatureURL:   ytdlpReleaseBase + "/SHA2-256SUMS.sig",
	}
}

// ffmpegConfig picks a static ffmpeg build. All variants are archives.
func ffmpegConfig(info *platform.Info) PlatformConfig {
	cfg := PlatformConfig{
		ExecutableName: exeName(info, "ffmpeg"),
		VersionArgs:    []string{"-version"},
	}

	switch info.OS {
	case platform.OSWindows:
		target := "win64"
		if info.IsARM64() {
			target = "winarm64"
		}
		cfg.Filename = fmt.Sprintf("ffmpeg-master-latest-%s-gpl.zip", target)
		cfg.DownloadURL = btbnReleaseBase + "/" + cfg.Filename
		cfg.ChecksumURL = btbnReleaseBase + "/checksums.sha256"
	case platform.OSDarwin:
		cfg.Filename = "ffmpeg.zip"
		cfg.DownloadURL = evermeetZipURL
		if info.IsARM64() {
			cfg.DownloadURL = osxExpertsZipURL
		}
	default:
		arch := "amd64"
		switch {
		case info.IsARM64():
			arch = "arm64"
		case info.IsARM():
			arch = "armhf"
		}
		cfg.Filename = fmt.Sprintf("ffmpeg-release-%s-static.tar.xz", arch)
		cfg.DownloadURL = johnvansickleBase + "/" + cfg.Filename
	}

	return cfg
}

func applyOverride(cfg PlatformConfig, o Override) PlatformConfig {
	if o.DownloadURL != "" {
		cfg.DownloadURL = o.DownloadURL
	}
	if o.Filename != "" {
		cfg.Filename = o.Filename
	}
	if o.ExecutableName != "" {
		cfg.ExecutableName = o.ExecutableName
	}
	if o.ChecksumURL != "" {
		cfg.ChecksumURL = o.ChecksumURL
	}
	if o.SignatureURL != "" {
		cfg.SignatureURL = o.SignatureURL
	}
	if o.DisableChecksum {
		cfg.ChecksumURL = ""
		cfg.SignatureURL = ""
	}
	if len(o.VersionArgs) > 0 {
		cfg.VersionArgs = append([]string(nil), o.VersionArgs...)
	}
	return cfg
}
