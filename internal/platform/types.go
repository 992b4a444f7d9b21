// Package platform detects the host operating system, CPU architecture and,
// on Linux, the distribution. The result drives which dependency artifacts
// are downloaded and is exposed to the Lua settings file as a read-only
// platform table.
package platform

import "context"

// Operating systems as reported by runtime.GOOS.
const (
	OSWindows = "windows"
	OSDarwin  = "darwin"
	OSLinux   = "linux"
)

// Normalized architectures.
const (
	ArchAMD64 = "amd64"
	ArchARM64 = "arm64"
	ArchARM   = "arm"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"
	FamilyRHEL    = "rhel"
	FamilyFedora  = "fedora"
	FamilySUSE    = "suse"
	FamilyArch    = "arch"
	FamilyAlpine  = "alpine"
	FamilyUnknown = "unknown"
)

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // "amd64", "arm64", "arm", or the raw value when unrecognized
	ArchRaw  string // original GOARCH
	Platform string // distro ID (Linux only, e.g., "ubuntu", "alpine")
	Family   string // canonical family (e.g., "debian", "alpine")
	Version  string // distro version (Linux only)
}

// Distro contains Linux distribution information.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information if this is a Linux platform.
// Returns nil for non-Linux platforms or if distro detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != OSLinux || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// IsSupported reports whether the OS is one of windows, darwin or linux.
func (i *Info) IsSupported() bool {
	switch i.OS {
	case OSWindows, OSDarwin, OSLinux:
		return true
	default:
		return false
	}
}

func (i *Info) IsLinux() bool   { return i.OS == OSLinux }
func (i *Info) IsMacOS() bool   { return i.OS == OSDarwin }
func (i *Info) IsWindows() bool { return i.OS == OSWindows }

func (i *Info) IsAMD64() bool { return i.Arch == ArchAMD64 }
func (i *Info) IsARM64() bool { return i.Arch == ArchARM64 }
func (i *Info) IsARM() bool   { return i.Arch == ArchARM }

// IsAppleSilicon returns true if running on Apple Silicon (macOS + arm64).
func (i *Info) IsAppleSilicon() bool {
	return i.OS == OSDarwin && i.Arch == ArchARM64
}

// IsAlpine returns true on Alpine Linux, where glibc builds do not run.
func (i *Info) IsAlpine() bool {
	return i.OS == OSLinux && i.Family == FamilyAlpine
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector returns a fixed Info. Useful when the platform is already
// known or must be simulated.
type StaticDetector struct {
	Info Info
}

// Detect returns a copy of the configured Info.
func (d StaticDetector) Detect(ctx context.Context) (*Info, error) {
	info := d.Info
	return &info, nil
}
