package platform

import "strings"

// familyMap maps distribution names to their canonical family names.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
}

// normalizeArch converts GOARCH and uname-style values to the names used for
// artifact selection. Unrecognized values are returned lowercased so callers
// can fall back instead of failing.
func normalizeArch(arch string) string {
	switch a := strings.ToLower(strings.TrimSpace(arch)); a {
	case "amd64", "x86_64", "x64":
		return ArchAMD64
	case "arm64", "aarch64":
		return ArchARM64
	case "arm", "armv7", "armv7l", "armhf":
		return ArchARM
	default:
		return a
	}
}

func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
// gopsutil reports Alpine with an empty family, so the platform ID is
// consulted as well.
func mapFamily(family, platform string) string {
	if canonical, ok := familyMap[normalizePlatform(family)]; ok {
		return canonical
	}
	if canonical, ok := familyMap[normalizePlatform(platform)]; ok {
		return canonical
	}
	return FamilyUnknown
}
