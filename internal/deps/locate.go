package deps

import (
	"errors"
	"os/exec"
)

// Locate reports where an executable for name can be found: on PATH first
// (system), then the managed install (bundled). The bundled copy must pass
// ValidateBinary.
func Locate(r *Resolver, name Name) InstallationResult {
	cfg, err := r.Config(name)
	if err != nil {
		return InstallationResult{Err: err}
	}

	if path, err := exec.LookPath(cfg.ExecutableName); err == nil {
		return InstallationResult{Installed: true, Location: LocationSystem, Path: path}
	}

	bundled := r.ExecutablePath(name)
	if ValidateBinary(bundled) {
		return InstallationResult{Installed: true, Location: LocationBundled, Path: bundled}
	}

	return InstallationResult{
		Err: errors.New(cfg.ExecutableName + " not found on PATH or in " + r.BinDirectory(name)),
	}
}
