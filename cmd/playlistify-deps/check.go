package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playlistify/playlistify/internal/deps"
)

// probeTimeout bounds the validate, version and verify commands.
const probeTimeout = time.Minute

// runValidate handles the `playlistify-deps validate` subcommand
func runValidate(args []string) error {
	flags, names, err := parseProbeArgs(args, printValidateHelp)
	if flags == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	a, err := newApp(ctx, stdout, flags)
	if err != nil {
		return err
	}
	defer a.close()

	return a.validate(ctx, names)
}

func (a *app) validate(ctx context.Context, names []deps.Name) error {
	var invalid []string
	for _, name := range names {
		if a.manager.ValidateDependency(ctx, name) {
			a.printf("✓ %s is valid (%s)\n", name, a.resolver.ExecutablePath(name))
			continue
		}
		invalid = append(invalid, name.String())
		a.printf("✗ %s is missing or broken (%s)\n", name, a.resolver.ExecutablePath(name))
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid dependencies: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// runVersion handles the `playlistify-deps version` subcommand
func runVersion(args []string) error {
	flags, names, err := parseProbeArgs(args, printVersionHelp)
	if flags == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	a, err := newApp(ctx, stdout, flags)
	if err != nil {
		return err
	}
	defer a.close()

	a.versions(ctx, names)
	return nil
}

// versions prints the installed version of each name, "unknown" when the
// probe fails.
func (a *app) versions(ctx context.Context, names []deps.Name) {
	for _, name := range names {
		version := a.manager.DependencyVersion(ctx, name)
		if version == "" {
			version = "unknown"
		}
		a.printf("%-8s %s\n", name, version)
	}
}

// runVerify handles the `playlistify-deps verify` subcommand
func runVerify(args []string) error {
	flags, names, err := parseProbeArgs(args, printVerifyHelp)
	if flags == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	a, err := newApp(ctx, stdout, flags)
	if err != nil {
		return err
	}
	defer a.close()

	return a.verify(names)
}

// verify reports where each executable would be taken from: the system
// PATH first, then the managed install.
func (a *app) verify(names []deps.Name) error {
	var missing []string
	for _, name := range names {
		res := deps.Locate(a.resolver, name)
		if !res.Installed {
			missing = append(missing, name.String())
			a.printf("✗ %-8s %v\n", name, res.Err)
			continue
		}
		a.printf("✓ %-8s %-8s %s\n", name, res.Location, res.Path)
	}

	if len(missing) > 0 {
		return fmt.Errorf("not found: %s", strings.Join(missing, ", "))
	}
	return nil
}

// parseProbeArgs parses the shared arguments of validate, version and
// verify. A nil flags result means the command must return err as is.
func parseProbeArgs(args []string, printHelp func()) (*commonFlags, []deps.Name, error) {
	flags, err := parseCommonFlags(args, printHelp)
	if err != nil {
		if errors.Is(err, errHelpRequested) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	names, err := parseNames(flags.names)
	if err != nil {
		return nil, nil, err
	}
	return flags, names, nil
}

// printValidateHelp prints help text for validate command
func printValidateHelp() {
	fmt.Println("Usage: playlistify-deps validate [OPTIONS] [ytdlp|ffmpeg|all]...")
	fmt.Println()
	fmt.Println("Check that installed executables exist, are executable and answer a version probe")
	fmt.Println()
	fmt.Println("Options:")
	printCommonOptions()
}

// printVersionHelp prints help text for version command
func printVersionHelp() {
	fmt.Println("Usage: playlistify-deps version [OPTIONS] [ytdlp|ffmpeg|all]...")
	fmt.Println()
	fmt.Println("Show the version of installed dependencies")
	fmt.Println()
	fmt.Println("Options:")
	printCommonOptions()
}

// printVerifyHelp prints help text for verify command
func printVerifyHelp() {
	fmt.Println("Usage: playlistify-deps verify [OPTIONS] [ytdlp|ffmpeg|all]...")
	fmt.Println()
	fmt.Println("Locate each dependency on PATH or in the managed install directory")
	fmt.Println()
	fmt.Println("Options:")
	printCommonOptions()
}
