package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playlistify/playlistify/internal/deps"
)

// runStatus handles the `playlistify-deps status` subcommand
func runStatus(args []string) error {
	flags, err := parseCommonFlags(args, printStatusHelp, "--check")
	if err != nil {
		if errors.Is(err, errHelpRequested) {
			return nil
		}
		return err
	}
	if len(flags.names) > 0 {
		return fmt.Errorf("status takes no arguments")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := newApp(ctx, stdout, flags)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.manager.Initialize(ctx); err != nil {
		return err
	}

	a.printStatus(a.manager.DependencyStatus())

	if flags.has("--check") && !a.manager.AreAllDependenciesReady() {
		return fmt.Errorf("not all dependencies are ready\nRun 'playlistify-deps install' to install them")
	}
	return nil
}

// printStatus renders one line per dependency in fixed order.
func (a *app) printStatus(status map[deps.Name]deps.Status) {
	info := a.resolver.Platform()
	a.printf("Platform:     %s/%s\n", info.OS, info.Arch)
	a.printf("Dependencies: %s\n", a.resolver.DependenciesRoot())
	a.println()

	for _, name := range deps.AllNames() {
		a.println(formatStatusLine(status[name]))
	}
}

func formatStatusLine(st deps.Status) string {
	switch {
	case st.Ready():
		return fmt.Sprintf("  ✓ %-8s %-14s %s", st.Name, st.Version, st.Path)
	case st.Installed:
		return fmt.Sprintf("  ✗ %-8s %-14s %s", st.Name, "invalid", st.Error)
	case st.Error != "":
		return fmt.Sprintf("  ✗ %-8s %-14s %s", st.Name, "error", st.Error)
	default:
		return fmt.Sprintf("  - %-8s %s", st.Name, "not installed")
	}
}

// printStatusHelp prints help text for status command
func printStatusHelp() {
	fmt.Println("Usage: playlistify-deps status [OPTIONS]")
	fmt.Println()
	fmt.Println("Check every managed dependency and show its state")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --check            Exit with an error unless all dependencies are ready")
	printCommonOptions()
}

// printCommonOptions prints the options shared by every subcommand
func printCommonOptions() {
	fmt.Println("  --config, -c PATH  Settings file (default: <data dir>/playlistify.lua)")
	fmt.Println("  --verbose, -v      Show debug logging")
	fmt.Println("  --help, -h         Show this help message")
}
