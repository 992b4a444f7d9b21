package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/playlistify/playlistify/internal/deps"
)

// installTimeout bounds a whole install run, including retries.
const installTimeout = 30 * time.Minute

// progressStep is the minimum percentage change printed while downloading.
const progressStep = 10

// runInstall handles the `playlistify-deps install` subcommand
func runInstall(args []string) error {
	flags, err := parseCommonFlags(args, printInstallHelp, "--force")
	if err != nil {
		if errors.Is(err, errHelpRequested) {
			return nil
		}
		return err
	}

	names, err := parseNames(flags.names)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	a, err := newApp(ctx, stdout, flags)
	if err != nil {
		return err
	}
	defer a.close()

	return a.install(ctx, names, flags.has("--force"))
}

// install installs names one after another. A failure does not stop the
// remaining installs; all failures are reported together.
func (a *app) install(ctx context.Context, names []deps.Name, force bool) error {
	if err := a.manager.Initialize(ctx); err != nil {
		return err
	}

	printer := newProgressPrinter(a.out)
	unsubscribe := a.manager.Subscribe(printer.handle)
	defer unsubscribe()

	var failed []string
	for _, name := range names {
		st := a.manager.DependencyStatus()[name]
		if st.Ready() && !force {
			a.printf("✓ %s %s is already installed (use --force to reinstall)\n", name, st.Version)
			continue
		}

		if err := a.manager.InstallDependency(ctx, name); err != nil {
			failed = append(failed, name.String())
			continue
		}

		if st := a.manager.DependencyStatus()[name]; st.Ready() {
			a.printf("  %s %s -> %s\n", name, st.Version, st.Path)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to install: %s", strings.Join(failed, ", "))
	}
	return nil
}

// progressPrinter turns manager events into terminal output.
type progressPrinter struct {
	out  io.Writer
	last map[deps.Name]int
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, last: make(map[deps.Name]int)}
}

func (p *progressPrinter) handle(ev deps.Event) {
	switch ev.Type {
	case deps.EventInstallStarted:
		p.last[ev.Dependency] = -progressStep
		fmt.Fprintf(p.out, "Installing %s...\n", ev.Dependency)

	case deps.EventDownloadProgress:
		pr := ev.Progress
		if pr.Status == deps.ProgressDownloading {
			if pr.Progress < 100 && pr.Progress-p.last[ev.Dependency] < progressStep {
				return
			}
			p.last[ev.Dependency] = pr.Progress
			fmt.Fprintf(p.out, "  %3d%% %s\n", pr.Progress, pr.Message)
			return
		}
		fmt.Fprintf(p.out, "  %s\n", pr.Message)

	case deps.EventInstallCompleted:
		fmt.Fprintf(p.out, "✓ %s installed\n", ev.Dependency)

	case deps.EventInstallFailed:
		fmt.Fprintf(p.out, "✗ %s failed: %v\n", ev.Dependency, ev.Err)
	}
}

// printInstallHelp prints help text for install command
func printInstallHelp() {
	fmt.Println("Usage: playlistify-deps install [OPTIONS] [ytdlp|ffmpeg|all]...")
	fmt.Println()
	fmt.Println("Download, verify and install dependencies (default: all)")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --force, -f        Reinstall even when the dependency is ready")
	printCommonOptions()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  playlistify-deps install             # Install everything missing")
	fmt.Println("  playlistify-deps install yt-dlp      # Install yt-dlp only")
	fmt.Println("  playlistify-deps install --force all # Reinstall everything")
}
