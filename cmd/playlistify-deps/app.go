package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/playlistify/playlistify/internal/config"
	"github.com/playlistify/playlistify/internal/deps"
	"github.com/playlistify/playlistify/internal/logging"
	"github.com/playlistify/playlistify/internal/platform"
)

// errHelpRequested is returned by flag parsers after printing help.
var errHelpRequested = errors.New("help requested")

// newDetector is swapped in tests to simulate other platforms.
var newDetector = platform.NewDetector

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	configPath string
	verbose    bool
	switches   map[string]bool
	names      []string
}

// has reports whether the command-specific switch was given.
func (f *commonFlags) has(flag string) bool {
	return f.switches[flag]
}

// shortFlags maps short aliases of command-specific switches.
var shortFlags = map[string]string{
	"-f": "--force",
	"-n": "--dry-run",
}

// parseCommonFlags parses args for a subcommand. extra lists the
// command-specific switches it accepts besides --config and --verbose.
func parseCommonFlags(args []string, printHelp func(), extra ...string) (*commonFlags, error) {
	flags := &commonFlags{switches: make(map[string]bool)}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if long, ok := shortFlags[arg]; ok {
			arg = long
		}

		switch {
		case arg == "--help" || arg == "-h":
			printHelp()
			return nil, errHelpRequested
		case arg == "--verbose" || arg == "-v":
			flags.verbose = true
		case arg == "--config" || arg == "-c":
			if i+1 >= len(args) || args[i+1] == "" {
				return nil, fmt.Errorf("%s requires a path", arg)
			}
			i++
			flags.configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			flags.configPath = strings.TrimPrefix(arg, "--config=")
			if flags.configPath == "" {
				return nil, fmt.Errorf("--config requires a path")
			}
		case strings.HasPrefix(arg, "-"):
			if !containsFlag(extra, arg) {
				return nil, fmt.Errorf("unknown flag: %s", args[i])
			}
			flags.switches[arg] = true
		default:
			flags.names = append(flags.names, arg)
		}
	}

	return flags, nil
}

func containsFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

// parseNames maps positional arguments to dependency names. No arguments
// or "all" selects every dependency.
func parseNames(args []string) ([]deps.Name, error) {
	if len(args) == 0 {
		return deps.AllNames(), nil
	}

	var names []deps.Name
	seen := make(map[deps.Name]bool)
	for _, arg := range args {
		if arg == "all" {
			return deps.AllNames(), nil
		}
		name, ok := deps.ParseName(arg)
		if !ok {
			return nil, fmt.Errorf("unknown dependency: %s (expected ytdlp or ffmpeg)", arg)
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

// app bundles everything a subcommand needs.
type app struct {
	out      io.Writer
	log      logging.Logger
	sync     func()
	dataDir  string
	settings *config.Settings
	resolver *deps.Resolver
	manager  *deps.Manager
}

// newApp loads settings and builds the dependency manager.
func newApp(ctx context.Context, out io.Writer, flags *commonFlags) (*app, error) {
	log, sync, err := logging.New(flags.verbose)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a, err := buildApp(ctx, out, log, flags)
	if err != nil {
		sync()
		return nil, err
	}
	a.sync = sync
	return a, nil
}

func buildApp(ctx context.Context, out io.Writer, log logging.Logger, flags *commonFlags) (*app, error) {
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, fmt.Errorf("get data directory: %w", err)
	}

	detector := newDetector()
	info, err := detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}

	settingsPath := flags.configPath
	if settingsPath == "" {
		settingsPath = config.SettingsPath(dataDir)
	}
	settings, err := config.NewParser(detector, log).ParseFile(ctx, settingsPath)
	if err != nil {
		return nil, fmt.Errorf("load settings %s: %s", settingsPath, config.FormatError(err, flags.verbose))
	}

	resolver, err := deps.NewResolver(info, dataDir, settings.Overrides())
	if err != nil {
		return nil, fmt.Errorf("create resolver: %w", err)
	}

	retry := settings.RetryPolicy()
	manager, err := deps.NewManager(deps.Config{
		Resolver:        resolver,
		Downloader:      deps.NewDownloader(settings.DownloaderOptions(log)),
		Verifier:        deps.NewVerifier(settings.Verify.Keyring, log),
		Logger:          log,
		Retry:           &retry,
		MetadataTimeout: settings.Network.MetadataTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create dependency manager: %w", err)
	}

	return &app{
		out:      out,
		log:      log,
		sync:     func() {},
		dataDir:  dataDir,
		settings: settings,
		resolver: resolver,
		manager:  manager,
	}, nil
}

func (a *app) close() {
	a.sync()
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) println(args ...interface{}) {
	fmt.Fprintln(a.out, args...)
}

// stdout is the destination of command output. Tests replace it.
var stdout io.Writer = os.Stdout

// stdin is where confirmations are read from. Tests replace it.
var stdin io.Reader = os.Stdin
