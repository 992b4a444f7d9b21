package main

import (
	"fmt"
	"os"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

// commands maps subcommand names to their handlers.
var commands = map[string]func([]string) error{
	"status":   runStatus,
	"install":  runInstall,
	"validate": runValidate,
	"version":  runVersion,
	"verify":   runVerify,
	"cleanup":  runCleanup,
}

func main() {
	// Handle subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version":
			fmt.Printf("playlistify-deps %s\n", Version)
			fmt.Println("Dependency manager for Playlistify (yt-dlp, ffmpeg)")
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}

		run, ok := commands[os.Args[1]]
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n", os.Args[1])
			fmt.Fprintln(os.Stderr, "Run 'playlistify-deps --help' for usage")
			os.Exit(1)
		}
		if err := run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Default: show help
	printHelp()
}

func printHelp() {
	fmt.Println("playlistify-deps - install and check Playlistify's external tools")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  playlistify-deps --version                 Show version information")
	fmt.Println("  playlistify-deps status [--check]          Show the state of yt-dlp and ffmpeg")
	fmt.Println("  playlistify-deps install [names]           Download, verify and install dependencies")
	fmt.Println("  playlistify-deps validate [names]          Check installed executables")
	fmt.Println("  playlistify-deps version [names]           Show installed versions")
	fmt.Println("  playlistify-deps verify [names]            Locate executables on PATH or in the install dir")
	fmt.Println("  playlistify-deps cleanup [--force]         Remove all installed dependencies")
	fmt.Println()
	fmt.Println("Names are ytdlp (yt-dlp) and ffmpeg; default is all.")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  PLAYLISTIFY_DATA_DIR   Data directory (default: <user config dir>/playlistify)")
}
