package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// runCleanup handles the `playlistify-deps cleanup` subcommand
func runCleanup(args []string) error {
	flags, err := parseCommonFlags(args, printCleanupHelp, "--force", "--dry-run")
	if err != nil {
		if errors.Is(err, errHelpRequested) {
			return nil
		}
		return err
	}
	if len(flags.names) > 0 {
		return fmt.Errorf("cleanup takes no arguments")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := newApp(ctx, stdout, flags)
	if err != nil {
		return err
	}
	defer a.close()

	return a.cleanup(ctx, flags.has("--force"), flags.has("--dry-run"))
}

func (a *app) cleanup(ctx context.Context, force, dryRun bool) error {
	root := a.resolver.DependenciesRoot()
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		a.println("No dependencies installed")
		return nil
	}

	a.printf("This removes every installed dependency under %s\n", root)
	if dryRun {
		a.println()
		a.println("[DRY RUN] No changes were made")
		return nil
	}

	if !force {
		confirmed, err := a.confirm("Are you sure you want to continue? (yes/no): ")
		if err != nil {
			return fmt.Errorf("confirmation: %w", err)
		}
		if !confirmed {
			a.println("Cleanup cancelled")
			return nil
		}
	}

	if err := a.manager.CleanupDependencies(ctx); err != nil {
		return err
	}

	a.println("✓ Dependencies removed")
	return nil
}

// confirm prompts on stdin and accepts "yes" or "y".
func (a *app) confirm(prompt string) (bool, error) {
	fmt.Fprint(a.out, prompt)
	reader := bufio.NewReader(stdin)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false, fmt.Errorf("read input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes" || response == "y", nil
}

// printCleanupHelp prints help text for cleanup command
func printCleanupHelp() {
	fmt.Println("Usage: playlistify-deps cleanup [OPTIONS]")
	fmt.Println()
	fmt.Println("Remove every installed dependency")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --force, -f        Skip the confirmation prompt")
	fmt.Println("  --dry-run, -n      Show what would be removed")
	printCommonOptions()
}
