// Package main provides the attune CLI entrypoint.
//
// The CLI is the only execution entrypoint. All commands except `run`
// and `exec` are read-only.
//
// Usage:
//
//	attune <command> [subcommand] [options]
//
// Exit codes for commands that execute work:
//   - 0: success (including skipped steps)
//   - 1: execution failure (tool runtime error, data integrity violation)
//   - 2: required tool unavailable
//   - 3: configuration error (invalid plan, unknown task, missing input)
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/attune-io/attune/cli/cmd"
	"github.com/attune-io/attune/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	registry, err := cmd.BuildRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(3)
	}

	app := &cli.App{
		Name:           "attune",
		Usage:          "Multimodal feature extraction pipeline CLI",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.ExecCommand(registry),
			cmd.TasksCommand(registry),
			cmd.InspectCommand(),
			cmd.ValidateCommand(),
			cmd.ExportCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	// Check for ExitCoder (from cli.Exit), handles wrapped errors
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N", so skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	// Unexpected error - print and exit with code 1
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
