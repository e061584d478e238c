// Package cmd provides CLI commands for the attune binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/attune-io/attune/audio"
	"github.com/attune-io/attune/task"
	"github.com/attune-io/attune/text"
	"github.com/attune-io/attune/types"
	"github.com/attune-io/attune/video"
)

// Exit codes for commands that execute work.
const (
	exitSuccess          = 0
	exitExecutionFailure = 1
	exitToolUnavailable  = 2
	exitConfigError      = 3
)

// BuildRegistry assembles the task registry for one process. Called
// once at startup; the registry is passed explicitly everywhere and is
// read-only afterwards.
func BuildRegistry() (*task.Registry, error) {
	reg := task.NewRegistry()
	for _, register := range []func(*task.Registry) error{
		audio.Register,
		video.Register,
		text.Register,
	} {
		if err := register(reg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// exitCodeFor maps the error taxonomy onto process exit codes.
func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}
	switch types.Kind(err) {
	case types.ErrToolUnavailable:
		return exitToolUnavailable
	case types.ErrInvalidConfiguration, types.ErrUnknownTask,
		types.ErrDuplicateRegistration, types.ErrMissingInput:
		return exitConfigError
	default:
		return exitExecutionFailure
	}
}

// failExit wraps an error into a cli.Exit carrying its mapped code.
func failExit(err error) error {
	return cli.Exit(err.Error(), exitCodeFor(err))
}

// JSONFlag switches read-only command output to JSON.
var JSONFlag = &cli.BoolFlag{
	Name:  "json",
	Usage: "Emit JSON instead of tabular output",
}
