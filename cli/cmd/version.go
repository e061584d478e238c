package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/attune-io/attune/types"
)

// VersionCommand returns the version command. commit is the build-time
// commit hash injected via ldflags.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(*cli.Context) error {
			fmt.Printf("attune %s (commit: %s)\n", types.Version, commit)
			return nil
		},
	}
}
