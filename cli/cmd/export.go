package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/attune-io/attune/cli/config"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/types"
)

// ExportCommand returns the export command, which uploads completed
// artifacts (data plus manifest) to an S3-compatible bucket. Defaults
// come from the plan file's export section; flags override them.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Upload artifacts to an S3-compatible bucket",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "artifact",
				Usage:    "Path to an artifact data file (repeatable)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "run-id",
				Usage:    "Run ID used in the object key",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "plan",
				Usage: "Plan file providing export defaults",
			},
			&cli.StringFlag{Name: "bucket", Usage: "S3 bucket"},
			&cli.StringFlag{Name: "prefix", Usage: "Object key prefix"},
			&cli.StringFlag{Name: "region", Usage: "AWS region"},
			&cli.StringFlag{Name: "endpoint", Usage: "Custom S3 endpoint (R2, MinIO)"},
			&cli.BoolFlag{Name: "path-style", Usage: "Force path-style addressing"},
		},
		Action: exportAction,
	}
}

func exportAction(c *cli.Context) error {
	s3cfg, err := exportConfig(c)
	if err != nil {
		return failExit(err)
	}

	archiver, err := store.NewArchiver(c.Context, s3cfg)
	if err != nil {
		return failExit(types.NewError(types.ErrInvalidConfiguration, "", "", err))
	}

	runID := c.String("run-id")
	for _, path := range c.StringSlice("artifact") {
		if err := archiver.Upload(c.Context, path, runID); err != nil {
			return failExit(types.NewError(types.ErrToolRuntimeFailure, "", path, err))
		}
		fmt.Printf("uploaded %s\n", path)
	}
	return nil
}

// exportConfig merges plan-file export defaults with flag overrides.
func exportConfig(c *cli.Context) (store.S3Config, error) {
	var s3cfg store.S3Config
	if planPath := c.String("plan"); planPath != "" {
		cfg, err := config.Load(planPath)
		if err != nil {
			return store.S3Config{}, err
		}
		s3cfg = store.S3Config{
			Bucket:       cfg.Export.Bucket,
			Prefix:       cfg.Export.Prefix,
			Region:       cfg.Export.Region,
			Endpoint:     cfg.Export.Endpoint,
			UsePathStyle: cfg.Export.UsePathStyle,
		}
	}

	if v := c.String("bucket"); v != "" {
		s3cfg.Bucket = v
	}
	if v := c.String("prefix"); v != "" {
		s3cfg.Prefix = v
	}
	if v := c.String("region"); v != "" {
		s3cfg.Region = v
	}
	if v := c.String("endpoint"); v != "" {
		s3cfg.Endpoint = v
	}
	if c.IsSet("path-style") {
		s3cfg.UsePathStyle = c.Bool("path-style")
	}

	if s3cfg.Bucket == "" {
		return store.S3Config{}, types.NewError(types.ErrInvalidConfiguration, "", "",
			fmt.Errorf("export requires a bucket (flag or plan export section)"))
	}
	return s3cfg, nil
}
