package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/attune-io/attune/cli/tui"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/types"
)

// InspectCommand returns the inspect command for examining a single
// artifact: its manifest plus a preview of its records.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Show an artifact's manifest and records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "artifact",
				Usage:    "Path to the artifact data file",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum records to show (0 for all)",
				Value: 50,
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Open an interactive inspector",
			},
			JSONFlag,
		},
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	view, err := loadArtifactView(c.String("artifact"), c.Int("limit"))
	if err != nil {
		return failExit(err)
	}

	switch {
	case c.Bool("tui"):
		if err := tui.RunInspectTUI(view); err != nil {
			return failExit(types.NewError(types.ErrToolRuntimeFailure, "", view.Path, err))
		}
		return nil
	case c.Bool("json"):
		return printInspectJSON(view)
	default:
		printInspectPlain(view)
		return nil
	}
}

// loadArtifactView reads the manifest and, for records artifacts, up to
// limit records. Media artifacts carry a manifest only.
func loadArtifactView(path string, limit int) (*tui.ArtifactView, error) {
	manifest, err := store.ReadManifest(path)
	if err != nil {
		return nil, err
	}

	view := &tui.ArtifactView{Path: path, Manifest: manifest}
	if manifest.Kind != types.KindRecords {
		return view, nil
	}

	records, _, err := store.ReadRecords(path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
		view.Truncated = true
	}
	view.Records = records
	return view, nil
}

func printInspectJSON(view *tui.ArtifactView) error {
	out := struct {
		Path      string          `json:"path"`
		Manifest  *types.Manifest `json:"manifest"`
		Records   []types.Record  `json:"records,omitempty"`
		Truncated bool            `json:"truncated,omitempty"`
	}{view.Path, view.Manifest, view.Records, view.Truncated}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printInspectPlain(view *tui.ArtifactView) {
	man := view.Manifest
	fmt.Printf("artifact: %s\n", view.Path)
	fmt.Printf("  kind=%s modality=%s producer=%s\n", man.Kind, man.Modality, man.Producer)
	fmt.Printf("  run_id=%s created=%s\n", man.RunID, man.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  records=%d size=%d bytes\n", man.RecordCount, man.SizeBytes)

	if man.Kind != types.KindRecords {
		return
	}
	fmt.Println()
	for _, rec := range view.Records {
		payload, err := json.Marshal(rec.Payload)
		if err != nil {
			payload = []byte("{}")
		}
		fmt.Printf("  [%8.3f, %8.3f)  %s\n", rec.Start, rec.End, payload)
	}
	if view.Truncated {
		fmt.Println("  … more records not shown (raise --limit)")
	}
}
