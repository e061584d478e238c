package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/attune-io/attune/log"
	"github.com/attune-io/attune/metrics"
	"github.com/attune-io/attune/pipeline"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/task"
	"github.com/attune-io/attune/types"
)

// ExecCommand returns the exec command. Each registered task appears as
// a subcommand whose flags are generated from its descriptor, so
// `attune exec audio.diarize --help` shows the task's real parameter
// schema.
func ExecCommand(registry *task.Registry) *cli.Command {
	cmd := &cli.Command{
		Name:  "exec",
		Usage: "Execute a single task outside a plan",
	}
	for _, desc := range registry.List() {
		cmd.Subcommands = append(cmd.Subcommands, taskCommand(registry, desc))
	}
	return cmd
}

func taskCommand(registry *task.Registry, desc task.Descriptor) *cli.Command {
	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "input",
			Usage: fmt.Sprintf("Input binding name=path (%s)", specNames(desc.Inputs)),
		},
		&cli.StringSliceFlag{
			Name:  "output",
			Usage: fmt.Sprintf("Output binding name=path (%s)", specNames(desc.Outputs)),
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run ID (generated if omitted)",
		},
		&cli.BoolFlag{
			Name:  "overwrite",
			Usage: "Re-run even when outputs exist",
		},
	}
	for _, p := range desc.Params {
		flags = append(flags, paramFlag(p))
	}

	return &cli.Command{
		Name:  desc.ID,
		Usage: desc.Usage,
		Flags: flags,
		Action: func(c *cli.Context) error {
			return execAction(c, registry, desc)
		},
	}
}

// paramFlag maps one parameter spec to a CLI flag. Durations stay
// strings: CoerceParams parses them, keeping flag and plan-file
// semantics identical.
func paramFlag(p task.ParamSpec) cli.Flag {
	switch p.Type {
	case task.ParamBool:
		return &cli.BoolFlag{Name: p.Name, Usage: p.Usage}
	case task.ParamInt:
		return &cli.IntFlag{Name: p.Name, Usage: p.Usage}
	case task.ParamFloat:
		return &cli.Float64Flag{Name: p.Name, Usage: p.Usage}
	default:
		return &cli.StringFlag{Name: p.Name, Usage: p.Usage}
	}
}

func execAction(c *cli.Context, registry *task.Registry, desc task.Descriptor) error {
	inputs, err := parseBindings(c.StringSlice("input"))
	if err != nil {
		return failExit(types.NewError(types.ErrInvalidConfiguration, desc.ID, "", err))
	}
	outputs, err := parseBindings(c.StringSlice("output"))
	if err != nil {
		return failExit(types.NewError(types.ErrInvalidConfiguration, desc.ID, "", err))
	}

	// Only explicitly set flags enter the raw map, so descriptor
	// defaults still apply through CoerceParams.
	raw := make(map[string]any)
	for _, p := range desc.Params {
		if !c.IsSet(p.Name) {
			continue
		}
		switch p.Type {
		case task.ParamBool:
			raw[p.Name] = c.Bool(p.Name)
		case task.ParamInt:
			raw[p.Name] = c.Int(p.Name)
		case task.ParamFloat:
			raw[p.Name] = c.Float64(p.Name)
		default:
			raw[p.Name] = c.String(p.Name)
		}
	}

	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}

	logger := log.NewLogger(runID)
	collector := metrics.NewCollector(runID, desc.ID)
	runner := pipeline.NewRunner(pipeline.Config{
		Registry: registry,
		Store:    store.New(runID, collector),
		Log:      logger,
		Metrics:  collector,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	plan := &pipeline.Plan{
		Name: desc.ID,
		Steps: []pipeline.Step{{
			Task:      desc.ID,
			Params:    raw,
			Inputs:    inputs,
			Outputs:   outputs,
			Overwrite: c.Bool("overwrite"),
		}},
	}

	report, runErr := runner.Run(ctx, plan)
	if runErr != nil {
		return failExit(runErr)
	}

	step := report.Steps[0]
	if step.Status == task.StatusSkipped {
		fmt.Printf("%s skipped (%s)\n", desc.ID, step.Message)
	} else {
		fmt.Printf("%s: %d records in %s\n",
			desc.ID, step.Records, step.Duration.Round(time.Millisecond))
	}
	return cli.Exit("", exitSuccess)
}

// parseBindings converts repeated name=path flags into a binding map.
func parseBindings(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	bindings := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, path, ok := strings.Cut(pair, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("binding %q is not name=path", pair)
		}
		bindings[name] = path
	}
	return bindings, nil
}

func specNames(specs []types.ArtifactSpec) string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}
