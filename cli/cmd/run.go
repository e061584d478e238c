package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/attune-io/attune/cli/config"
	"github.com/attune-io/attune/log"
	"github.com/attune-io/attune/metrics"
	"github.com/attune-io/attune/notify"
	"github.com/attune-io/attune/notify/redis"
	"github.com/attune-io/attune/notify/webhook"
	"github.com/attune-io/attune/pipeline"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/task"
)

// notifyTimeout bounds the post-run notification publish.
const notifyTimeout = 30 * time.Second

// RunCommand returns the run command, the only command that executes a
// full pipeline.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute a pipeline plan",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "plan",
				Usage:    "Path to the pipeline plan file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run ID (generated if omitted)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Directory against which relative artifact paths resolve",
			},
			&cli.BoolFlag{
				Name:  "overwrite",
				Usage: "Re-run every step even when outputs exist",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the run summary",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("plan"))
	if err != nil {
		return failExit(err)
	}

	registry, err := BuildRegistry()
	if err != nil {
		return failExit(err)
	}

	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}

	logger := log.NewLogger(runID)
	collector := metrics.NewCollector(runID, cfg.Name)
	runner := pipeline.NewRunner(pipeline.Config{
		Registry:  registry,
		Store:     store.New(runID, collector),
		Log:       logger,
		Metrics:   collector,
		Overwrite: c.Bool("overwrite"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	plan := cfg.Plan()
	if root := c.String("store"); root != "" {
		rebasePlan(plan, root)
	}

	report, runErr := runner.Run(ctx, plan)

	publishCompletion(logger, cfg.Notify, runID, report)

	if !c.Bool("quiet") {
		printReport(report, runID)
	}

	if runErr != nil {
		return failExit(runErr)
	}
	return cli.Exit("", exitSuccess)
}

// publishCompletion sends the completion event when notification is
// configured. Best-effort: failures are logged and swallowed.
func publishCompletion(logger *log.Logger, cfg config.NotifyConfig, runID string, report *pipeline.Report) {
	if cfg.Type == "" {
		return
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		logger.Warn("notifier disabled", map[string]any{"error": err.Error()})
		return
	}
	defer func() { _ = notifier.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := notifier.Publish(ctx, notify.EventFromReport(runID, report)); err != nil {
		logger.Warn("completion notification failed", map[string]any{"error": err.Error()})
	}
}

func buildNotifier(cfg config.NotifyConfig) (notify.Notifier, error) {
	retries := -1
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}

	switch cfg.Type {
	case "webhook":
		wc := webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
		}
		if retries >= 0 {
			wc.Retries = retries
		} else {
			wc.Retries = webhook.DefaultRetries
		}
		return webhook.New(wc)
	case "redis":
		rc := redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
		}
		if retries >= 0 {
			rc.Retries = retries
		} else {
			rc.Retries = redis.DefaultRetries
		}
		return redis.New(rc)
	default:
		return nil, fmt.Errorf("unknown notifier type %q", cfg.Type)
	}
}

// rebasePlan resolves relative artifact paths against root. Absolute
// paths pass through, so a plan can mix a shared media mount with a
// per-run output tree.
func rebasePlan(plan *pipeline.Plan, root string) {
	for i := range plan.Steps {
		rebaseBindings(plan.Steps[i].Inputs, root)
		rebaseBindings(plan.Steps[i].Outputs, root)
	}
}

func rebaseBindings(bindings map[string]string, root string) {
	for name, path := range bindings {
		if path != "" && !filepath.IsAbs(path) {
			bindings[name] = filepath.Join(root, path)
		}
	}
}

func printReport(report *pipeline.Report, runID string) {
	succeeded, skipped := report.Counts()
	fmt.Printf("\nplan=%s, run_id=%s, duration=%s\n",
		report.Plan, runID, report.Duration.Round(time.Millisecond))
	fmt.Printf("steps: %d succeeded, %d skipped\n", succeeded, skipped)

	for _, step := range report.Steps {
		switch {
		case step.Err != nil:
			fmt.Printf("  ✗ %-20s %v\n", step.Task, step.Err)
		case step.Status == task.StatusSkipped:
			fmt.Printf("  - %-20s skipped (%s)\n", step.Task, step.Message)
		default:
			fmt.Printf("  ✓ %-20s %d records in %s\n",
				step.Task, step.Records, step.Duration.Round(time.Millisecond))
		}
	}

	if report.Failed != nil {
		fmt.Printf("\nfailed at %s:\n", report.Failed.Task)
		for name, path := range report.Failed.Outputs {
			fmt.Printf("  output %s: %s\n", name, path)
		}
	}
}
