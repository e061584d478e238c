package pipeline

import (
	"context"
	"time"

	"github.com/attune-io/attune/log"
	"github.com/attune-io/attune/metrics"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/task"
	"github.com/attune-io/attune/types"
)

// Runner executes plans one step at a time. A single Runner serves one
// pipeline invocation; it holds no mutable state between runs.
type Runner struct {
	registry *task.Registry
	store    *store.Store
	log      *log.Logger
	metrics  *metrics.Collector
	// overwrite forces every step to re-run, overriding per-step flags.
	overwrite bool
}

// Config assembles a Runner.
type Config struct {
	Registry  *task.Registry
	Store     *store.Store
	Log       *log.Logger
	Metrics   *metrics.Collector
	Overwrite bool
}

// NewRunner creates a Runner from the given config. A nil logger is
// replaced with a no-op logger; a nil metrics collector is tolerated
// throughout.
func NewRunner(cfg Config) *Runner {
	logger := cfg.Log
	if logger == nil {
		logger = log.Nop()
	}
	return &Runner{
		registry:  cfg.Registry,
		store:     cfg.Store,
		log:       logger,
		metrics:   cfg.Metrics,
		overwrite: cfg.Overwrite,
	}
}

// StepReport is one step's outcome.
type StepReport struct {
	Task     string
	Status   task.Status
	Records  int
	Message  string
	Outputs  map[string]string
	Duration time.Duration
	// Err is set when the step failed; Status is empty in that case.
	Err error
}

// Report summarizes a pipeline run. When a step fails, Steps holds
// every completed step plus the failing one, and Failed points at it;
// steps after the failure never ran.
type Report struct {
	Plan     string
	Started  time.Time
	Duration time.Duration
	Steps    []StepReport
	Failed   *StepReport
}

// Succeeded reports whether every executed step completed.
func (r *Report) Succeeded() bool { return r.Failed == nil }

// Counts returns the number of succeeded and skipped steps.
func (r *Report) Counts() (succeeded, skipped int) {
	for _, s := range r.Steps {
		switch s.Status {
		case task.StatusSuccess:
			succeeded++
		case task.StatusSkipped:
			skipped++
		}
	}
	return succeeded, skipped
}

// Run executes the plan in order. An empty plan is a successful no-op.
// Cancellation is cooperative: the context is checked before each step,
// and an in-flight tool invocation dies with the context rather than
// being interrupted midway by the runner.
//
// The returned error is the failing step's error (nil on success); the
// report is always returned.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*Report, error) {
	report := &Report{Plan: plan.Name, Started: time.Now()}
	defer func() { report.Duration = time.Since(report.Started) }()

	if err := plan.Validate(); err != nil {
		return report, err
	}

	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			err = types.NewError(types.ErrToolRuntimeFailure, step.Task, "", err)
			report.fail(step, 0, err)
			return report, err
		}

		stepLog := r.log.WithTask(step.Task)
		stepLog.Info("step starting", map[string]any{
			"step":  i + 1,
			"steps": len(plan.Steps),
		})
		r.metrics.IncTaskStarted()
		started := time.Now()

		t, params, err := r.registry.Resolve(step.Task, step.Params)
		if err != nil {
			r.metrics.IncTaskFailed()
			report.fail(step, time.Since(started), err)
			stepLog.Error("step failed to resolve", map[string]any{"error": err.Error()})
			return report, err
		}

		rc := &task.RunContext{
			Inputs:    step.Inputs,
			Outputs:   step.Outputs,
			Params:    params,
			Store:     r.store,
			Log:       stepLog,
			Metrics:   r.metrics,
			Overwrite: r.overwrite || step.Overwrite,
		}
		result, err := task.Execute(ctx, t, rc)
		elapsed := time.Since(started)
		if err != nil {
			r.metrics.IncTaskFailed()
			report.fail(step, elapsed, err)
			fields := map[string]any{
				"error":   err.Error(),
				"elapsed": elapsed.String(),
			}
			if kind := types.Kind(err); kind != nil {
				fields["kind"] = kind.Error()
			}
			stepLog.Error("step failed", fields)
			return report, err
		}

		switch result.Status {
		case task.StatusSkipped:
			r.metrics.IncTaskSkipped()
			stepLog.Info("step skipped", map[string]any{"reason": result.Message})
		default:
			r.metrics.IncTaskSucceeded()
			stepLog.Info("step succeeded", map[string]any{
				"records": result.Records,
				"elapsed": elapsed.String(),
			})
		}
		report.Steps = append(report.Steps, StepReport{
			Task:     step.Task,
			Status:   result.Status,
			Records:  result.Records,
			Message:  result.Message,
			Outputs:  step.Outputs,
			Duration: elapsed,
		})
	}
	return report, nil
}

func (r *Report) fail(step Step, elapsed time.Duration, err error) {
	sr := StepReport{
		Task:     step.Task,
		Outputs:  step.Outputs,
		Duration: elapsed,
		Err:      err,
	}
	r.Steps = append(r.Steps, sr)
	r.Failed = &r.Steps[len(r.Steps)-1]
}
