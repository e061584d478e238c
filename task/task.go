// Package task defines the unit of pipeline work.
//
// A task binds named input artifacts to named output artifacts through
// one capability. Its Descriptor declares the full interface — inputs,
// outputs, parameters — and Execute enforces the shared run contract
// around every task body: inputs are verified before any capability
// runs, existing outputs short-circuit to a skip, and declared outputs
// are verified after success.
package task

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/attune-io/attune/log"
	"github.com/attune-io/attune/metrics"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/types"
)

// Status is a task execution outcome.
type Status string

const (
	// StatusSuccess means the task ran and produced its outputs.
	StatusSuccess Status = "success"
	// StatusSkipped means every output already existed and overwrite was
	// not requested; nothing ran.
	StatusSkipped Status = "skipped"
)

// Task is one unit of pipeline work.
type Task interface {
	// Descriptor declares the task's interface. Immutable.
	Descriptor() Descriptor
	// Run executes the task body. It is only called by Execute, after
	// inputs are verified and the skip check has passed.
	Run(ctx context.Context, rc *RunContext) (*Result, error)
}

// RunContext carries everything a task body needs. Tasks read inputs
// and write outputs exclusively through Store; they never mutate an
// input artifact.
type RunContext struct {
	// Inputs maps declared input names to artifact paths.
	Inputs map[string]string
	// Outputs maps declared output names to artifact paths.
	Outputs map[string]string
	// Params holds the coerced parameter values.
	Params Params
	// Store handles all artifact reads and atomic writes.
	Store *store.Store
	// Log is scoped to the task.
	Log *log.Logger
	// Metrics is the run's collector; may be nil.
	Metrics *metrics.Collector
	// Overwrite forces re-execution even when outputs exist.
	Overwrite bool
}

// Result is a completed execution's summary.
type Result struct {
	Status Status
	// Records is the number of records written, for record-producing
	// tasks.
	Records int
	// Message is a short human-readable note for reports.
	Message string
}

// Execute runs a task under the shared contract:
//
//  1. every declared input must exist with a valid manifest, or the
//     task fails ErrMissingInput before any capability runs;
//  2. if every declared output exists and overwrite is off, the task is
//     skipped without running;
//  3. the body runs; on success every declared output must exist.
func Execute(ctx context.Context, t Task, rc *RunContext) (*Result, error) {
	desc := t.Descriptor()

	for _, in := range desc.Inputs {
		path, ok := rc.Inputs[in.Name]
		if !ok || path == "" {
			return nil, types.NewError(types.ErrInvalidConfiguration, desc.ID, "",
				fmt.Errorf("input %q has no path bound", in.Name))
		}
		if in.Kind == types.KindSource {
			if _, err := os.Stat(path); err != nil {
				return nil, types.NewError(types.ErrMissingInput, desc.ID, path,
					fmt.Errorf("source file for input %q: %w", in.Name, err))
			}
			continue
		}
		if _, err := rc.Store.ReadManifest(path); err != nil {
			return nil, withTaskID(desc.ID, err)
		}
	}

	for _, out := range desc.Outputs {
		if path := rc.Outputs[out.Name]; path == "" {
			return nil, types.NewError(types.ErrInvalidConfiguration, desc.ID, "",
				fmt.Errorf("output %q has no path bound", out.Name))
		}
	}

	if !rc.Overwrite && allOutputsExist(desc, rc) {
		return &Result{Status: StatusSkipped, Message: "outputs exist"}, nil
	}

	result, err := t.Run(ctx, rc)
	if err != nil {
		return nil, withTaskID(desc.ID, err)
	}

	for _, out := range desc.Outputs {
		path := rc.Outputs[out.Name]
		if !rc.Store.Exists(path) {
			return nil, types.NewError(types.ErrToolRuntimeFailure, desc.ID, path,
				fmt.Errorf("task completed without producing output %q", out.Name))
		}
	}
	if result == nil {
		result = &Result{}
	}
	result.Status = StatusSuccess
	return result, nil
}

func allOutputsExist(desc Descriptor, rc *RunContext) bool {
	for _, out := range desc.Outputs {
		if !rc.Store.Exists(rc.Outputs[out.Name]) {
			return false
		}
	}
	return true
}

// withTaskID stamps the task id onto a classified error that does not
// carry one yet, and classifies anything still unwrapped as a runtime
// failure.
func withTaskID(id string, err error) error {
	var pe *types.Error
	if errors.As(err, &pe) {
		if pe.TaskID == "" {
			pe.TaskID = id
		}
		return err
	}
	return types.NewError(types.ErrToolRuntimeFailure, id, "", err)
}
