// Package pipeline runs an ordered sequence of tasks against an
// artifact store.
//
// The runner is deliberately sequential: downstream tasks consume
// upstream artifacts, and strict order is the correctness mechanism.
// The runner never interprets artifact content; it only resolves tasks,
// hands them paths, and reacts to their outcomes.
package pipeline

import (
	"fmt"

	"github.com/attune-io/attune/types"
)

// Step is one plan entry: a task id bound to concrete artifact paths
// and raw parameters.
type Step struct {
	// Task is the registry id, e.g. "audio.diarize".
	Task string `yaml:"task"`
	// Params are raw parameter values, coerced against the task's
	// descriptor at resolve time.
	Params map[string]any `yaml:"params,omitempty"`
	// Inputs and Outputs map the task's declared artifact names to
	// filesystem paths.
	Inputs  map[string]string `yaml:"inputs,omitempty"`
	Outputs map[string]string `yaml:"outputs,omitempty"`
	// Overwrite forces this step to re-run even when its outputs exist.
	Overwrite bool `yaml:"overwrite,omitempty"`
}

// Plan is an ordered task sequence loaded from YAML. Step order is the
// execution order; the author is responsible for listing producers
// before consumers.
type Plan struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Validate checks plan shape before execution. All failures are
// ErrInvalidConfiguration: a malformed plan never runs partially.
func (p *Plan) Validate() error {
	if p.Name == "" {
		return types.NewError(types.ErrInvalidConfiguration, "", "",
			fmt.Errorf("plan has no name"))
	}
	for i, step := range p.Steps {
		if step.Task == "" {
			return types.NewError(types.ErrInvalidConfiguration, "", "",
				fmt.Errorf("step %d has no task id", i+1))
		}
	}
	return nil
}
