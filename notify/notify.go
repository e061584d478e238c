// Package notify defines the pipeline-completion notifier boundary.
//
// Notifiers publish a completion event to downstream systems after a
// pipeline run. Notification is strictly best-effort: a failed publish
// is logged by the caller and never affects the run's outcome.
package notify

import (
	"context"
	"time"

	"github.com/attune-io/attune/pipeline"
)

// PipelineCompletedEvent is the payload published when a run finishes.
type PipelineCompletedEvent struct {
	EventType      string `json:"event_type"` // always "pipeline_completed"
	RunID          string `json:"run_id"`
	Plan           string `json:"plan"`
	Outcome        string `json:"outcome"` // success or failed
	StepsSucceeded int    `json:"steps_succeeded"`
	StepsSkipped   int    `json:"steps_skipped"`
	// FailedTask names the halting step's task id; empty on success.
	FailedTask string `json:"failed_task,omitempty"`
	Timestamp  string `json:"timestamp"` // ISO 8601
	DurationMs int64  `json:"duration_ms"`
}

// Notifier publishes pipeline completion events to a downstream system.
// Implementations must be safe for single-use per run.
type Notifier interface {
	// Publish sends a completion event. Must respect context
	// cancellation and deadlines.
	Publish(ctx context.Context, event *PipelineCompletedEvent) error

	// Close releases notifier resources.
	Close() error
}

// EventFromReport builds the completion event for a finished run.
func EventFromReport(runID string, report *pipeline.Report) *PipelineCompletedEvent {
	succeeded, skipped := report.Counts()
	event := &PipelineCompletedEvent{
		EventType:      "pipeline_completed",
		RunID:          runID,
		Plan:           report.Plan,
		Outcome:        "success",
		StepsSucceeded: succeeded,
		StepsSkipped:   skipped,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		DurationMs:     report.Duration.Milliseconds(),
	}
	if report.Failed != nil {
		event.Outcome = "failed"
		event.FailedTask = report.Failed.Task
	}
	return event
}
