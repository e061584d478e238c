package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/attune-io/attune/metrics"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/task"
	"github.com/attune-io/attune/types"
)

// scriptedTask writes one record artifact per declared output, or
// fails, depending on its configuration.
type scriptedTask struct {
	desc task.Descriptor
	fail error
	runs *int
}

func (s *scriptedTask) Descriptor() task.Descriptor { return s.desc }

func (s *scriptedTask) Run(_ context.Context, rc *task.RunContext) (*task.Result, error) {
	if s.runs != nil {
		*s.runs++
	}
	if s.fail != nil {
		return nil, s.fail
	}
	for _, out := range s.desc.Outputs {
		err := rc.Store.WriteRecords(rc.Outputs[out.Name], []types.Record{
			{Start: 0, End: 1, Payload: map[string]any{"from": s.desc.ID}},
		}, store.WriteMeta{Producer: s.desc.ID, Modality: types.ModalityAudio})
		if err != nil {
			return nil, err
		}
	}
	return &task.Result{Records: 1}, nil
}

func registerScripted(t *testing.T, reg *task.Registry, id string, fail error, runs *int) {
	t.Helper()
	desc := task.Descriptor{
		ID:      id,
		Outputs: []types.ArtifactSpec{{Name: "out", Kind: types.KindRecords, Modality: types.ModalityAudio}},
	}
	err := reg.Register(desc, func(task.Params) (task.Task, error) {
		return &scriptedTask{desc: desc, fail: fail, runs: runs}, nil
	})
	if err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
}

func stepFor(id, dir string) Step {
	return Step{
		Task:    id,
		Outputs: map[string]string{"out": filepath.Join(dir, id+".jsonl")},
	}
}

func TestRunner_EmptyPlanSucceeds(t *testing.T) {
	r := NewRunner(Config{
		Registry: task.NewRegistry(),
		Store:    store.New("run-1", nil),
	})

	report, err := r.Run(context.Background(), &Plan{Name: "empty"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Succeeded() || len(report.Steps) != 0 {
		t.Errorf("report = %+v, want empty success", report)
	}
}

func TestRunner_HaltsOnFailingStep(t *testing.T) {
	reg := task.NewRegistry()
	dir := t.TempDir()
	var firstRuns, thirdRuns int

	registerScripted(t, reg, "audio.diarize", nil, &firstRuns)
	registerScripted(t, reg, "audio.transcribe",
		types.NewError(types.ErrToolRuntimeFailure, "", "", fmt.Errorf("adapter crashed")), nil)
	registerScripted(t, reg, "text.annotate", nil, &thirdRuns)

	collector := metrics.NewCollector("run-2", "session")
	r := NewRunner(Config{
		Registry: reg,
		Store:    store.New("run-2", collector),
		Metrics:  collector,
	})

	plan := &Plan{Name: "session", Steps: []Step{
		stepFor("audio.diarize", dir),
		stepFor("audio.transcribe", dir),
		stepFor("text.annotate", dir),
	}}
	report, err := r.Run(context.Background(), plan)
	if !errors.Is(err, types.ErrToolRuntimeFailure) {
		t.Fatalf("error = %v, want ErrToolRuntimeFailure", err)
	}

	if report.Failed == nil || report.Failed.Task != "audio.transcribe" {
		t.Fatalf("report does not name the failing step: %+v", report.Failed)
	}
	if len(report.Steps) != 2 {
		t.Errorf("got %d step reports, want 2 (completed + failed)", len(report.Steps))
	}
	if firstRuns != 1 {
		t.Errorf("first step ran %d times, want 1", firstRuns)
	}
	if thirdRuns != 0 {
		t.Errorf("step after the failure ran %d times, want 0", thirdRuns)
	}
	if report.Failed.Outputs["out"] == "" {
		t.Error("failed step report does not carry its artifact paths")
	}

	snap := collector.Snapshot()
	if snap.TasksSucceeded != 1 || snap.TasksFailed != 1 {
		t.Errorf("metrics = %+v, want 1 succeeded / 1 failed", snap)
	}
}

func TestRunner_UnknownTaskHaltsImmediately(t *testing.T) {
	r := NewRunner(Config{
		Registry: task.NewRegistry(),
		Store:    store.New("run-3", nil),
	})

	plan := &Plan{Name: "p", Steps: []Step{{Task: "video.gaze"}}}
	_, err := r.Run(context.Background(), plan)
	if !errors.Is(err, types.ErrUnknownTask) {
		t.Fatalf("error = %v, want ErrUnknownTask", err)
	}
}

func TestRunner_SecondRunSkips(t *testing.T) {
	reg := task.NewRegistry()
	dir := t.TempDir()
	var runs int
	registerScripted(t, reg, "audio.diarize", nil, &runs)

	r := NewRunner(Config{Registry: reg, Store: store.New("run-4", nil)})
	plan := &Plan{Name: "p", Steps: []Step{stepFor("audio.diarize", dir)}}

	for i := 0; i < 2; i++ {
		report, err := r.Run(context.Background(), plan)
		if err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		if !report.Succeeded() {
			t.Fatalf("run %d did not succeed", i+1)
		}
	}
	if runs != 1 {
		t.Errorf("task body ran %d times across two runs, want 1", runs)
	}
}

func TestRunner_OverwriteOverridesSkip(t *testing.T) {
	reg := task.NewRegistry()
	dir := t.TempDir()
	var runs int
	registerScripted(t, reg, "audio.diarize", nil, &runs)

	st := store.New("run-5", nil)
	plan := &Plan{Name: "p", Steps: []Step{stepFor("audio.diarize", dir)}}

	if _, err := NewRunner(Config{Registry: reg, Store: st}).Run(context.Background(), plan); err != nil {
		t.Fatalf("first run: %v", err)
	}
	r := NewRunner(Config{Registry: reg, Store: st, Overwrite: true})
	if _, err := r.Run(context.Background(), plan); err != nil {
		t.Fatalf("overwrite run: %v", err)
	}
	if runs != 2 {
		t.Errorf("task body ran %d times, want 2", runs)
	}
}

func TestRunner_CanceledContextStopsBeforeNextStep(t *testing.T) {
	reg := task.NewRegistry()
	dir := t.TempDir()
	var runs int
	registerScripted(t, reg, "audio.diarize", nil, &runs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(Config{Registry: reg, Store: store.New("run-6", nil)})
	plan := &Plan{Name: "p", Steps: []Step{stepFor("audio.diarize", dir)}}
	report, err := r.Run(ctx, plan)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if runs != 0 {
		t.Errorf("task ran %d times under canceled context", runs)
	}
	if report.Failed == nil {
		t.Error("report does not record the canceled step")
	}
}

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
		ok   bool
	}{
		{"valid", Plan{Name: "p", Steps: []Step{{Task: "audio.probe"}}}, true},
		{"empty_ok", Plan{Name: "p"}, true},
		{"no_name", Plan{Steps: []Step{{Task: "audio.probe"}}}, false},
		{"step_without_task", Plan{Name: "p", Steps: []Step{{}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.ok && err != nil {
				t.Fatalf("validate: %v", err)
			}
			if !tt.ok && !errors.Is(err, types.ErrInvalidConfiguration) {
				t.Fatalf("error = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}
