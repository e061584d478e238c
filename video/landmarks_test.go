package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/attune-io/attune/log"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/task"
	"github.com/attune-io/attune/tool"
	"github.com/attune-io/attune/types"
)

type fakeTool struct {
	records  []types.Record
	err      error
	released int
	gotSpec  landmarkSpec
}

func (f *fakeTool) Prepare(context.Context) error { return nil }

func (f *fakeTool) Invoke(_ context.Context, req tool.Request) (*tool.Response, error) {
	f.gotSpec = req.Spec.(landmarkSpec)
	if f.err != nil {
		return nil, f.err
	}
	return &tool.Response{Records: f.records}, nil
}

func (f *fakeTool) Release() error {
	f.released++
	return nil
}

func setup(t *testing.T) (*store.Store, *task.RunContext, string) {
	t.Helper()
	dir := t.TempDir()
	video := filepath.Join(dir, "session.mp4")
	if err := os.WriteFile(video, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	st := store.New("run-v", nil)
	rc := &task.RunContext{
		Inputs:  map[string]string{"video": video},
		Outputs: map[string]string{"landmarks": filepath.Join(dir, "landmarks.jsonl")},
		Params:  task.Params{"fps": 25.0, "device": "cpu"},
		Store:   st,
		Log:     log.Nop(),
	}
	return st, rc, rc.Outputs["landmarks"]
}

func TestRegister(t *testing.T) {
	reg := task.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, id := range []string{"video.faces", "video.poses"} {
		if _, ok := reg.Describe(id); !ok {
			t.Errorf("task %s not registered", id)
		}
	}
}

func TestLandmarks_ConvertsFrameIndicesToSeconds(t *testing.T) {
	st, rc, out := setup(t)

	ft := &fakeTool{records: []types.Record{
		{Start: 0, End: 1, Payload: map[string]any{"landmarks": []any{0.1, 0.2}, "confidence": 0.9}},
		{Start: 1, End: 2, Payload: map[string]any{"landmarks": []any{0.3, 0.4}, "confidence": 0.8}},
		{Start: 2, End: 3, Payload: map[string]any{"landmarks": []any{0.5, 0.6}, "confidence": 0.7}},
	}}
	l := &landmarks{variant: facesVariant, tool: ft}

	result, err := task.Execute(context.Background(), l, rc)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Records != 3 {
		t.Errorf("records = %d, want 3", result.Records)
	}
	if ft.gotSpec.Feature != "face" {
		t.Errorf("spec.Feature = %q, want face", ft.gotSpec.Feature)
	}
	if ft.released != 1 {
		t.Errorf("tool released %d times, want 1", ft.released)
	}

	records, err := st.ReadRecords(out)
	if err != nil {
		t.Fatalf("read landmarks: %v", err)
	}
	// Frame 1 of a 25 fps recording covers [0.04, 0.08) seconds.
	if records[1].Start != 0.04 || records[1].End != 0.08 {
		t.Errorf("record 1 interval = [%g,%g), want [0.04,0.08)", records[1].Start, records[1].End)
	}
}

func TestLandmarks_RejectsNonPositiveFPS(t *testing.T) {
	_, rc, _ := setup(t)
	rc.Params["fps"] = 0.0

	l := &landmarks{variant: posesVariant, tool: &fakeTool{}}
	_, err := task.Execute(context.Background(), l, rc)
	if !errors.Is(err, types.ErrInvalidConfiguration) {
		t.Fatalf("error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestLandmarks_InvalidFrameInterval(t *testing.T) {
	st, rc, out := setup(t)

	ft := &fakeTool{records: []types.Record{
		{Start: 2, End: 2, Payload: map[string]any{}},
	}}
	l := &landmarks{variant: facesVariant, tool: ft}

	_, err := task.Execute(context.Background(), l, rc)
	if !errors.Is(err, types.ErrToolRuntimeFailure) {
		t.Fatalf("error = %v, want ErrToolRuntimeFailure", err)
	}
	if st.Exists(out) {
		t.Error("invalid landmark output was written anyway")
	}
}

func TestLandmarks_EmptyAdapterOutput(t *testing.T) {
	_, rc, _ := setup(t)

	l := &landmarks{variant: posesVariant, tool: &fakeTool{}}
	_, err := task.Execute(context.Background(), l, rc)
	if !errors.Is(err, types.ErrToolRuntimeFailure) {
		t.Fatalf("error = %v, want ErrToolRuntimeFailure", err)
	}
}
