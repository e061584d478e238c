package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tcolgate/mp3"

	"github.com/attune-io/attune/iox"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/task"
	"github.com/attune-io/attune/tool"
	"github.com/attune-io/attune/types"
)

func probeDescriptor() task.Descriptor {
	return task.Descriptor{
		ID:    "audio.probe",
		Usage: "measure the playable duration of an MP3 recording",
		Inputs: []types.ArtifactSpec{
			{Name: "audio", Kind: types.KindSource, Modality: types.ModalityAudio,
				Usage: "raw MP3 recording"},
		},
		Outputs: []types.ArtifactSpec{
			{Name: "duration", Kind: types.KindRecords, Modality: types.ModalityAudio,
				Usage: "single record spanning the recording with its duration"},
		},
	}
}

// probe measures duration by decoding the MP3 frame headers in-process;
// no external binary is involved, but the capability still runs behind
// the Tool contract like every other.
type probe struct {
	tool tool.Tool
}

func newProbe(task.Params) (task.Task, error) {
	return &probe{tool: &durationProbe{}}, nil
}

func (p *probe) Descriptor() task.Descriptor { return probeDescriptor() }

func (p *probe) Run(ctx context.Context, rc *task.RunContext) (*task.Result, error) {
	if err := p.tool.Prepare(ctx); err != nil {
		return nil, err
	}
	defer iox.DiscardErr(p.tool.Release)

	rc.Metrics.IncToolInvocation()
	resp, err := p.tool.Invoke(ctx, tool.Request{
		Args:          []string{rc.Inputs["audio"]},
		DecodeRecords: true,
	})
	if err != nil {
		rc.Metrics.IncToolFailure()
		return nil, err
	}

	meta := store.WriteMeta{Producer: "audio.probe", Modality: types.ModalityAudio}
	if err := rc.Store.WriteRecords(rc.Outputs["duration"], resp.Records, meta); err != nil {
		return nil, err
	}
	return &task.Result{Records: len(resp.Records)}, nil
}

// durationProbe is the in-process MP3 duration capability. It walks
// every frame header and sums frame durations; ID3 tags and junk bytes
// are skipped by the decoder.
type durationProbe struct{}

func (d *durationProbe) Prepare(context.Context) error { return nil }
func (d *durationProbe) Release() error                { return nil }

func (d *durationProbe) Invoke(_ context.Context, req tool.Request) (*tool.Response, error) {
	if len(req.Args) != 1 {
		return nil, types.NewError(types.ErrInvalidConfiguration, "", "",
			errors.New("duration probe expects exactly one audio path"))
	}
	path := req.Args[0]

	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewError(types.ErrMissingInput, "", path,
			fmt.Errorf("open audio: %w", err))
	}
	defer iox.DiscardClose(f)

	var (
		total   time.Duration
		frames  int
		skipped int
	)
	dec := mp3.NewDecoder(f)
	var frame mp3.Frame
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, types.NewError(types.ErrToolRuntimeFailure, "", path,
				fmt.Errorf("decode mp3 frame %d: %w", frames, err))
		}
		total += frame.Duration()
		frames++
	}
	if frames == 0 {
		return nil, types.NewError(types.ErrToolRuntimeFailure, "", path,
			errors.New("no mp3 frames found"))
	}

	seconds := total.Seconds()
	return &tool.Response{Records: []types.Record{{
		Start: 0,
		End:   seconds,
		Payload: map[string]any{
			"duration_seconds": seconds,
			"frames":           frames,
		},
	}}}, nil
}

var _ tool.Tool = (*durationProbe)(nil)
