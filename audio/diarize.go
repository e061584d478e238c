package audio

import (
	"context"

	"github.com/attune-io/attune/iox"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/task"
	"github.com/attune-io/attune/tool"
	"github.com/attune-io/attune/types"
)

func diarizeDescriptor() task.Descriptor {
	return task.Descriptor{
		ID:    "audio.diarize",
		Usage: "segment an audio track into speaker turns",
		Inputs: []types.ArtifactSpec{
			{Name: "audio", Kind: types.KindMedia, Modality: types.ModalityAudio,
				Usage: "extracted WAV track"},
		},
		Outputs: []types.ArtifactSpec{
			{Name: "segments", Kind: types.KindRecords, Modality: types.ModalityAudio,
				Usage: "speaker turn records with speaker label and confidence"},
		},
		Params: []task.ParamSpec{
			{Name: "program", Type: task.ParamPath, Default: "attune-diarize",
				Usage: "diarization adapter binary"},
			{Name: "model", Type: task.ParamString, Default: "pyannote/speaker-diarization-3.1",
				Usage: "diarization model identifier"},
			{Name: "device", Type: task.ParamString, Default: "cpu",
				Usage: "inference device"},
			{Name: "num_speakers", Type: task.ParamInt, Default: 0,
				Usage: "expected speaker count, 0 to infer"},
		},
	}
}

// diarizeSpec is the request written to the adapter's stdin.
type diarizeSpec struct {
	Audio       string `json:"audio"`
	Model       string `json:"model"`
	Device      string `json:"device"`
	NumSpeakers int    `json:"num_speakers,omitempty"`
}

// diarize runs a diarization adapter process. The adapter emits one
// JSONL record per speaker turn with payload {speaker, confidence};
// the store rejects out-of-order or overlapping turns on write.
type diarize struct {
	tool tool.Tool
}

func newDiarize(params task.Params) (task.Task, error) {
	return &diarize{
		tool: tool.NewSubprocess(tool.SubprocessConfig{
			Program: params.String("program"),
			Codec:   tool.CodecJSONL,
		}),
	}, nil
}

func (d *diarize) Descriptor() task.Descriptor { return diarizeDescriptor() }

func (d *diarize) Run(ctx context.Context, rc *task.RunContext) (*task.Result, error) {
	if err := d.tool.Prepare(ctx); err != nil {
		return nil, err
	}
	defer iox.DiscardErr(d.tool.Release)

	rc.Metrics.IncToolInvocation()
	resp, err := d.tool.Invoke(ctx, tool.Request{
		Spec: diarizeSpec{
			Audio:       rc.Inputs["audio"],
			Model:       rc.Params.String("model"),
			Device:      rc.Params.String("device"),
			NumSpeakers: rc.Params.Int("num_speakers"),
		},
		DecodeRecords: true,
	})
	if err != nil {
		rc.Metrics.IncToolFailure()
		return nil, err
	}

	meta := store.WriteMeta{Producer: "audio.diarize", Modality: types.ModalityAudio}
	if err := rc.Store.WriteRecords(rc.Outputs["segments"], resp.Records, meta); err != nil {
		return nil, err
	}
	return &task.Result{Records: len(resp.Records)}, nil
}
