package audio

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/attune-io/attune/iox"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/task"
	"github.com/attune-io/attune/tool"
	"github.com/attune-io/attune/types"
)

func transcribeDescriptor() task.Descriptor {
	return task.Descriptor{
		ID:    "audio.transcribe",
		Usage: "transcribe each speaker turn with a remote ASR endpoint",
		Inputs: []types.ArtifactSpec{
			{Name: "audio", Kind: types.KindMedia, Modality: types.ModalityAudio,
				Usage: "extracted WAV track"},
			{Name: "segments", Kind: types.KindRecords, Modality: types.ModalityAudio,
				Usage: "speaker turn records from diarization"},
		},
		Outputs: []types.ArtifactSpec{
			{Name: "transcript", Kind: types.KindRecords, Modality: types.ModalityText,
				Usage: "one transcript record per speaker turn"},
		},
		Params: []task.ParamSpec{
			{Name: "url", Type: task.ParamString, Required: true,
				Usage: "ASR endpoint URL"},
			{Name: "api_key", Type: task.ParamString,
				Usage: "bearer token for the endpoint"},
			{Name: "model", Type: task.ParamString, Default: "whisper-large-v3",
				Usage: "ASR model identifier"},
			{Name: "language", Type: task.ParamString,
				Usage: "language hint, empty to auto-detect"},
			{Name: "timeout", Type: task.ParamDuration, Default: "2m",
				Usage: "per-request timeout"},
			{Name: "retries", Type: task.ParamInt, Default: 3,
				Usage: "retry attempts per segment"},
		},
	}
}

// transcribeSpec is the per-segment request body.
type transcribeSpec struct {
	Audio    string  `json:"audio"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Model    string  `json:"model"`
	Language string  `json:"language,omitempty"`
}

// transcribeReply is the endpoint's response body.
type transcribeReply struct {
	Text string `json:"text"`
}

// transcribe invokes the ASR endpoint once per speaker turn. Output
// record intervals are copied verbatim from the input segments: the
// transcript stays aligned to the diarization, whatever the endpoint
// reports internally.
type transcribe struct {
	tool tool.Tool
}

func newTranscribe(params task.Params) (task.Task, error) {
	retries := params.Int("retries")
	if retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", retries)
	}
	headers := map[string]string{}
	if key := params.String("api_key"); key != "" {
		headers["Authorization"] = "Bearer " + key
	}
	return &transcribe{
		tool: tool.NewHTTP(tool.HTTPConfig{
			URL:     params.String("url"),
			Headers: headers,
			Timeout: params.Duration("timeout"),
			Retries: uint64(retries),
		}),
	}, nil
}

func (t *transcribe) Descriptor() task.Descriptor { return transcribeDescriptor() }

func (t *transcribe) Run(ctx context.Context, rc *task.RunContext) (*task.Result, error) {
	segments, err := rc.Store.ReadRecords(rc.Inputs["segments"])
	if err != nil {
		return nil, err
	}

	if err := t.tool.Prepare(ctx); err != nil {
		return nil, err
	}
	defer iox.DiscardErr(t.tool.Release)

	records := make([]types.Record, 0, len(segments))
	for i, seg := range segments {
		rc.Metrics.IncToolInvocation()
		resp, err := t.tool.Invoke(ctx, tool.Request{Spec: transcribeSpec{
			Audio:    rc.Inputs["audio"],
			Start:    seg.Start,
			End:      seg.End,
			Model:    rc.Params.String("model"),
			Language: rc.Params.String("language"),
		}})
		if err != nil {
			rc.Metrics.IncToolFailure()
			return nil, err
		}

		var reply transcribeReply
		if err := json.Unmarshal(resp.Body, &reply); err != nil {
			return nil, types.NewError(types.ErrToolRuntimeFailure, "", "",
				fmt.Errorf("segment %d: invalid endpoint response: %w", i, err))
		}

		payload := map[string]any{"text": reply.Text}
		if speaker, ok := seg.Payload["speaker"]; ok {
			payload["speaker"] = speaker
		}
		records = append(records, types.Record{
			Start:   seg.Start,
			End:     seg.End,
			Payload: payload,
		})
	}

	meta := store.WriteMeta{Producer: "audio.transcribe", Modality: types.ModalityText}
	if err := rc.Store.WriteRecords(rc.Outputs["transcript"], records, meta); err != nil {
		return nil, err
	}
	return &task.Result{Records: len(records)}, nil
}
