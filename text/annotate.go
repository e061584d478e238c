// Package text implements the text-modality tasks: language-model
// annotation of transcripts.
package text

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

// Register binds every text task into the registry.
func Register(reg *task.Registry) error {
	return reg.Register(annotateDescriptor(), newAnnotate)
}

func annotateDescriptor() task.Descriptor {
	return task.Descriptor{
		ID:    "text.annotate",
		Usage: "label each transcript record with a language-model endpoint",
		Inputs: []types.ArtifactSpec{
			{Name: "transcript", Kind: types.KindRecords, Modality: types.ModalityText,
				Usage: "transcript records to annotate"},
		},
		Outputs: []types.ArtifactSpec{
			{Name: "annotations", Kind: types.KindRecords, Modality: types.ModalityText,
				Usage: "one label record per transcript record"},
		},
		Params: []task.ParamSpec{
			{Name: "url", Type: task.ParamString, Required: true,
				Usage: "LLM endpoint URL"},
			{Name: "api_key", Type: task.ParamString,
				Usage: "bearer token for the endpoint"},
			{Name: "model", Type: task.ParamString, Required: true,
				Usage: "model identifier"},
			{Name: "template", Type: task.ParamPath, Required: true,
				Usage: "role-tagged prompt template file"},
			{Name: "timeout", Type: task.ParamDuration, Default: "2m",
				Usage: "per-request timeout"},
			{Name: "retries", Type: task.ParamInt, Default: 3,
				Usage: "retry attempts per record"},
		},
	}
}

// annotateSpec is the per-record request body.
type annotateSpec struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// annotateReply is the endpoint's response body.
type annotateReply struct {
	Text string `json:"text"`
}

// annotate renders the prompt template once per transcript record and
// posts it to the endpoint. Output intervals mirror the transcript
// exactly, so annotations stay aligned with the speaker turns they
// label.
type annotate struct {
	tool tool.Tool
}

func newAnnotate(params task.Params) (task.Task, error) {
	retries := params.Int("retries")
	if retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", retries)
	}
	headers := map[string]string{}
	if key := params.String("api_key"); key != "" {
		headers["Authorization"] = "Bearer " + key
	}
	return &annotate{
		tool: tool.NewHTTP(tool.HTTPConfig{
			URL:     params.String("url"),
			Headers: headers,
			Timeout: params.Duration("timeout"),
			Retries: uint64(retries),
		}),
	}, nil
}

func (a *annotate) Descriptor() task.Descriptor { return annotateDescriptor() }

func (a *annotate) Run(ctx context.Context, rc *task.RunContext) (*task.Result, error) {
	template, err := LoadTemplate(rc.Params.String("template"))
	if err != nil {
		return nil, err
	}

	transcript, err := rc.Store.ReadRecords(rc.Inputs["transcript"])
	if err != nil {
		return nil, err
	}

	if err := a.tool.Prepare(ctx); err != nil {
		return nil, err
	}
	defer iox.DiscardErr(a.tool.Release)

	model := rc.Params.String("model")
	records := make([]types.Record, 0, len(transcript))
	for i, rec := range transcript {
		vars := map[string]string{}
		if text, ok := rec.Payload["text"].(string); ok {
			vars["text"] = text
		}
		if speaker, ok := rec.Payload["speaker"].(string); ok {
			vars["speaker"] = speaker
		}

		rc.Metrics.IncToolInvocation()
		resp, err := a.tool.Invoke(ctx, tool.Request{Spec: annotateSpec{
			Model:    model,
			Messages: Render(template, vars),
		}})
		if err != nil {
			rc.Metrics.IncToolFailure()
			return nil, err
		}

		var reply annotateReply
		if err := json.Unmarshal(resp.Body, &reply); err != nil {
			return nil, types.NewError(types.ErrToolRuntimeFailure, "", "",
				fmt.Errorf("record %d: invalid endpoint response: %w", i, err))
		}

		payload := map[string]any{"label": reply.Text}
		if speaker, ok := rec.Payload["speaker"]; ok {
			payload["speaker"] = speaker
		}
		records = append(records, types.Record{
			Start:   rec.Start,
			End:     rec.End,
			Payload: payload,
		})
	}

	meta := store.WriteMeta{Producer: "text.annotate", Modality: types.ModalityText}
	if err := rc.Store.WriteRecords(rc.Outputs["annotations"], records, meta); err != nil {
		return nil, err
	}
	return &task.Result{Records: len(records)}, nil
}
