// Package video implements the video-modality tasks: facial and body
// landmark extraction.
//
// Extraction adapters report per-frame records keyed by frame index;
// the tasks convert indices to seconds with the configured fps so every
// artifact in a run shares one time base.
package video

import (
	"context"
	"errors"
	"fmt"

	"github.com/attune-io/attune/iox"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/task"
	"github.com/attune-io/attune/tool"
	"github.com/attune-io/attune/types"
)

// Register binds every video task into the registry.
func Register(reg *task.Registry) error {
	for _, v := range []landmarkVariant{facesVariant, posesVariant} {
		v := v
		err := reg.Register(v.descriptor(), func(params task.Params) (task.Task, error) {
			return newLandmarks(v, params)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// landmarkVariant distinguishes the two extraction tasks; everything
// but the id, adapter default, and feature name is shared.
type landmarkVariant struct {
	id             string
	usage          string
	defaultProgram string
	feature        string
}

var (
	facesVariant = landmarkVariant{
		id:             "video.faces",
		usage:          "extract facial landmarks from a video recording",
		defaultProgram: "attune-faces",
		feature:        "face",
	}
	posesVariant = landmarkVariant{
		id:             "video.poses",
		usage:          "extract body pose landmarks from a video recording",
		defaultProgram: "attune-poses",
		feature:        "pose",
	}
)

func (v landmarkVariant) descriptor() task.Descriptor {
	return task.Descriptor{
		ID:    v.id,
		Usage: v.usage,
		Inputs: []types.ArtifactSpec{
			{Name: "video", Kind: types.KindSource, Modality: types.ModalityVideo,
				Usage: "raw session recording"},
		},
		Outputs: []types.ArtifactSpec{
			{Name: "landmarks", Kind: types.KindRecords, Modality: types.ModalityVideo,
				Usage: "per-frame landmark records in seconds"},
		},
		Params: []task.ParamSpec{
			{Name: "program", Type: task.ParamPath, Default: v.defaultProgram,
				Usage: "extraction adapter binary"},
			{Name: "fps", Type: task.ParamFloat, Required: true,
				Usage: "recording frame rate, for frame-index conversion"},
			{Name: "model", Type: task.ParamString,
				Usage: "adapter model identifier"},
			{Name: "device", Type: task.ParamString, Default: "cpu",
				Usage: "inference device"},
		},
	}
}

// landmarkSpec is the request written to the adapter's stdin.
type landmarkSpec struct {
	Video   string `json:"video"`
	Feature string `json:"feature"`
	Model   string `json:"model,omitempty"`
	Device  string `json:"device"`
}

// landmarks runs an extraction adapter. High-volume per-frame output
// arrives as length-prefixed msgpack frames; each record's interval is
// the frame index pair [idx, idx+1) which is divided by fps here.
type landmarks struct {
	variant landmarkVariant
	tool    tool.Tool
}

func newLandmarks(v landmarkVariant, params task.Params) (task.Task, error) {
	return &landmarks{
		variant: v,
		tool: tool.NewSubprocess(tool.SubprocessConfig{
			Program: params.String("program"),
			Codec:   tool.CodecMsgpack,
		}),
	}, nil
}

func (l *landmarks) Descriptor() task.Descriptor { return l.variant.descriptor() }

func (l *landmarks) Run(ctx context.Context, rc *task.RunContext) (*task.Result, error) {
	fps := rc.Params.Float("fps")
	if fps <= 0 {
		return nil, types.NewError(types.ErrInvalidConfiguration, "", "",
			fmt.Errorf("fps must be positive, got %g", fps))
	}

	if err := l.tool.Prepare(ctx); err != nil {
		return nil, err
	}
	defer iox.DiscardErr(l.tool.Release)

	rc.Metrics.IncToolInvocation()
	resp, err := l.tool.Invoke(ctx, tool.Request{
		Spec: landmarkSpec{
			Video:   rc.Inputs["video"],
			Feature: l.variant.feature,
			Model:   rc.Params.String("model"),
			Device:  rc.Params.String("device"),
		},
		DecodeRecords: true,
	})
	if err != nil {
		rc.Metrics.IncToolFailure()
		return nil, err
	}

	records, err := framesToSeconds(resp.Records, fps)
	if err != nil {
		return nil, err
	}

	meta := store.WriteMeta{Producer: l.variant.id, Modality: types.ModalityVideo}
	if err := rc.Store.WriteRecords(rc.Outputs["landmarks"], records, meta); err != nil {
		return nil, err
	}
	return &task.Result{Records: len(records)}, nil
}

// framesToSeconds converts frame-index intervals to seconds in place.
func framesToSeconds(records []types.Record, fps float64) ([]types.Record, error) {
	for i := range records {
		if records[i].Start < 0 || records[i].End <= records[i].Start {
			return nil, types.NewError(types.ErrToolRuntimeFailure, "", "",
				fmt.Errorf("frame record %d has invalid index interval [%g,%g)",
					i, records[i].Start, records[i].End))
		}
		records[i].Start /= fps
		records[i].End /= fps
	}
	if len(records) == 0 {
		return nil, types.NewError(types.ErrToolRuntimeFailure, "", "",
			errors.New("adapter produced no frame records"))
	}
	return records, nil
}
