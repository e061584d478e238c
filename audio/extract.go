package audio

import (
	"context"
	"strconv"

	"github.com/attune-io/attune/iox"
	"github.com/attune-io/attune/store"
	"github.com/attune-io/attune/task"
	"github.com/attune-io/attune/tool"
	"github.com/attune-io/attune/types"
)

func extractDescriptor() task.Descriptor {
	return task.Descriptor{
		ID:    "audio.extract",
		Usage: "extract the audio track of a video recording as a WAV artifact",
		Inputs: []types.ArtifactSpec{
			{Name: "video", Kind: types.KindSource, Modality: types.ModalityVideo,
				Usage: "raw session recording"},
		},
		Outputs: []types.ArtifactSpec{
			{Name: "audio", Kind: types.KindMedia, Modality: types.ModalityAudio,
				Usage: "extracted mono WAV track"},
		},
		Params: []task.ParamSpec{
			{Name: "program", Type: task.ParamPath, Default: "ffmpeg",
				Usage: "ffmpeg binary to invoke"},
			{Name: "sample_rate", Type: task.ParamInt, Default: 32000,
				Usage: "output sample rate in Hz"},
			{Name: "channels", Type: task.ParamInt, Default: 1,
				Usage: "output channel count"},
		},
	}
}

// extract converts a video recording into a WAV track. The tool writes
// to a temporary path; the store promotes it atomically on success, so
// an interrupted extraction never leaves a partial artifact behind.
type extract struct {
	tool tool.Tool
}

func newExtract(params task.Params) (task.Task, error) {
	return &extract{
		tool: tool.NewSubprocess(tool.SubprocessConfig{
			Program: params.String("program"),
		}),
	}, nil
}

func (e *extract) Descriptor() task.Descriptor { return extractDescriptor() }

func (e *extract) Run(ctx context.Context, rc *task.RunContext) (*task.Result, error) {
	if err := e.tool.Prepare(ctx); err != nil {
		return nil, err
	}
	defer iox.DiscardErr(e.tool.Release)

	out := rc.Outputs["audio"]
	tmp := iox.TempPath(out) + ".wav"

	args := []string{
		"-y",
		"-i", rc.Inputs["video"],
		"-vn",
		"-ac", strconv.Itoa(rc.Params.Int("channels")),
		"-ar", strconv.Itoa(rc.Params.Int("sample_rate")),
		"-q:a", "0",
		tmp,
	}
	rc.Metrics.IncToolInvocation()
	if _, err := e.tool.Invoke(ctx, tool.Request{Args: args}); err != nil {
		rc.Metrics.IncToolFailure()
		return nil, err
	}

	meta := store.WriteMeta{Producer: "audio.extract", Modality: types.ModalityAudio}
	if err := rc.Store.PromoteMedia(tmp, out, meta); err != nil {
		return nil, err
	}
	return &task.Result{Message: "audio track extracted"}, nil
}
