// Package audio implements the audio-modality tasks: track extraction,
// duration probing, speaker diarization, and per-segment transcription.
package audio

import "github.com/attune-io/attune/task"

// Register binds every audio task into the registry.
func Register(reg *task.Registry) error {
	registrations := []struct {
		desc  task.Descriptor
		build task.Constructor
	}{
		{extractDescriptor(), newExtract},
		{probeDescriptor(), newProbe},
		{diarizeDescriptor(), newDiarize},
		{transcribeDescriptor(), newTranscribe},
	}
	for _, r := range registrations {
		if err := reg.Register(r.desc, r.build); err != nil {
			return err
		}
	}
	return nil
}
