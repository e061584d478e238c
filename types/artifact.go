//nolint:revive // types is a common Go package naming convention
package types

import (
	"fmt"
	"time"
)

// SchemaVersion is the current artifact manifest schema version.
// Consumers must validate a manifest's schema version before reading
// the artifact it describes.
const SchemaVersion = 1

// Modality identifies the medium an artifact was derived from.
type Modality string

const (
	// ModalityAudio marks artifacts derived from audio tracks.
	ModalityAudio Modality = "audio"
	// ModalityVideo marks artifacts derived from video tracks.
	ModalityVideo Modality = "video"
	// ModalityText marks artifacts derived from text or transcripts.
	ModalityText Modality = "text"
)

// ArtifactKind discriminates the two on-disk artifact representations.
type ArtifactKind string

const (
	// KindRecords is a JSONL sequence of time-stamped Records.
	KindRecords ArtifactKind = "records"
	// KindMedia is an opaque media file (e.g. an extracted WAV track)
	// described only by its manifest.
	KindMedia ArtifactKind = "media"
	// KindSource is a raw user-provided file with no manifest sidecar.
	// Valid only in task input declarations, never in a manifest.
	KindSource ArtifactKind = "source"
)

// Manifest is the sidecar document written next to every artifact.
// It records schema version and producing task identity so downstream
// tasks can validate an artifact without being coupled to its producer.
type Manifest struct {
	SchemaVersion int          `yaml:"schema_version"`
	Kind          ArtifactKind `yaml:"kind"`
	Modality      Modality     `yaml:"modality"`
	// Producer is the registry id of the task that wrote the artifact.
	Producer  string    `yaml:"producer"`
	RunID     string    `yaml:"run_id,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
	// RecordCount is zero for media artifacts.
	RecordCount int   `yaml:"record_count"`
	SizeBytes   int64 `yaml:"size_bytes"`
}

// Validate checks that the manifest is complete and its schema version
// is one this build understands.
func (m *Manifest) Validate() error {
	if m.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported schema version %d (want %d)", m.SchemaVersion, SchemaVersion)
	}
	switch m.Kind {
	case KindRecords, KindMedia:
	default:
		return fmt.Errorf("unknown artifact kind %q", m.Kind)
	}
	switch m.Modality {
	case ModalityAudio, ModalityVideo, ModalityText:
	default:
		return fmt.Errorf("unknown modality %q", m.Modality)
	}
	if m.Producer == "" {
		return fmt.Errorf("manifest missing producer")
	}
	return nil
}

// ArtifactSpec declares one named input or output artifact of a task.
// Owned by the task's Descriptor; immutable after registration.
type ArtifactSpec struct {
	// Name is the logical artifact name within the task contract.
	Name string
	// Kind is the expected on-disk representation.
	Kind ArtifactKind
	// Modality is the expected modality.
	Modality Modality
	// Usage is a one-line human description for help surfaces.
	Usage string
}
