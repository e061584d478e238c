// Package store implements the on-disk artifact store.
//
// An artifact is a data file plus a sidecar manifest
// (<path>.manifest.yaml). Records artifacts hold JSONL sequences of
// time-stamped records; media artifacts are opaque files described only
// by their manifest. All writes go through a temp-file + rename
// discipline: readers never observe a partial artifact, and a failed
// write leaves nothing at the declared output path.
package store

import (
	"fmt"
	"os"
	"time"

	"github.com/attune-io/attune/iox"
	"github.com/attune-io/attune/metrics"
	"github.com/attune-io/attune/types"
)

// ManifestSuffix is appended to an artifact's data path to form its
// manifest path.
const ManifestSuffix = ".manifest.yaml"

// Store writes and reads artifacts for one pipeline run.
type Store struct {
	// RunID is stamped into every manifest this store writes.
	RunID string
	// Collector receives write metrics. Nil-safe.
	Collector *metrics.Collector
}

// New creates a store bound to a run id.
func New(runID string, collector *metrics.Collector) *Store {
	return &Store{RunID: runID, Collector: collector}
}

// WriteMeta carries the producer identity recorded in a manifest.
type WriteMeta struct {
	// Producer is the registry id of the writing task.
	Producer string
	// Modality is the artifact's modality.
	Modality types.Modality
}

// ManifestPath returns the sidecar manifest path for an artifact.
func ManifestPath(path string) string {
	return path + ManifestSuffix
}

// Exists reports whether a complete artifact (data file and manifest)
// is present at path.
func Exists(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	if _, err := os.Stat(ManifestPath(path)); err != nil {
		return false
	}
	return true
}

// Exists reports whether a complete artifact is present at path.
// Method form of Exists for callers holding a store.
func (s *Store) Exists(path string) bool { return Exists(path) }

// ReadRecords loads a records artifact's records. Callers needing the
// manifest use the package function.
func (s *Store) ReadRecords(path string) ([]types.Record, error) {
	records, _, err := ReadRecords(path)
	return records, err
}

// ReadManifest loads an artifact's manifest. Method form of ReadManifest.
func (s *Store) ReadManifest(path string) (*types.Manifest, error) {
	return ReadManifest(path)
}

// WriteRecords persists a records artifact. The sequence invariant is
// validated before anything touches the disk; a violation is
// ErrDataIntegrity and no file is written. The data file is committed
// before its manifest, so a manifest never describes a missing file.
func (s *Store) WriteRecords(path string, records []types.Record, meta WriteMeta) error {
	if err := types.ValidateSequence(records); err != nil {
		s.Collector.IncStoreWriteFailure()
		return err
	}

	data, err := encodeRecords(records)
	if err != nil {
		s.Collector.IncStoreWriteFailure()
		return fmt.Errorf("encode records: %w", err)
	}

	if err := iox.WriteAtomic(path, data, 0o644); err != nil {
		s.Collector.IncStoreWriteFailure()
		return fmt.Errorf("write artifact %s: %w", path, err)
	}

	manifest := &types.Manifest{
		SchemaVersion: types.SchemaVersion,
		Kind:          types.KindRecords,
		Modality:      meta.Modality,
		Producer:      meta.Producer,
		RunID:         s.RunID,
		CreatedAt:     time.Now().UTC(),
		RecordCount:   len(records),
		SizeBytes:     int64(len(data)),
	}
	if err := writeManifest(ManifestPath(path), manifest); err != nil {
		// Roll back the data file so no half-artifact remains.
		_ = os.Remove(path)
		s.Collector.IncStoreWriteFailure()
		return fmt.Errorf("write manifest for %s: %w", path, err)
	}

	s.Collector.AddRecordsWritten(int64(len(records)))
	s.Collector.IncArtifactWritten()
	return nil
}

// PromoteMedia commits a media artifact whose payload an external tool
// wrote to tmp. The rename is the commit point.
func (s *Store) PromoteMedia(tmp, path string, meta WriteMeta) error {
	info, err := os.Stat(tmp)
	if err != nil {
		s.Collector.IncStoreWriteFailure()
		return fmt.Errorf("stat media temp file: %w", err)
	}

	if err := iox.PromoteAtomic(tmp, path); err != nil {
		s.Collector.IncStoreWriteFailure()
		return fmt.Errorf("promote media artifact %s: %w", path, err)
	}

	manifest := &types.Manifest{
		SchemaVersion: types.SchemaVersion,
		Kind:          types.KindMedia,
		Modality:      meta.Modality,
		Producer:      meta.Producer,
		RunID:         s.RunID,
		CreatedAt:     time.Now().UTC(),
		SizeBytes:     info.Size(),
	}
	if err := writeManifest(ManifestPath(path), manifest); err != nil {
		_ = os.Remove(path)
		s.Collector.IncStoreWriteFailure()
		return fmt.Errorf("write manifest for %s: %w", path, err)
	}

	s.Collector.IncArtifactWritten()
	return nil
}

// ReadRecords loads a records artifact, validating the manifest schema
// and the record sequence invariant. An absent or schema-invalid
// artifact is ErrMissingInput; a sequence violation is ErrDataIntegrity.
func ReadRecords(path string) ([]types.Record, *types.Manifest, error) {
	manifest, err := ReadManifest(path)
	if err != nil {
		return nil, nil, err
	}
	if manifest.Kind != types.KindRecords {
		return nil, nil, types.NewError(types.ErrMissingInput, "", path,
			fmt.Errorf("artifact kind %q is not readable as records", manifest.Kind))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, types.NewError(types.ErrMissingInput, "", path, err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, nil, types.NewError(types.ErrDataIntegrity, "", path, err)
	}
	if err := types.ValidateSequence(records); err != nil {
		return nil, nil, types.NewError(types.ErrDataIntegrity, "", path, err)
	}
	return records, manifest, nil
}

// ReadManifest loads and validates the manifest of the artifact at path.
func ReadManifest(path string) (*types.Manifest, error) {
	manifest, err := readManifest(ManifestPath(path))
	if err != nil {
		return nil, types.NewError(types.ErrMissingInput, "", path, err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, types.NewError(types.ErrMissingInput, "", path, err)
	}
	return manifest, nil
}
