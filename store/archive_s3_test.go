package store

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/attune-io/attune/types"
)

// fakePutter records PutObject calls.
type fakePutter struct {
	keys []string
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, err := io.ReadAll(input.Body); err != nil {
		return nil, err
	}
	f.keys = append(f.keys, *input.Key)
	return &s3.PutObjectOutput{}, nil
}

func writeArtifact(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "segments.jsonl")
	s := testStore()
	records := []types.Record{{Start: 0, End: 1, Payload: map[string]any{}}}
	if err := s.WriteRecords(path, records, WriteMeta{Producer: "audio.diarize", Modality: types.ModalityAudio}); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestArchiverUpload_PushesDataAndManifest(t *testing.T) {
	path := writeArtifact(t, t.TempDir())

	putter := &fakePutter{}
	a, err := NewArchiverWithClient(putter, S3Config{Bucket: "lab-archive", Prefix: "sessions"})
	if err != nil {
		t.Fatalf("NewArchiverWithClient: %v", err)
	}

	if err := a.Upload(context.Background(), path, "run-042"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	want := []string{
		"sessions/run-042/segments.jsonl",
		"sessions/run-042/segments.jsonl.manifest.yaml",
	}
	if len(putter.keys) != len(want) {
		t.Fatalf("uploaded %d objects, want %d: %v", len(putter.keys), len(want), putter.keys)
	}
	for i, k := range want {
		if putter.keys[i] != k {
			t.Errorf("key[%d] = %q, want %q", i, putter.keys[i], k)
		}
	}
}

func TestArchiverUpload_RefusesIncompleteArtifact(t *testing.T) {
	a, err := NewArchiverWithClient(&fakePutter{}, S3Config{Bucket: "b"})
	if err != nil {
		t.Fatalf("NewArchiverWithClient: %v", err)
	}

	err = a.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.jsonl"), "run-1")
	if err == nil {
		t.Fatal("expected failure for incomplete artifact")
	}
}

func TestArchiverUpload_PropagatesPutError(t *testing.T) {
	path := writeArtifact(t, t.TempDir())

	putter := &fakePutter{err: errors.New("slow down")}
	a, err := NewArchiverWithClient(putter, S3Config{Bucket: "b"})
	if err != nil {
		t.Fatalf("NewArchiverWithClient: %v", err)
	}

	if err := a.Upload(context.Background(), path, "run-1"); err == nil {
		t.Fatal("expected upload failure")
	}
}

func TestS3ConfigValidate(t *testing.T) {
	cfg := S3Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("empty bucket should fail validation")
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		in             string
		bucket, prefix string
	}{
		{"bucket", "bucket", ""},
		{"bucket/prefix", "bucket", "prefix"},
		{"bucket/a/b", "bucket", "a/b"},
	}
	for _, tt := range tests {
		bucket, prefix := ParseS3Path(tt.in)
		if bucket != tt.bucket || prefix != tt.prefix {
			t.Errorf("ParseS3Path(%q) = %q,%q want %q,%q", tt.in, bucket, prefix, tt.bucket, tt.prefix)
		}
	}
}
