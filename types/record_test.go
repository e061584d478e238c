package types

import (
	"errors"
	"testing"
)

func TestValidateSequence_Valid(t *testing.T) {
	records := []Record{
		{Start: 0, End: 5, Payload: map[string]any{"speaker": "SPEAKER_00"}},
		{Start: 5, End: 10, Payload: map[string]any{"speaker": "SPEAKER_01"}},
		{Start: 12.5, End: 13, Payload: map[string]any{"speaker": "SPEAKER_00"}},
	}

	if err := ValidateSequence(records); err != nil {
		t.Fatalf("ValidateSequence: %v", err)
	}
}

func TestValidateSequence_Empty(t *testing.T) {
	if err := ValidateSequence(nil); err != nil {
		t.Fatalf("empty sequence should be valid, got %v", err)
	}
}

func TestValidateSequence_DiscreteEvents(t *testing.T) {
	// Discrete events use End == Start and must still be accepted.
	records := []Record{
		{Start: 1, End: 1},
		{Start: 2, End: 2},
	}

	if err := ValidateSequence(records); err != nil {
		t.Fatalf("discrete events: %v", err)
	}
}

func TestValidateSequence_Violations(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
	}{
		{
			name: "overlap",
			records: []Record{
				{Start: 0, End: 6},
				{Start: 5, End: 10},
			},
		},
		{
			name: "out_of_order",
			records: []Record{
				{Start: 5, End: 10},
				{Start: 0, End: 5},
			},
		},
		{
			name: "duplicate_start",
			records: []Record{
				{Start: 0, End: 0},
				{Start: 0, End: 0},
			},
		},
		{
			name: "negative_start",
			records: []Record{
				{Start: -1, End: 2},
			},
		},
		{
			name: "inverted_interval",
			records: []Record{
				{Start: 3, End: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSequence(tt.records)
			if err == nil {
				t.Fatal("expected validation failure")
			}
			if !errors.Is(err, ErrDataIntegrity) {
				t.Errorf("error = %v, want ErrDataIntegrity", err)
			}
		})
	}
}

func TestManifestValidate(t *testing.T) {
	valid := Manifest{
		SchemaVersion: SchemaVersion,
		Kind:          KindRecords,
		Modality:      ModalityAudio,
		Producer:      "audio.diarize",
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid manifest: %v", err)
	}

	wrongVersion := valid
	wrongVersion.SchemaVersion = SchemaVersion + 1
	if err := wrongVersion.Validate(); err == nil {
		t.Error("expected schema version mismatch to fail")
	}

	noProducer := valid
	noProducer.Producer = ""
	if err := noProducer.Validate(); err == nil {
		t.Error("expected missing producer to fail")
	}

	badKind := valid
	badKind.Kind = "blob"
	if err := badKind.Validate(); err == nil {
		t.Error("expected unknown kind to fail")
	}
}
