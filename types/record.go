// Package types defines core domain types for the attune pipeline.
//
//nolint:revive // types is a common Go package naming convention
package types

import "fmt"

// Record is one time-stamped annotation entry within an artifact.
// Start and End are expressed in seconds from the start of the recording.
// Discrete events (a single timestamp rather than an interval) use
// End == Start.
type Record struct {
	// Start is the interval start in seconds (inclusive).
	Start float64 `json:"start"`
	// End is the interval end in seconds (exclusive). End == Start for
	// discrete events.
	End float64 `json:"end"`
	// Payload is the modality-specific structured value: a label, a
	// transcript span, a landmark vector, etc.
	Payload map[string]any `json:"payload"`
}

// Duration returns the interval length in seconds.
func (r Record) Duration() float64 {
	return r.End - r.Start
}

// Validate checks a single record's interval.
func (r Record) Validate() error {
	if r.Start < 0 {
		return fmt.Errorf("start %g is negative", r.Start)
	}
	if r.End < r.Start {
		return fmt.Errorf("end %g precedes start %g", r.End, r.Start)
	}
	return nil
}

// ValidateSequence checks the artifact-level record invariant: intervals
// are non-overlapping and strictly ordered by start time. A violation is
// classified ErrDataIntegrity, never silently tolerated.
func ValidateSequence(records []Record) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return NewError(ErrDataIntegrity, "", "", fmt.Errorf("record %d: %w", i, err))
		}
		if i == 0 {
			continue
		}
		prev := records[i-1]
		if r.Start <= prev.Start {
			return NewError(ErrDataIntegrity, "", "",
				fmt.Errorf("record %d: start %g not after previous start %g", i, r.Start, prev.Start))
		}
		if r.Start < prev.End {
			return NewError(ErrDataIntegrity, "", "",
				fmt.Errorf("record %d: start %g overlaps previous interval ending at %g", i, r.Start, prev.End))
		}
	}
	return nil
}
