//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions rather than string
// matching.
var (
	// ErrInvalidConfiguration indicates malformed or missing parameters,
	// caught before any tool runs.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrMissingInput indicates a required input artifact is absent or
	// fails schema validation.
	ErrMissingInput = errors.New("missing input artifact")

	// ErrToolUnavailable indicates an external capability cannot be
	// reached or loaded (missing binary, unreachable endpoint).
	ErrToolUnavailable = errors.New("tool unavailable")

	// ErrToolRuntimeFailure indicates an external capability ran but
	// failed or produced invalid output.
	ErrToolRuntimeFailure = errors.New("tool runtime failure")

	// ErrDataIntegrity indicates records violating the non-overlap or
	// monotonic-ordering invariant.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrUnknownTask indicates a task id with no registry binding.
	ErrUnknownTask = errors.New("unknown task")

	// ErrDuplicateRegistration indicates a task id registered twice.
	ErrDuplicateRegistration = errors.New("duplicate task registration")
)

// Error wraps an underlying error with pipeline classification and
// enough context (task id, artifact path) to be actionable from the
// command surface. It preserves the original error in the chain for
// inspection via errors.As.
type Error struct {
	// Kind is the sentinel error for classification (e.g. ErrMissingInput).
	Kind error
	// TaskID is the registry id of the task involved, if any.
	TaskID string
	// Path is the artifact path involved, if any.
	Path string
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.TaskID != "" && e.Path != "":
		return fmt.Sprintf("task %s: %s: %v: %v", e.TaskID, e.Path, e.Kind, e.Err)
	case e.TaskID != "":
		return fmt.Sprintf("task %s: %v: %v", e.TaskID, e.Kind, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewError creates a classified pipeline error.
func NewError(kind error, taskID, path string, err error) *Error {
	return &Error{
		Kind:   kind,
		TaskID: taskID,
		Path:   path,
		Err:    err,
	}
}

// Kind returns the classification sentinel of err, or nil if err carries
// no classification.
func Kind(err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return nil
}
