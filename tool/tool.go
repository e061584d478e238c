// Package tool wraps external capabilities behind one invocation
// contract.
//
// A Tool owns exactly one external capability: a native binary, an
// inference adapter process, or a remote API endpoint. The pipeline core
// never touches a capability directly; tasks acquire a Tool, invoke it,
// and release it on every exit path.
//
// The variant set is closed: Subprocess (exec + framed stdout), HTTP
// (JSON POST with bounded retries), and in-process capabilities
// implemented directly against the interface. Each variant maps its
// failures into the shared taxonomy: a capability that cannot be
// reached or loaded is ErrToolUnavailable; one that ran and failed is
// ErrToolRuntimeFailure.
package tool

import (
	"context"

	"github.com/attune-io/attune/types"
)

// Tool is the capability-agnostic invocation contract.
// Configuration fully determines behavior: same config and input yield
// the same output, modulo documented external-model nondeterminism.
type Tool interface {
	// Prepare readies the capability: resolves the binary, validates the
	// endpoint, loads the resource. Failing here is ErrToolUnavailable.
	Prepare(ctx context.Context) error
	// Invoke runs the capability once. It never returns partial output:
	// on error the response is nil.
	Invoke(ctx context.Context, req Request) (*Response, error)
	// Release frees the capability's resources. Safe to call on every
	// exit path, including after a failed Prepare or Invoke.
	Release() error
}

// Request is one invocation's input.
type Request struct {
	// Args are appended to the tool's configured argument list for this
	// invocation (subprocess tools).
	Args []string
	// Spec, when non-nil, is JSON-encoded onto the capability's input
	// channel (subprocess stdin, HTTP request body).
	Spec any
	// DecodeRecords requests that the capability's output stream be
	// decoded into time-stamped records rather than captured raw.
	DecodeRecords bool
}

// Response is one invocation's complete output.
type Response struct {
	// Records holds decoded output records when DecodeRecords was set.
	Records []types.Record
	// Body holds the raw output otherwise.
	Body []byte
}
