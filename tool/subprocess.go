package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/attune-io/attune/types"
)

// stderrTailBytes bounds the stderr excerpt carried in failure messages.
const stderrTailBytes = 4 * 1024

// SubprocessConfig configures a subprocess tool.
// Config fully determines behavior: no implicit global state.
type SubprocessConfig struct {
	// Program is the binary name or path. Resolved via PATH at Prepare.
	Program string
	// Args is the base argument list, extended per invocation.
	Args []string
	// Env is additional environment entries (KEY=VALUE). The parent
	// environment is inherited either way.
	Env []string
	// Codec names the stdout record codec for DecodeRecords invocations:
	// CodecJSONL or CodecMsgpack.
	Codec string
}

// Subprocess invokes a native binary or adapter process. One Invoke is
// one process: the request spec is JSON on stdin, records or raw output
// arrive on stdout, diagnostics on stderr. The process dies with the
// invocation context.
type Subprocess struct {
	config SubprocessConfig

	mu       sync.Mutex
	resolved string
	cmd      *exec.Cmd
}

// NewSubprocess creates a subprocess tool from the given config.
func NewSubprocess(config SubprocessConfig) *Subprocess {
	if config.Codec == "" {
		config.Codec = CodecJSONL
	}
	return &Subprocess{config: config}
}

// Prepare resolves the program on PATH. A missing binary is
// ErrToolUnavailable: the capability cannot be loaded at all.
func (s *Subprocess) Prepare(_ context.Context) error {
	if s.config.Program == "" {
		return types.NewError(types.ErrToolUnavailable, "", "",
			errors.New("subprocess tool has no program configured"))
	}
	path, err := exec.LookPath(s.config.Program)
	if err != nil {
		return types.NewError(types.ErrToolUnavailable, "", "",
			fmt.Errorf("program %q not found: %w", s.config.Program, err))
	}

	s.mu.Lock()
	s.resolved = path
	s.mu.Unlock()
	return nil
}

// Invoke runs the program once and collects its complete output.
// A nonzero exit, or a corrupt record stream, is ErrToolRuntimeFailure
// carrying the stderr tail; no partial records are ever returned.
func (s *Subprocess) Invoke(ctx context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	program := s.resolved
	s.mu.Unlock()
	if program == "" {
		return nil, types.NewError(types.ErrToolUnavailable, "", "",
			errors.New("subprocess tool not prepared"))
	}

	args := make([]string, 0, len(s.config.Args)+len(req.Args))
	args = append(args, s.config.Args...)
	args = append(args, req.Args...)

	cmd := exec.CommandContext(ctx, program, args...)
	if len(s.config.Env) > 0 {
		cmd.Env = append(cmd.Environ(), s.config.Env...)
	}

	if req.Spec != nil {
		spec, err := json.Marshal(req.Spec)
		if err != nil {
			return nil, types.NewError(types.ErrToolRuntimeFailure, "", "",
				fmt.Errorf("encode request spec: %w", err))
		}
		cmd.Stdin = bytes.NewReader(spec)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, types.NewError(types.ErrToolRuntimeFailure, "", "",
			fmt.Errorf("create stdout pipe: %w", err))
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, types.NewError(types.ErrToolUnavailable, "", "",
			fmt.Errorf("start %s: %w", s.config.Program, err))
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()

	var (
		records   []types.Record
		body      []byte
		decodeErr error
	)
	if req.DecodeRecords {
		records, decodeErr = DecodeRecordStream(stdout, s.config.Codec)
	} else {
		body, decodeErr = io.ReadAll(stdout)
	}
	if decodeErr != nil {
		// A mid-stream decode failure leaves the pipe undrained, and a
		// child still writing would fill it and never exit. Kill it and
		// drain what remains so Wait cannot block.
		_ = cmd.Process.Kill()
		_, _ = io.Copy(io.Discard, stdout)
	}

	// Reap the child after stdout is drained; Wait closes the pipe.
	waitErr := cmd.Wait()

	s.mu.Lock()
	s.cmd = nil
	s.mu.Unlock()

	if decodeErr != nil {
		return nil, types.NewError(types.ErrToolRuntimeFailure, "", "",
			fmt.Errorf("%s produced corrupt output: %w", s.config.Program, decodeErr))
	}

	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, types.NewError(types.ErrToolRuntimeFailure, "", "",
				fmt.Errorf("%s killed: %w", s.config.Program, ctxErr))
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				exitCode = status.ExitStatus()
			}
		}
		return nil, types.NewError(types.ErrToolRuntimeFailure, "", "",
			fmt.Errorf("%s exited with code %d: %s", s.config.Program, exitCode, stderrTail(stderr.Bytes())))
	}

	return &Response{Records: records, Body: body}, nil
}

// Release kills an in-flight process, if any. Idempotent.
func (s *Subprocess) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil && s.cmd.Process != nil {
		return s.cmd.Process.Kill()
	}
	return nil
}

// stderrTail returns the last stderrTailBytes of captured stderr, with
// surrounding whitespace trimmed.
func stderrTail(b []byte) string {
	if len(b) > stderrTailBytes {
		b = b[len(b)-stderrTailBytes:]
	}
	return strings.TrimSpace(string(b))
}

// Verify Subprocess implements Tool.
var _ Tool = (*Subprocess)(nil)
