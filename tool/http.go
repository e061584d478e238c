package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/attune-io/attune/iox"
	"github.com/attune-io/attune/types"
)

// DefaultHTTPTimeout is the default per-request timeout.
const DefaultHTTPTimeout = 60 * time.Second

// DefaultHTTPRetries is the default number of retry attempts.
const DefaultHTTPRetries = 3

// HTTPConfig configures an HTTP tool.
type HTTPConfig struct {
	// URL is the endpoint to POST to (required).
	URL string
	// Headers are custom HTTP headers added to each request
	// (Authorization for API credentials, etc.).
	Headers map[string]string
	// Timeout is the per-request timeout (default 60s — model inference
	// endpoints are slow).
	Timeout time.Duration
	// Retries is the number of retry attempts on transient failures
	// (default 3). Retries are bounded and explicit; there is no
	// unbounded retry anywhere in the pipeline.
	Retries uint64
}

// HTTP invokes a remote model endpoint (ASR service, LLM API) via JSON
// POST. Transient failures (network errors, 5xx) are retried with
// exponential backoff; 4xx responses are permanent and fail
// immediately.
type HTTP struct {
	config HTTPConfig
	client *http.Client
}

// NewHTTP creates an HTTP tool from the given config.
func NewHTTP(config HTTPConfig) *HTTP {
	if config.Timeout <= 0 {
		config.Timeout = DefaultHTTPTimeout
	}
	return &HTTP{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Prepare validates the endpoint configuration.
func (h *HTTP) Prepare(_ context.Context) error {
	if h.config.URL == "" {
		return types.NewError(types.ErrToolUnavailable, "", "",
			errors.New("http tool has no URL configured"))
	}
	return nil
}

// statusError is returned for non-2xx HTTP responses. Carrying the
// status code lets the retry loop distinguish retriable (5xx) from
// permanent (4xx) failures.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Invoke POSTs the request spec as JSON and returns the response body.
// The endpoint being unreachable after all retries is
// ErrToolUnavailable; the endpoint answering with an error status is
// ErrToolRuntimeFailure.
func (h *HTTP) Invoke(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(req.Spec)
	if err != nil {
		return nil, types.NewError(types.ErrToolRuntimeFailure, "", "",
			fmt.Errorf("encode request spec: %w", err))
	}

	retries := h.config.Retries
	if retries == 0 {
		retries = DefaultHTTPRetries
	}

	var body []byte
	operation := func() error {
		var opErr error
		body, opErr = h.doRequest(ctx, payload)
		if opErr == nil {
			return nil
		}
		// 4xx is a permanent failure: the request itself is wrong.
		var se *statusError
		if errors.As(opErr, &se) && se.Code >= 400 && se.Code < 500 {
			return backoff.Permanent(opErr)
		}
		return opErr
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries)
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return nil, types.NewError(types.ErrToolRuntimeFailure, "", "",
				fmt.Errorf("endpoint %s: %w", h.config.URL, err))
		}
		return nil, types.NewError(types.ErrToolUnavailable, "", "",
			fmt.Errorf("endpoint %s unreachable: %w", h.config.URL, err))
	}

	resp := &Response{Body: body}
	if req.DecodeRecords {
		records, err := DecodeRecordStream(bytes.NewReader(body), CodecJSONL)
		if err != nil {
			return nil, types.NewError(types.ErrToolRuntimeFailure, "", "",
				fmt.Errorf("endpoint %s produced corrupt records: %w", h.config.URL, err))
		}
		resp = &Response{Records: records}
	}
	return resp, nil
}

// doRequest performs a single HTTP POST and returns the body on 2xx.
func (h *HTTP) doRequest(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range h.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{Code: resp.StatusCode, Body: stderrTail(body)}
	}
	return body, nil
}

// Release closes idle connections.
func (h *HTTP) Release() error {
	h.client.CloseIdleConnections()
	return nil
}

// Verify HTTP implements Tool.
var _ Tool = (*HTTP)(nil)
