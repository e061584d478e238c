package tool

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/attune-io/attune/types"
)

// Stream codecs for subprocess stdout. High-volume streams (per-frame
// landmark vectors) use length-prefixed msgpack frames; low-volume
// streams (diarization segments) use JSONL for inspectability.
const (
	// CodecJSONL decodes one JSON record per line.
	CodecJSONL = "jsonl"
	// CodecMsgpack decodes length-prefixed msgpack record frames.
	CodecMsgpack = "msgpack"
)

// Frame size constants for the msgpack codec.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including the
	// length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size.
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack or JSON decoding error.
	FrameErrorDecode
)

// FrameError represents a record-stream decoding error. Any frame error
// means the tool produced corrupt output, so callers treat it as
// ErrToolRuntimeFailure.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// recordFrame is the msgpack wire shape of one record.
type recordFrame struct {
	Start   float64        `msgpack:"start"`
	End     float64        `msgpack:"end"`
	Payload map[string]any `msgpack:"payload"`
}

// DecodeRecordStream reads a complete record stream from r using the
// named codec. The stream must be read to EOF: a partial stream is a
// frame error, never a short result.
func DecodeRecordStream(r io.Reader, codec string) ([]types.Record, error) {
	switch codec {
	case CodecJSONL:
		return decodeJSONLStream(r)
	case CodecMsgpack:
		return decodeMsgpackStream(r)
	default:
		return nil, fmt.Errorf("unknown stream codec %q", codec)
	}
}

func decodeJSONLStream(r io.Reader) ([]types.Record, error) {
	var records []types.Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxFrameSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec types.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, &FrameError{
				Kind: FrameErrorDecode,
				Msg:  fmt.Sprintf("line %d: invalid record", line),
				Err:  err,
			}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "record stream truncated",
			Err:  err,
		}
	}
	return records, nil
}

func decodeMsgpackStream(r io.Reader) ([]types.Record, error) {
	var records []types.Record

	for {
		payload, err := readFrame(r)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}

		var frame recordFrame
		if err := msgpack.Unmarshal(payload, &frame); err != nil {
			return nil, &FrameError{
				Kind: FrameErrorDecode,
				Msg:  "failed to decode record frame",
				Err:  err,
			}
		}
		records = append(records, types.Record{
			Start:   frame.Start,
			End:     frame.End,
			Payload: frame.Payload,
		})
	}
}

// readFrame reads a single length-prefixed frame.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit
func readFrame(r io.Reader) ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(r, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}
	return payload, nil
}

// EncodeRecordFrame serializes one record as a length-prefixed msgpack
// frame. Used by Go-side adapter processes and by tests crafting
// synthetic tool output.
func EncodeRecordFrame(rec types.Record) ([]byte, error) {
	payload, err := msgpack.Marshal(recordFrame{
		Start:   rec.Start,
		End:     rec.End,
		Payload: rec.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode record frame: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("record frame size %d exceeds maximum %d", len(payload), MaxPayloadSize)
	}

	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf, nil
}
