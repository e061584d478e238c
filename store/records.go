package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/attune-io/attune/types"
)

// encodeRecords serializes records as JSONL, one record per line.
// The line-oriented text format keeps artifacts greppable and diffable
// across stages written in different languages.
func encodeRecords(records []types.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// decodeRecords parses a JSONL byte stream into records.
// Blank lines are tolerated; malformed lines are not.
func decodeRecords(data []byte) ([]types.Record, error) {
	var records []types.Record

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var r types.Record
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	return records, nil
}

// maxLineBytes bounds a single record line (16 MiB). Landmark vectors
// are large but nowhere near this; anything bigger is a corrupt file.
const maxLineBytes = 16 * 1024 * 1024
