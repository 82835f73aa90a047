package cache

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
)

// Values at or above this size are gzipped before they go to Redis. A page
// detail with fifteen posts and fifty employees is usually well past it.
const compressThreshold = 1024

// Stored values start with a one byte marker.
const (
	markerJSON byte = 'j'
	markerGzip byte = 'z'
)

func encodeValue(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if len(raw) < compressThreshold {
		return append([]byte{markerJSON}, raw...), nil
	}

	var buf bytes.Buffer
	buf.WriteByte(markerGzip)
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to write to gzip writer: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeValue(stored []byte, dest any) error {
	if len(stored) == 0 {
		return fmt.Errorf("empty cache value")
	}

	switch stored[0] {
	case markerJSON:
		return json.Unmarshal(stored[1:], dest)

	case markerGzip:
		reader, err := gzip.NewReader(bytes.NewReader(stored[1:]))
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer reader.Close()

		raw, err := io.ReadAll(reader)
		if err != nil {
			return fmt.Errorf("failed to read from gzip reader: %w", err)
		}
		return json.Unmarshal(raw, dest)

	default:
		// Unmarked JSON written before values carried a marker
		return json.Unmarshal(stored, dest)
	}
}
