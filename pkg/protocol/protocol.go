// Package protocol defines the chat event framing for the real-time plane.
//
// Events are length-prefixed JSON: [4-byte big-endian length][JSON payload].
// The first event on a connection must be an auth_request; everything after
// admission is one of the events in events.go.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxEventSize is the maximum serialized event size (64KB).
const MaxEventSize = 65536

// WriteEvent writes a length-prefixed JSON event to a writer.
func WriteEvent(w io.Writer, evt *Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("protocol: marshal: %w", err)
	}
	if len(data) > MaxEventSize {
		return fmt.Errorf("protocol: event too large: %d bytes", len(data))
	}

	// Write length prefix
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data))) //nolint:gosec // length already bounds-checked above
	if _, err := w.Write(lenBuf); err != nil {
		return fmt.Errorf("protocol: write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("protocol: write payload: %w", err)
	}
	return nil
}

// ReadEvent reads a length-prefixed JSON event from a reader.
func ReadEvent(r io.Reader) (*Event, error) {
	// Read length prefix
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, fmt.Errorf("protocol: read length: %w", err)
	}
	length := binary.BigEndian.Uint32(lenBuf)
	if length > MaxEventSize {
		return nil, fmt.Errorf("protocol: event too large: %d bytes", length)
	}

	// Read payload
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("protocol: read payload: %w", err)
	}

	evt := &Event{}
	if err := json.Unmarshal(data, evt); err != nil {
		return nil, fmt.Errorf("protocol: unmarshal: %w", err)
	}
	return evt, nil
}
