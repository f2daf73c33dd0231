package ws

import (
	"errors"
	"fmt"
)

var (
	// ErrAtCapacity rejects a stream when MaxClients are registered.
	ErrAtCapacity = errors.New("too many clients")
	// ErrClientClosed is returned when sending to a removed client.
	ErrClientClosed = errors.New("client closed")
	// ErrFrameTooLarge is returned when a frame doesn't fit the send buffer.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrProtocolViolation is matched by all ProtocolErrors.
	ErrProtocolViolation = errors.New("protocol violation")
)

// ProtocolError is a malformed or oversized inbound frame.
type ProtocolError struct {
	Code   CloseCode
	Reason string
}

// Error implements error.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation (%d): %s", e.Code, e.Reason)
}

// Is makes errors.Is(err, ErrProtocolViolation) true.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocolViolation
}

// StreamError is a read or write failure on a client stream.
type StreamError struct {
	ClientID uint64
	Op       string
	Err      error
}

// Error implements error.
func (e *StreamError) Error() string {
	return fmt.Sprintf("client %d %s: %v", e.ClientID, e.Op, e.Err)
}

// Unwrap returns the stream error.
func (e *StreamError) Unwrap() error {
	return e.Err
}
