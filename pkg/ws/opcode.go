package ws

import "strconv"

// Opcode is the frame opcode.
type Opcode byte

// Opcodes.
const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

// IsControl indicates a control frame opcode.
func (o Opcode) IsControl() bool {
	return o&0x8 != 0
}

// IsData indicates a text or binary message.
func (o Opcode) IsData() bool {
	return o == OpText || o == OpBinary
}

// IsValid indicates the opcode is not reserved.
func (o Opcode) IsValid() bool {
	switch o {
	case OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong:
		return true
	}
	return false
}

func (o Opcode) String() string {
	switch o {
	case OpContinuation:
		return "cont"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// CloseCode is the status code carried by a close frame.
type CloseCode uint16

// Close codes used by the server.
const (
	CloseNormal        CloseCode = 1000
	CloseGoingAway     CloseCode = 1001
	CloseProtocolError CloseCode = 1002
	CloseUnsupported   CloseCode = 1003
	CloseTooBig        CloseCode = 1009
	CloseTryAgainLater CloseCode = 1013
)

// Limits.
const (
	// MaxClients is the registry capacity.
	MaxClients = 4
	// MaxMessageLen bounds a reassembled message.
	MaxMessageLen = 1024
	// SendBufferSize bounds an encoded outbound frame: a MaxMessageLen
	// payload behind an unmasked header with 16-bit length.
	SendBufferSize = MaxMessageLen + 4
	// MaxControlPayload bounds the payload of control frames.
	MaxControlPayload = 125

	readChunkSize = 128
)
