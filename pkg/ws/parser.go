package ws

import "fmt"

// Parser reassembles messages from frames fed one byte at a time.
// It keeps its position between calls, so input can be split at any
// boundary.
type Parser struct {
	// RequireMask rejects unmasked frames.
	RequireMask bool

	buf    []byte
	msgLen int
	msgOp  Opcode

	state    parseState
	fin      bool
	op       Opcode
	masked   bool
	mask     [4]byte
	extLeft  int
	maskLeft int
	frameLen uint64
	recvLen  uint64
	ctrl     [MaxControlPayload]byte
}

// ParseResult indicates the result after one parsing step.
type ParseResult struct {
	// Ready is set when a message or a control frame completed.
	Ready bool
	// Op is the message opcode (never OpContinuation).
	Op Opcode
	// Payload aliases the parser buffers and is only valid until the next Parse.
	Payload []byte
	// Err is a protocol violation. The parser stops until Reset.
	Err *ProtocolError
}

type parseState int

const (
	stateOpcode  parseState = iota // waiting for FIN/opcode byte
	stateLength                    // waiting for MASK/length byte
	stateExtLen                    // waiting for extended length bytes
	stateMaskKey                   // waiting for masking key bytes
	statePayload                   // waiting for payload bytes
	stateFailed                    // protocol violation, input ignored
)

// NewParser creates a Parser reassembling into buf; len(buf) is the
// maximum message length.
func NewParser(buf []byte, requireMask bool) *Parser {
	return &Parser{buf: buf, RequireMask: requireMask}
}

// Init sets the message buffer and resets the state.
func (p *Parser) Init(buf []byte, requireMask bool) {
	*p = Parser{buf: buf, RequireMask: requireMask}
}

// Reset drops any partial frame or message.
func (p *Parser) Reset() {
	p.Init(p.buf, p.RequireMask)
}

// InMessage indicates a fragmented message is being reassembled.
func (p *Parser) InMessage() bool {
	return p.msgOp != 0
}

// Failed indicates a protocol violation was detected.
func (p *Parser) Failed() bool {
	return p.state == stateFailed
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	switch p.state {
	case stateOpcode:
		p.fin, p.op = b&finBit != 0, Opcode(b&opMask)
		switch {
		case b&rsvBits != 0:
			return p.fail(CloseProtocolError, "reserved bits set")
		case !p.op.IsValid():
			return p.fail(CloseProtocolError, fmt.Sprintf("reserved opcode 0x%x", byte(p.op)))
		case p.op.IsControl() && !p.fin:
			return p.fail(CloseProtocolError, "fragmented control frame")
		case p.op == OpContinuation && p.msgOp == 0:
			return p.fail(CloseProtocolError, "continuation without message")
		case p.op.IsData() && p.msgOp != 0:
			return p.fail(CloseProtocolError, "new message before continuation completed")
		}
		p.state = stateLength
	case stateLength:
		p.masked = b&maskBit != 0
		if p.RequireMask && !p.masked {
			return p.fail(CloseProtocolError, "unmasked frame")
		}
		switch l := b & lenMask; l {
		case len16:
			p.frameLen, p.extLeft, p.state = 0, 2, stateExtLen
		case len64:
			p.frameLen, p.extLeft, p.state = 0, 8, stateExtLen
		default:
			p.frameLen = uint64(l)
			return p.lengthKnown()
		}
	case stateExtLen:
		p.frameLen = p.frameLen<<8 | uint64(b)
		if p.extLeft--; p.extLeft == 0 {
			if p.frameLen>>63 != 0 {
				return p.fail(CloseProtocolError, "invalid length")
			}
			return p.lengthKnown()
		}
	case stateMaskKey:
		p.mask[4-p.maskLeft] = b
		if p.maskLeft--; p.maskLeft == 0 {
			return p.payloadStart()
		}
	case statePayload:
		if p.masked {
			b ^= p.mask[p.recvLen&3]
		}
		if p.op.IsControl() {
			p.ctrl[p.recvLen] = b
		} else {
			p.buf[p.msgLen] = b
			p.msgLen++
		}
		if p.recvLen++; p.recvLen >= p.frameLen {
			return p.frameReady()
		}
	}
	return
}

func (p *Parser) lengthKnown() (pr ParseResult) {
	if p.op.IsControl() {
		if p.frameLen > MaxControlPayload {
			return p.fail(CloseProtocolError, "control frame too long")
		}
	} else if p.frameLen > uint64(len(p.buf)-p.msgLen) {
		return p.fail(CloseTooBig, fmt.Sprintf("message exceeds %d bytes", len(p.buf)))
	}
	if p.masked {
		p.maskLeft, p.state = 4, stateMaskKey
		return
	}
	return p.payloadStart()
}

func (p *Parser) payloadStart() (pr ParseResult) {
	p.recvLen, p.state = 0, statePayload
	if p.frameLen == 0 {
		return p.frameReady()
	}
	return
}

func (p *Parser) frameReady() (pr ParseResult) {
	p.state = stateOpcode
	if p.op.IsControl() {
		pr.Ready, pr.Op, pr.Payload = true, p.op, p.ctrl[:p.frameLen]
		return
	}
	if p.op != OpContinuation {
		p.msgOp = p.op
	}
	if p.fin {
		pr.Ready, pr.Op, pr.Payload = true, p.msgOp, p.buf[:p.msgLen]
		p.msgOp, p.msgLen = 0, 0
	}
	return
}

func (p *Parser) fail(code CloseCode, reason string) (pr ParseResult) {
	p.state = stateFailed
	pr.Err = &ProtocolError{Code: code, Reason: reason}
	return
}
