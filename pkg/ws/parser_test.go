package ws

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

var testMask = [4]byte{0x37, 0xfa, 0x21, 0x3d}

func clientFrame(op Opcode, more bool, payload []byte) []byte {
	f := &Frame{Op: op, More: more, Payload: payload, Mask: &testMask}
	return f.Bytes()
}

type parserTestSequence struct {
	in     []byte
	expect []ParseResult
	errors CloseCode
}

type parserTestSequenceBuilder struct {
	seq []parserTestSequence
}

func parserTestSequences() *parserTestSequenceBuilder {
	return &parserTestSequenceBuilder{}
}

func (b *parserTestSequenceBuilder) on(in ...[]byte) *parserTestSequenceBuilder {
	b.seq = append(b.seq, parserTestSequence{in: bytes.Join(in, nil)})
	return b
}

func (b *parserTestSequenceBuilder) message(op Opcode, payload []byte) *parserTestSequenceBuilder {
	s := &b.seq[len(b.seq)-1]
	s.expect = append(s.expect, ParseResult{Ready: true, Op: op, Payload: payload})
	return b
}

func (b *parserTestSequenceBuilder) violation(code CloseCode) *parserTestSequenceBuilder {
	b.seq[len(b.seq)-1].errors = code
	return b
}

func (b *parserTestSequenceBuilder) build() []parserTestSequence {
	return b.seq
}

func runParserSequence(t *testing.T, p *Parser, seq []parserTestSequence) {
	for n, s := range seq {
		var results []ParseResult
		var violation CloseCode
		for _, c := range s.in {
			pr := p.Parse(c)
			if pr.Err != nil {
				require.Zerof(t, violation, "sequence %d: more than one violation", n)
				violation = pr.Err.Code
				continue
			}
			if pr.Ready {
				// payload aliases the parser buffers
				pr.Payload = append([]byte{}, pr.Payload...)
				results = append(results, pr)
			}
		}
		require.Equalf(t, s.errors, violation, "sequence %d", n)
		require.Equalf(t, len(s.expect), len(results), "sequence %d", n)
		for i, expect := range s.expect {
			require.Equalf(t, expect.Op, results[i].Op, "sequence %d result %d", n, i)
			require.Equalf(t, string(expect.Payload), string(results[i].Payload), "sequence %d result %d", n, i)
		}
	}
}

func TestParser(t *testing.T) {
	long := bytes.Repeat([]byte("0123456789"), 30)
	testCases := []struct {
		name        string
		requireMask bool
		seq         []parserTestSequence
	}{
		{
			name:        "single frames",
			requireMask: true,
			seq: parserTestSequences().
				on(clientFrame(OpText, false, []byte("hello"))).message(OpText, []byte("hello")).
				on(clientFrame(OpBinary, false, []byte{0, 1, 2})).message(OpBinary, []byte{0, 1, 2}).
				on(clientFrame(OpBinary, false, nil)).message(OpBinary, nil).
				on(clientFrame(OpText, false, long)).message(OpText, long).
				build(),
		},
		{
			name: "unmasked frames",
			seq: parserTestSequences().
				on((&Frame{Op: OpText, Payload: []byte("raw")}).Bytes()).message(OpText, []byte("raw")).
				build(),
		},
		{
			name:        "fragmented message",
			requireMask: true,
			seq: parserTestSequences().
				on(clientFrame(OpText, true, []byte("hel"))).
				on(clientFrame(OpContinuation, true, nil)).
				on(clientFrame(OpContinuation, false, []byte("lo"))).message(OpText, []byte("hello")).
				on(clientFrame(OpBinary, false, []byte{9})).message(OpBinary, []byte{9}).
				build(),
		},
		{
			name:        "control frame inside fragmented message",
			requireMask: true,
			seq: parserTestSequences().
				on(clientFrame(OpBinary, true, []byte("ab")),
					clientFrame(OpPing, false, []byte("p")),
					clientFrame(OpContinuation, false, []byte("cd"))).
				message(OpPing, []byte("p")).message(OpBinary, []byte("abcd")).
				build(),
		},
		{
			name:        "64-bit length",
			requireMask: true,
			seq: parserTestSequences().
				on([]byte{0x82, 0x80 | 127, 0, 0, 0, 0, 0, 0, 0, 3}, testMask[:],
					[]byte{1 ^ testMask[0], 2 ^ testMask[1], 3 ^ testMask[2]}).
				message(OpBinary, []byte{1, 2, 3}).
				build(),
		},
		{
			name:        "declared length over limit",
			requireMask: true,
			seq: parserTestSequences().
				on([]byte{0x82, 0x80 | 126, 0x07, 0xd0}).violation(CloseTooBig).
				on(clientFrame(OpText, false, []byte("ignored"))).
				build(),
		},
		{
			name:        "accumulated length over limit",
			requireMask: true,
			seq: parserTestSequences().
				on(clientFrame(OpBinary, true, make([]byte, 1000))).
				on(clientFrame(OpContinuation, false, make([]byte, 25))).violation(CloseTooBig).
				build(),
		},
		{
			name:        "exactly max length",
			requireMask: true,
			seq: parserTestSequences().
				on(clientFrame(OpBinary, true, make([]byte, 1000))).
				on(clientFrame(OpContinuation, false, make([]byte, 24))).message(OpBinary, make([]byte, 1024)).
				build(),
		},
		{
			name:        "unmasked frame rejected",
			requireMask: true,
			seq: parserTestSequences().
				on((&Frame{Op: OpText, Payload: []byte("raw")}).Bytes()).violation(CloseProtocolError).
				build(),
		},
		{
			name: "continuation without message",
			seq: parserTestSequences().
				on(clientFrame(OpContinuation, false, []byte("x"))).violation(CloseProtocolError).
				build(),
		},
		{
			name: "data frame inside fragmented message",
			seq: parserTestSequences().
				on(clientFrame(OpText, true, []byte("x"))).
				on(clientFrame(OpText, false, []byte("y"))).violation(CloseProtocolError).
				build(),
		},
		{
			name: "reserved opcode",
			seq: parserTestSequences().
				on(clientFrame(Opcode(3), false, nil)).violation(CloseProtocolError).
				build(),
		},
		{
			name: "reserved bits",
			seq: parserTestSequences().
				on([]byte{0xc1, 0x00}).violation(CloseProtocolError).
				build(),
		},
		{
			name: "fragmented control frame",
			seq: parserTestSequences().
				on(clientFrame(OpPing, true, nil)).violation(CloseProtocolError).
				build(),
		},
		{
			name: "control frame too long",
			seq: parserTestSequences().
				on(clientFrame(OpPing, false, make([]byte, 126))).violation(CloseProtocolError).
				build(),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewParser(make([]byte, MaxMessageLen), tc.requireMask)
			runParserSequence(t, p, tc.seq)
		})
	}
}

func TestParserReset(t *testing.T) {
	p := NewParser(make([]byte, MaxMessageLen), true)
	for _, b := range clientFrame(OpText, true, []byte("abc")) {
		p.Parse(b)
	}
	require.True(t, p.InMessage())
	for _, b := range []byte{0x81, 0x05} {
		p.Parse(b)
	}
	require.True(t, p.Failed())
	p.Reset()
	require.False(t, p.Failed())
	require.False(t, p.InMessage())
	runParserSequence(t, p, parserTestSequences().
		on(clientFrame(OpText, false, []byte("ok"))).message(OpText, []byte("ok")).
		build())
}

func TestFrameEncode(t *testing.T) {
	testCases := []struct {
		name   string
		frame  Frame
		header []byte
	}{
		{"empty text", Frame{Op: OpText}, []byte{0x81, 0x00}},
		{"short binary", Frame{Op: OpBinary, Payload: make([]byte, 125)}, []byte{0x82, 125}},
		{"16-bit length", Frame{Op: OpBinary, Payload: make([]byte, 126)}, []byte{0x82, 126, 0, 126}},
		{"64-bit length", Frame{Op: OpBinary, Payload: make([]byte, 0x10000)}, []byte{0x82, 127, 0, 0, 0, 0, 0, 1, 0, 0}},
		{"fragment", Frame{Op: OpText, More: true, Payload: []byte("a")}, []byte{0x01, 0x01}},
		{"masked", Frame{Op: OpPong, Mask: &testMask}, []byte{0x8a, 0x80, 0x37, 0xfa, 0x21, 0x3d}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := tc.frame.Bytes()
			require.Equal(t, tc.header, b[:len(tc.header)])
			require.Len(t, b, len(tc.header)+len(tc.frame.Payload))
		})
	}

	var buf [SendBufferSize]byte
	_, err := (&Frame{Op: OpBinary, Payload: make([]byte, MaxMessageLen+1)}).Encode(buf[:])
	require.Equal(t, ErrFrameTooLarge, err)
	n, err := (&Frame{Op: OpBinary, Payload: make([]byte, MaxMessageLen)}).Encode(buf[:])
	require.NoError(t, err)
	require.Equal(t, SendBufferSize, n)
}

func TestClosePayload(t *testing.T) {
	var buf [MaxControlPayload]byte
	require.Equal(t, []byte{0x03, 0xf1, 'b', 'i', 'g'}, ClosePayload(buf[:], CloseTooBig, "big"))
	require.Len(t, ClosePayload(buf[:], CloseNormal, string(make([]byte, 300))), MaxControlPayload)
}
