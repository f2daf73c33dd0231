package ws

import (
	"encoding/binary"
	"io"
)

const (
	finBit  byte = 0x80
	rsvBits byte = 0x70
	opMask  byte = 0x0f
	maskBit byte = 0x80
	lenMask byte = 0x7f

	len16 byte = 126
	len64 byte = 127
)

// Frame is a single frame for sending.
type Frame struct {
	Op      Opcode
	Payload []byte
	// More clears the FIN bit, a continuation frame follows.
	More bool
	// Mask is set on frames sent by clients.
	Mask *[4]byte
}

// HeaderLen returns the encoded header size.
func (f *Frame) HeaderLen() int {
	n := 2
	switch l := len(f.Payload); {
	case l > 0xffff:
		n += 8
	case l >= int(len16):
		n += 2
	}
	if f.Mask != nil {
		n += 4
	}
	return n
}

// Len returns the encoded size.
func (f *Frame) Len() int {
	return f.HeaderLen() + len(f.Payload)
}

// Encode writes the frame into dst and returns the number of bytes.
func (f *Frame) Encode(dst []byte) (int, error) {
	n := f.Len()
	if n > len(dst) {
		return 0, ErrFrameTooLarge
	}
	b0 := byte(f.Op) & opMask
	if !f.More {
		b0 |= finBit
	}
	dst[0] = b0
	var b1 byte
	if f.Mask != nil {
		b1 = maskBit
	}
	pos := 2
	switch l := len(f.Payload); {
	case l > 0xffff:
		dst[1] = b1 | len64
		binary.BigEndian.PutUint64(dst[2:], uint64(l))
		pos += 8
	case l >= int(len16):
		dst[1] = b1 | len16
		binary.BigEndian.PutUint16(dst[2:], uint16(l))
		pos += 2
	default:
		dst[1] = b1 | byte(l)
	}
	if f.Mask != nil {
		copy(dst[pos:], f.Mask[:])
		pos += 4
		for i, b := range f.Payload {
			dst[pos+i] = b ^ f.Mask[i&3]
		}
	} else {
		copy(dst[pos:], f.Payload)
	}
	return n, nil
}

// Bytes returns encoded bytes for sending.
func (f *Frame) Bytes() []byte {
	b := make([]byte, f.Len())
	f.Encode(b)
	return b
}

// WriteTo writes encoded bytes.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// ClosePayload encodes a close status code and reason into dst.
func ClosePayload(dst []byte, code CloseCode, reason string) []byte {
	if len(dst) < 2 {
		return nil
	}
	binary.BigEndian.PutUint16(dst, uint16(code))
	n := copy(dst[2:], reason)
	if n+2 > MaxControlPayload {
		n = MaxControlPayload - 2
	}
	return dst[:n+2]
}
