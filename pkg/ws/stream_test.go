package ws

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errTestWrite = errors.New("write failed")

// testStream delivers queued chunks to Read and records writes.
type testStream struct {
	lock      sync.Mutex
	written   bytes.Buffer
	writeErr  error
	closed    bool
	readCh    chan []byte
	closedCh  chan struct{}
	closeOnce sync.Once
}

func newTestStream() *testStream {
	return &testStream{readCh: make(chan []byte, 16), closedCh: make(chan struct{})}
}

func (s *testStream) Read(p []byte) (int, error) {
	select {
	case b, ok := <-s.readCh:
		if !ok {
			return 0, io.EOF
		}
		return copy(p, b), nil
	case <-s.closedCh:
		return 0, io.ErrClosedPipe
	}
}

func (s *testStream) Write(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	return s.written.Write(p)
}

func (s *testStream) Close() error {
	s.closeOnce.Do(func() {
		s.lock.Lock()
		s.closed = true
		s.lock.Unlock()
		close(s.closedCh)
	})
	return nil
}

func (s *testStream) isClosed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}

func (s *testStream) failWrites(err error) {
	s.lock.Lock()
	s.writeErr = err
	s.lock.Unlock()
}

// frames decodes the unmasked frames written so far.
func (s *testStream) frames(t *testing.T) []Frame {
	s.lock.Lock()
	b := append([]byte{}, s.written.Bytes()...)
	s.lock.Unlock()
	var frames []Frame
	for len(b) > 0 {
		require.GreaterOrEqual(t, len(b), 2)
		require.Zero(t, b[1]&maskBit, "server frames are unmasked")
		f := Frame{Op: Opcode(b[0] & opMask), More: b[0]&finBit == 0}
		l, pos := int(b[1]&lenMask), 2
		switch byte(l) {
		case len16:
			l, pos = int(binary.BigEndian.Uint16(b[2:])), 4
		case len64:
			l, pos = int(binary.BigEndian.Uint64(b[2:])), 10
		}
		require.GreaterOrEqual(t, len(b), pos+l)
		f.Payload = b[pos : pos+l]
		frames = append(frames, f)
		b = b[pos+l:]
	}
	return frames
}

func closeCode(t *testing.T, f Frame) CloseCode {
	require.Equal(t, OpClose, f.Op)
	require.GreaterOrEqual(t, len(f.Payload), 2)
	return CloseCode(binary.BigEndian.Uint16(f.Payload))
}
