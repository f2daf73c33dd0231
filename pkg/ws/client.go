package ws

import (
	"io"
	"time"
)

// Stream is a duplex byte stream bound to one client.
type Stream interface {
	io.ReadWriteCloser
}

// writeDeadliner is implemented by net.Conn.
type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

type readResult struct {
	n   int
	err error
}

// Client is one registered stream with its own buffers and parser state.
type Client struct {
	ID uint64
	// Name describes the peer in logs, e.g. its remote address.
	Name string

	stream     Stream
	parser     Parser
	registered bool
	started    bool

	recvBuf [MaxMessageLen]byte
	sendBuf [SendBufferSize]byte
	chunk   [readChunkSize]byte

	readCh chan readResult
	ackCh  chan struct{}
	doneCh chan struct{}
}

func newClient(id uint64, stream Stream, name string, requireMask bool) *Client {
	c := &Client{
		ID:         id,
		Name:       name,
		stream:     stream,
		registered: true,
		readCh:     make(chan readResult),
		ackCh:      make(chan struct{}, 1),
		doneCh:     make(chan struct{}),
	}
	c.parser.Init(c.recvBuf[:], requireMask)
	return c
}

// Registered indicates the client is still in the registry.
func (c *Client) Registered() bool {
	return c.registered
}

// Done is closed when the client is removed.
func (c *Client) Done() <-chan struct{} {
	return c.doneCh
}

// startReading spawns the reader delivering chunks to poll.
func (c *Client) startReading() {
	if !c.started {
		c.started = true
		go c.readLoop()
	}
}

// readLoop reads one chunk at a time and waits for the chunk to be
// consumed before reusing the buffer.
func (c *Client) readLoop() {
	for {
		n, err := c.stream.Read(c.chunk[:])
		select {
		case c.readCh <- readResult{n: n, err: err}:
		case <-c.doneCh:
			return
		}
		if err != nil {
			return
		}
		select {
		case <-c.ackCh:
		case <-c.doneCh:
			return
		}
	}
}

// poll returns a pending read result without blocking.
func (c *Client) poll() (r readResult, ok bool) {
	select {
	case r = <-c.readCh:
		return r, true
	default:
		return r, false
	}
}

// release lets the reader reuse the chunk buffer.
func (c *Client) release() {
	select {
	case c.ackCh <- struct{}{}:
	default:
	}
}

func (c *Client) write(op Opcode, payload []byte, timeout time.Duration) error {
	f := Frame{Op: op, Payload: payload}
	n, err := f.Encode(c.sendBuf[:])
	if err != nil {
		return err
	}
	if d, ok := c.stream.(writeDeadliner); ok && timeout > 0 {
		d.SetWriteDeadline(time.Now().Add(timeout))
	}
	_, err = c.stream.Write(c.sendBuf[:n])
	return err
}

func (c *Client) close() {
	c.registered = false
	close(c.doneCh)
	c.stream.Close()
}
