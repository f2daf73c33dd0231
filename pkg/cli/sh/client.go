package sh

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/robotalks/way.go/pkg/control"
	"github.com/robotalks/way.go/pkg/telemetry"
)

// ErrClosed is returned when the connection is gone.
var ErrClosed = errors.New("connection closed")

const updateBuffer = 16

type frame struct {
	op   byte
	data []byte
}

var frameCodec = websocket.Codec{
	Marshal: func(v interface{}) ([]byte, byte, error) {
		f := v.(frame)
		return f.data, f.op, nil
	},
	Unmarshal: func(data []byte, payloadType byte, v interface{}) error {
		f := v.(*frame)
		f.op, f.data = payloadType, data
		return nil
	},
}

// Client speaks the LED/orientation protocol to a daemon over websocket.
// Binary frames carry the LED level, text frames carry orientations.
type Client struct {
	URL string

	conn   *websocket.Conn
	levels chan byte
	texts  chan string
	done   chan struct{}

	lock sync.Mutex
	err  error
}

// Dial connects to a daemon, e.g. ws://robot/ws.
func Dial(wsURL string) (*Client, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	origin := "http://" + u.Host
	if u.Scheme == "wss" {
		origin = "https://" + u.Host
	}
	conn, err := websocket.Dial(wsURL, "", origin)
	if err != nil {
		return nil, err
	}
	c := &Client{
		URL:    wsURL,
		conn:   conn,
		levels: make(chan byte, updateBuffer),
		texts:  make(chan string, updateBuffer),
		done:   make(chan struct{}),
	}
	go c.receive()
	return c, nil
}

func (c *Client) receive() {
	defer close(c.done)
	for {
		var f frame
		if err := frameCodec.Receive(c.conn, &f); err != nil {
			c.lock.Lock()
			c.err = err
			c.lock.Unlock()
			return
		}
		switch {
		case f.op == websocket.BinaryFrame && len(f.data) == 1:
			push(c.levels, f.data[0])
		case f.op == websocket.TextFrame:
			push(c.texts, string(f.data))
		}
	}
}

// push drops the oldest update when the consumer falls behind.
func push[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func drain[T any](ch chan T) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// Done is closed when the connection is lost.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error which terminated the connection.
func (c *Client) Err() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.err
}

// SetLED switches the LED.
func (c *Client) SetLED(on bool) error {
	level := byte(control.LevelOff)
	if on {
		level = control.LevelOn
	}
	return frameCodec.Send(c.conn, frame{op: websocket.BinaryFrame, data: []byte{level}})
}

// LED asks for the current LED level.
func (c *Client) LED(ctx context.Context) (byte, error) {
	drain(c.levels)
	if err := frameCodec.Send(c.conn, frame{op: websocket.TextFrame, data: []byte(control.CmdLED)}); err != nil {
		return 0, err
	}
	return c.NextLevel(ctx)
}

// NextLevel waits for the next LED level update.
func (c *Client) NextLevel(ctx context.Context) (byte, error) {
	select {
	case level := <-c.levels:
		return level, nil
	case <-c.done:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Query asks for the latest orientation.
func (c *Client) Query(ctx context.Context) (*telemetry.Orientation, error) {
	drain(c.texts)
	if err := frameCodec.Send(c.conn, frame{op: websocket.TextFrame, data: []byte(control.CmdQuery)}); err != nil {
		return nil, err
	}
	return c.NextOrientation(ctx)
}

// NextOrientation waits for the next orientation, either a reply or a
// periodic broadcast.
func (c *Client) NextOrientation(ctx context.Context) (*telemetry.Orientation, error) {
	select {
	case text := <-c.texts:
		var o telemetry.Orientation
		if err := telemetry.UnmarshalText(text, &o); err != nil {
			return nil, err
		}
		return &o, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}
