package ws

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/way.go/pkg/framework"
)

// Handler receives reassembled messages. payload is only valid during
// the call. The handler may Send, Broadcast or Close on the Server.
type Handler interface {
	HandleMessage(c *Client, op Opcode, payload []byte)
}

// HandlerFunc is func type of Handler.
type HandlerFunc func(c *Client, op Opcode, payload []byte)

// HandleMessage implements Handler.
func (f HandlerFunc) HandleMessage(c *Client, op Opcode, payload []byte) {
	f(c, op, payload)
}

// Options configures a Server.
type Options struct {
	// WriteTimeout bounds a write on streams supporting deadlines.
	WriteTimeout time.Duration
}

// DefaultWriteTimeout is used when Options.WriteTimeout is zero.
const DefaultWriteTimeout = 20 * time.Millisecond

// Server is the frame protocol engine over the client registry.
type Server struct {
	Registry Registry

	handler Handler
	opts    Options
	loop    fx.LoopControl
	ctrlBuf [MaxControlPayload]byte
}

// NewServer creates a Server dispatching to handler.
func NewServer(handler Handler, opts Options) *Server {
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Server{handler: handler, opts: opts}
}

// AddToLoop implements framework.LoopAdder.
func (s *Server) AddToLoop(l *fx.Loop) {
	s.loop = l
	l.AddController(fx.PrLvNetwork, s)
}

// Accept registers the stream and starts reading from it.
// requireMask is set for streams from a websocket handshake.
func (s *Server) Accept(stream Stream, name string, requireMask bool) (*Client, error) {
	c, err := s.Registry.Accept(stream, name, requireMask)
	if err != nil {
		return nil, err
	}
	glog.Infof("client %d accepted: %s (%d/%d)", c.ID, name, s.Registry.Len(), MaxClients)
	c.startReading()
	return c, nil
}

// AcceptRequest is posted to the loop by Attach.
type AcceptRequest struct {
	Stream      Stream
	Name        string
	RequireMask bool
	Result      chan AcceptResult
}

// AcceptResult is the reply to an AcceptRequest.
type AcceptResult struct {
	Client *Client
	Err    error
}

// Attach hands a stream to the loop goroutine and waits until it is
// accepted or rejected. It is safe to call from any goroutine after
// AddToLoop.
func (s *Server) Attach(ctx context.Context, stream Stream, name string, requireMask bool) (*Client, error) {
	if s.loop == nil {
		return nil, errors.New("server not in a loop")
	}
	req := &AcceptRequest{Stream: stream, Name: name, RequireMask: requireMask, Result: make(chan AcceptResult, 1)}
	s.loop.PostMessage(req)
	s.loop.TriggerNext()
	select {
	case res := <-req.Result:
		return res.Client, res.Err
	case <-ctx.Done():
		// the request may still be accepted; close it once it is
		go func() {
			if res := <-req.Result; res.Client != nil {
				stream.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Control implements framework.Controller: accepts pending streams
// and polls every client once.
func (s *Server) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		req, ok := mc.CurrentMessage().(*AcceptRequest)
		if !ok {
			return
		}
		mc.MessageTaken()
		c, err := s.Accept(req.Stream, req.Name, req.RequireMask)
		req.Result <- AcceptResult{Client: c, Err: err}
	}))
	s.Poll()
	return nil
}

// Poll feeds at most one pending chunk per client to the parser.
// It never blocks.
func (s *Server) Poll() {
	s.Registry.ForEach(func(c *Client) bool {
		r, ok := c.poll()
		if !ok {
			return true
		}
		if r.n > 0 {
			s.Feed(c, c.chunk[:r.n])
		}
		if !c.registered {
			return true
		}
		if r.err != nil {
			if r.err == io.EOF {
				glog.Infof("client %d disconnected", c.ID)
			}
			s.Remove(c, &StreamError{ClientID: c.ID, Op: "read", Err: r.err})
			return true
		}
		c.release()
		return true
	})
}

// Feed parses data received from c and dispatches completed messages.
func (s *Server) Feed(c *Client, data []byte) {
	for _, b := range data {
		if !c.registered {
			return
		}
		pr := c.parser.Parse(b)
		if pr.Err != nil {
			glog.Warningf("client %d: %v", c.ID, pr.Err)
			s.Close(c, pr.Err.Code, pr.Err.Reason)
			return
		}
		if !pr.Ready {
			continue
		}
		switch pr.Op {
		case OpPing:
			s.Send(c, OpPong, pr.Payload)
		case OpPong:
		case OpClose:
			var echo []byte
			if len(pr.Payload) >= 2 {
				echo = pr.Payload[:2]
			}
			glog.V(2).Infof("client %d: close requested", c.ID)
			if err := c.write(OpClose, echo, s.opts.WriteTimeout); err != nil {
				glog.V(2).Infof("client %d: close reply: %v", c.ID, err)
			}
			s.Remove(c, nil)
		default:
			glog.V(2).Infof("client %d: %s message %d bytes", c.ID, pr.Op, len(pr.Payload))
			if s.handler != nil {
				s.handler.HandleMessage(c, pr.Op, pr.Payload)
			}
		}
	}
}

// Send writes a single frame to c. A write failure removes the client.
func (s *Server) Send(c *Client, op Opcode, payload []byte) error {
	if !c.registered {
		return ErrClientClosed
	}
	if err := c.write(op, payload, s.opts.WriteTimeout); err != nil {
		if err == ErrFrameTooLarge {
			return err
		}
		serr := &StreamError{ClientID: c.ID, Op: "write", Err: err}
		s.Remove(c, serr)
		return serr
	}
	return nil
}

// Broadcast sends the frame to every client in registration order and
// returns the number of clients reached. Failed clients are removed;
// the others are not affected.
func (s *Server) Broadcast(op Opcode, payload []byte) int {
	var sent int
	s.Registry.ForEach(func(c *Client) bool {
		if s.Send(c, op, payload) == nil {
			sent++
		}
		return true
	})
	return sent
}

// Close sends a close frame with code and removes the client.
func (s *Server) Close(c *Client, code CloseCode, reason string) {
	if !c.registered {
		return
	}
	if err := c.write(OpClose, ClosePayload(s.ctrlBuf[:], code, reason), s.opts.WriteTimeout); err != nil {
		glog.V(2).Infof("client %d: close frame: %v", c.ID, err)
	}
	s.Remove(c, nil)
}

// Remove unregisters c and closes its stream. reason is logged.
func (s *Server) Remove(c *Client, reason error) {
	if !s.Registry.Remove(c) {
		return
	}
	if reason != nil && !errors.Is(reason, io.EOF) {
		glog.Warningf("client %d removed: %v", c.ID, reason)
	} else {
		glog.Infof("client %d removed", c.ID)
	}
}

// CloseAll closes every client with CloseGoingAway.
func (s *Server) CloseAll() {
	s.Registry.ForEach(func(c *Client) bool {
		s.Close(c, CloseGoingAway, "shutdown")
		return true
	})
}
