package transport

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/jacobsa/go-serial/serial"

	"github.com/robotalks/way.go/pkg/ws"
)

// DefaultBaudRate is used when SerialLink.BaudRate is zero.
const DefaultBaudRate = 115200

// OpenSerial opens a UART in 8N1 mode with blocking reads.
func OpenSerial(port string, baud uint) (io.ReadWriteCloser, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	return serial.Open(serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
}

// Opener opens the link stream.
type Opener func() (io.ReadWriteCloser, error)

// SerialLink keeps a serial port attached as a client. The link
// speaks raw frames without a handshake and its frames are unmasked.
// It reopens the port after a failure.
type SerialLink struct {
	Name   string
	Open   Opener
	Server *ws.Server
	Retry  time.Duration
}

// NewSerialLink creates a SerialLink for a UART.
func NewSerialLink(port string, baud uint, server *ws.Server) *SerialLink {
	return &SerialLink{
		Name:   port,
		Open:   func() (io.ReadWriteCloser, error) { return OpenSerial(port, baud) },
		Server: server,
		Retry:  time.Second,
	}
}

// Run implements framework.Runnable.
func (l *SerialLink) Run(ctx context.Context) error {
	for {
		if err := l.attachOnce(ctx); err != nil {
			glog.Warningf("serial %s: %v", l.Name, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.Retry):
		}
	}
}

func (l *SerialLink) attachOnce(ctx context.Context) error {
	stream, err := l.Open()
	if err != nil {
		return err
	}
	c, err := l.Server.Attach(ctx, stream, "serial:"+l.Name, false)
	if err != nil {
		stream.Close()
		return err
	}
	select {
	case <-c.Done():
		glog.Infof("serial %s: client %d closed", l.Name, c.ID)
	case <-ctx.Done():
		// the loop closes the client with the others on shutdown
	}
	return nil
}
