package control

import (
	"github.com/golang/glog"

	fx "github.com/robotalks/way.go/pkg/framework"
	"github.com/robotalks/way.go/pkg/telemetry"
	"github.com/robotalks/way.go/pkg/ws"
)

// Sender is the part of ws.Server used by the handler.
type Sender interface {
	Send(c *ws.Client, op ws.Opcode, payload []byte) error
	Broadcast(op ws.Opcode, payload []byte) int
}

// LEDListener is notified after the LED level changes.
type LEDListener interface {
	LEDChanged(level byte)
}

// Text commands.
const (
	CmdLED   = "led"
	CmdQuery = "q"
)

// LEDCommand is posted to the loop to switch the LED from other
// goroutines, e.g. an MQTT subscription.
type LEDCommand struct {
	Level byte
}

// Handler implements ws.Handler for the demo page protocol:
// a binary [0] or [1] sets the LED level, text "led" returns the
// level and text "q" returns the latest orientation.
type Handler struct {
	Device    string
	Server    Sender
	Pin       Pin
	Source    telemetry.Source
	Listeners []LEDListener

	level byte
	reply [1]byte
}

// NewHandler creates a Handler with the LED off.
func NewHandler(device string, pin Pin, source telemetry.Source) *Handler {
	return &Handler{Device: device, Pin: pin, Source: source, level: LevelOff}
}

// Level returns the LED pin level.
func (h *Handler) Level() byte {
	return h.level
}

// AddToLoop implements framework.LoopAdder.
func (h *Handler) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvNetwork, fx.ControlFunc(h.processCommands))
}

func (h *Handler) processCommands(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		if cmd, ok := mc.CurrentMessage().(*LEDCommand); ok {
			mc.MessageTaken()
			h.SetLED(cmd.Level)
		}
	}))
	return nil
}

// HandleMessage implements ws.Handler.
func (h *Handler) HandleMessage(c *ws.Client, op ws.Opcode, payload []byte) {
	switch {
	case op == ws.OpBinary && len(payload) == 1 && payload[0] <= LevelOff:
		h.SetLED(payload[0])
	case op == ws.OpText && string(payload) == CmdLED:
		h.reply[0] = h.level
		h.send(c, ws.OpBinary, h.reply[:])
	case op == ws.OpText && string(payload) == CmdQuery:
		h.query(c)
	default:
		glog.V(2).Infof("client %d: ignored %s message (%d bytes)", c.ID, op, len(payload))
	}
}

// SetLED drives the pin and broadcasts the new level to all clients.
func (h *Handler) SetLED(level byte) {
	if h.Pin != nil {
		if err := h.Pin.Out(pinLevel(level)); err != nil {
			glog.Errorf("led: %v", err)
			return
		}
	}
	h.level = level
	glog.V(1).Infof("led level=%d", level)
	if h.Server != nil {
		h.reply[0] = level
		h.Server.Broadcast(ws.OpBinary, h.reply[:])
	}
	for _, l := range h.Listeners {
		l.LEDChanged(level)
	}
}

func (h *Handler) query(c *ws.Client) {
	if h.Source == nil {
		return
	}
	snap := h.Source.Latest()
	if snap == nil {
		return
	}
	text, err := telemetry.MarshalText(telemetry.NewOrientation(h.Device, snap))
	if err != nil {
		glog.Errorf("query: %v", err)
		return
	}
	h.send(c, ws.OpText, []byte(text))
}

func (h *Handler) send(c *ws.Client, op ws.Opcode, payload []byte) {
	if h.Server == nil {
		return
	}
	if err := h.Server.Send(c, op, payload); err != nil {
		glog.V(2).Infof("client %d: reply: %v", c.ID, err)
	}
}
