package telemetry

import (
	"github.com/golang/glog"

	"github.com/robotalks/way.go/pkg/attitude"
	fx "github.com/robotalks/way.go/pkg/framework"
	"github.com/robotalks/way.go/pkg/ws"
)

// Source provides the latest attitude snapshot.
type Source interface {
	Latest() *attitude.Snapshot
}

// Broadcaster is the websocket telemetry sink.
type Broadcaster interface {
	Broadcast(op ws.Opcode, payload []byte) int
}

// Streamer sends the latest orientation as a text frame to all
// clients every Every cycles.
type Streamer struct {
	Device string
	Source Source
	Sink   Broadcaster
	Every  uint64

	lastSeq uint64
}

// DefaultEvery is 10Hz at the default 200Hz loop.
const DefaultEvery = 20

// AddToLoop implements framework.LoopAdder.
func (s *Streamer) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvTelemetry, s)
}

// Control implements framework.Controller.
func (s *Streamer) Control(cc fx.ControlContext) error {
	every := s.Every
	if every == 0 {
		every = DefaultEvery
	}
	if cc.Cycle()%every != 0 {
		return nil
	}
	_, err := s.Stream()
	return err
}

// Stream broadcasts the latest snapshot if it is new and returns the
// number of clients reached.
func (s *Streamer) Stream() (int, error) {
	snap := s.Source.Latest()
	if snap == nil || snap.Seq == s.lastSeq {
		return 0, nil
	}
	text, err := MarshalText(NewOrientation(s.Device, snap))
	if err != nil {
		return 0, err
	}
	s.lastSeq = snap.Seq
	n := s.Sink.Broadcast(ws.OpText, []byte(text))
	glog.V(4).Infof("telemetry seq=%d sent to %d clients", snap.Seq, n)
	return n, nil
}
