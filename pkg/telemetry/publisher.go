package telemetry

import (
	"context"

	"github.com/golang/glog"

	fx "github.com/robotalks/way.go/pkg/framework"
)

// Publisher sends messages to a broker topic.
// mqtt.Queue implements it.
type Publisher interface {
	Publish(topic string, payload []byte, retain bool) error
}

// MQTTPublisher mirrors telemetry to the broker under "<Device>/".
// Publishing runs on its own goroutine started with the loop. Messages
// are dropped while it is behind.
type MQTTPublisher struct {
	Device string
	Source Source
	Pub    Publisher
	Every  uint64

	lastSeq uint64
	queue   chan outbound
}

type outbound struct {
	topic   string
	payload []byte
	retain  bool
}

const publishQueueLen = 8

// NewMQTTPublisher creates a MQTTPublisher.
func NewMQTTPublisher(device string, source Source, pub Publisher, every uint64) *MQTTPublisher {
	return &MQTTPublisher{
		Device: device,
		Source: source,
		Pub:    pub,
		Every:  every,
		queue:  make(chan outbound, publishQueueLen),
	}
}

// AddToLoop implements framework.LoopAdder.
func (p *MQTTPublisher) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvTelemetry, p)
}

// Control implements framework.Controller.
func (p *MQTTPublisher) Control(cc fx.ControlContext) error {
	every := p.Every
	if every == 0 {
		every = DefaultEvery
	}
	if cc.Cycle()%every != 0 {
		return nil
	}
	snap := p.Source.Latest()
	if snap == nil || snap.Seq == p.lastSeq {
		return nil
	}
	p.lastSeq = snap.Seq
	payload, err := Marshal(NewOrientation(p.Device, snap))
	if err != nil {
		return err
	}
	p.enqueue(TopicOrientation, payload, false)
	return nil
}

// LEDChanged publishes the LED state retained.
func (p *MQTTPublisher) LEDChanged(level byte) {
	payload, err := Marshal(NewLEDState(p.Device, level))
	if err != nil {
		glog.Errorf("encode led state: %v", err)
		return
	}
	p.enqueue(TopicLED, payload, true)
}

func (p *MQTTPublisher) enqueue(suffix string, payload []byte, retain bool) {
	select {
	case p.queue <- outbound{topic: p.Device + "/" + suffix, payload: payload, retain: retain}:
	default:
		glog.V(2).Infof("mqtt: dropped %s/%s", p.Device, suffix)
	}
}

// Run implements framework.Runnable.
func (p *MQTTPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-p.queue:
			if err := p.Pub.Publish(m.topic, m.payload, m.retain); err != nil {
				glog.Warningf("mqtt publish %s: %v", m.topic, err)
			}
		}
	}
}
