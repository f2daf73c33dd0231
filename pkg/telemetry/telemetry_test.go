package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/way.go/pkg/attitude"
	fx "github.com/robotalks/way.go/pkg/framework"
	"github.com/robotalks/way.go/pkg/fusion"
	"github.com/robotalks/way.go/pkg/ws"
)

type testSource struct {
	snap *attitude.Snapshot
}

func (s *testSource) Latest() *attitude.Snapshot {
	return s.snap
}

type testSink struct {
	frames []string
}

func (s *testSink) Broadcast(op ws.Opcode, payload []byte) int {
	if op != ws.OpText {
		return 0
	}
	s.frames = append(s.frames, string(payload))
	return 1
}

func testSnapshot(seq uint64) *attitude.Snapshot {
	q := fusion.FromAxisAngle([3]float64{0, 1, 0}, 0.5)
	s := &attitude.Snapshot{Seq: seq, Time: time.Unix(1700000000, 0), Quaternion: q, Numeric: "q16"}
	s.Roll, s.Pitch, s.Yaw = q.Euler()
	return s
}

func TestNewOrientation(t *testing.T) {
	o := NewOrientation("way", testSnapshot(7))
	require.Equal(t, "way", o.Device)
	require.Equal(t, uint64(7), o.Seq)
	require.True(t, o.Fixed)
	require.InDelta(t, 0.5*degPerRad, o.Pitch, 1e-9)
	require.InDelta(t, -0.479425538604203, o.GravityX, 1e-9)
	require.Equal(t, int64(1700000000000), o.TimeMs)

	text, err := MarshalText(o)
	require.NoError(t, err)
	require.Contains(t, text, `"gravity_x":`)
	var decoded Orientation
	require.NoError(t, UnmarshalText(text, &decoded))
	require.Equal(t, *o, decoded)

	b, err := Marshal(o)
	require.NoError(t, err)
	decoded.Reset()
	require.NoError(t, Unmarshal(b, &decoded))
	require.Equal(t, *o, decoded)
}

func TestNewLEDState(t *testing.T) {
	require.Equal(t, &LEDState{Device: "way", Level: 0, On: true}, NewLEDState("way", 0))
	require.Equal(t, &LEDState{Device: "way", Level: 1}, NewLEDState("way", 1))
}

func TestDecodeTopic(t *testing.T) {
	led, err := Marshal(NewLEDState("way", 0))
	require.NoError(t, err)
	meta, err := Marshal(&DeviceMeta{Device: "way", Numeric: "float", RateHz: 200})
	require.NoError(t, err)

	msg, err := DecodeTopic("robots/way/led", led)
	require.NoError(t, err)
	require.Equal(t, NewLEDState("way", 0), msg)

	msg, err = DecodeTopic("way/meta", meta)
	require.NoError(t, err)
	require.Equal(t, "float", msg.(*DeviceMeta).Numeric)

	msg, err = DecodeTopic("way/meta", nil)
	require.NoError(t, err)
	require.Nil(t, msg)

	_, err = DecodeTopic("way/cmd/led", []byte("on"))
	require.ErrorIs(t, err, ErrUnknownTopic)
	_, err = DecodeTopic("way/other", nil)
	require.ErrorIs(t, err, ErrUnknownTopic)
	_, err = DecodeTopic("way/orientation", []byte{0xff})
	require.Error(t, err)
}

func TestStreamer(t *testing.T) {
	src, sink := &testSource{}, &testSink{}
	s := &Streamer{Device: "way", Source: src, Sink: sink, Every: 2}
	loop := fx.NewLoop(time.Millisecond).Add(s)

	loop.RunOnce(context.Background())
	loop.RunOnce(context.Background())
	require.Empty(t, sink.frames)

	src.snap = testSnapshot(1)
	loop.RunOnce(context.Background())
	require.Empty(t, sink.frames)
	loop.RunOnce(context.Background())
	require.Len(t, sink.frames, 1)

	// unchanged snapshot is not repeated
	loop.RunOnce(context.Background())
	loop.RunOnce(context.Background())
	require.Len(t, sink.frames, 1)

	src.snap = testSnapshot(2)
	n, err := s.Stream()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	var o Orientation
	require.NoError(t, UnmarshalText(sink.frames[1], &o))
	require.Equal(t, uint64(2), o.Seq)
}

type testPublisher struct {
	lock sync.Mutex
	msgs map[string][]byte
	ret  map[string]bool
}

func (p *testPublisher) Publish(topic string, payload []byte, retain bool) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.msgs[topic], p.ret[topic] = payload, retain
	return nil
}

func (p *testPublisher) get(topic string) ([]byte, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.msgs[topic], p.ret[topic]
}

func TestMQTTPublisher(t *testing.T) {
	src := &testSource{snap: testSnapshot(3)}
	pub := &testPublisher{msgs: make(map[string][]byte), ret: make(map[string]bool)}
	p := NewMQTTPublisher("way", src, pub, 1)
	loop := fx.NewLoop(time.Millisecond).Add(p)
	loop.RunOnce(context.Background())
	p.LEDChanged(0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok1 := pub.get("way/orientation")
		_, ok2 := pub.get("way/led")
		return ok1 && ok2
	}, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	b, retain := pub.get("way/orientation")
	require.False(t, retain)
	var o Orientation
	require.NoError(t, Unmarshal(b, &o))
	require.Equal(t, uint64(3), o.Seq)

	b, retain = pub.get("way/led")
	require.True(t, retain)
	var led LEDState
	require.NoError(t, Unmarshal(b, &led))
	require.True(t, led.On)
}

func TestNewBrokerQueue(t *testing.T) {
	q, err := NewBrokerQueue("mqtt://localhost:1883/robots/", &DeviceMeta{Device: "way", Numeric: "q16"})
	require.NoError(t, err)
	require.Equal(t, "robots/", q.TopicPrefix)
	require.NotNil(t, q.OnConnect)
	_, err = NewBrokerQueue("mqtt://bad host", &DeviceMeta{Device: "way"})
	require.Error(t, err)
}
