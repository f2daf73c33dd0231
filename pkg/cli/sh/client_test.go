package sh

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/way.go/pkg/attitude"
	"github.com/robotalks/way.go/pkg/control"
	fx "github.com/robotalks/way.go/pkg/framework"
	"github.com/robotalks/way.go/pkg/fusion"
	"github.com/robotalks/way.go/pkg/telemetry"
	"github.com/robotalks/way.go/pkg/transport"
	"github.com/robotalks/way.go/pkg/ws"
)

// movingSource returns a new snapshot on every call.
type movingSource struct {
	seq atomic.Uint64
}

func (s *movingSource) Latest() *attitude.Snapshot {
	seq := s.seq.Add(1)
	return &attitude.Snapshot{Seq: seq, Quaternion: fusion.Quaternion{W: 1}, Numeric: "float"}
}

func startDaemon(t *testing.T) string {
	source := &movingSource{}
	handler := control.NewHandler("way", nil, source)
	server := ws.NewServer(handler, ws.Options{WriteTimeout: time.Second})
	handler.Server = server
	streamer := &telemetry.Streamer{Device: "way", Source: source, Sink: server, Every: 5}
	loop := fx.NewLoop(time.Millisecond).Add(server, handler, streamer)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	srv := httptest.NewServer(transport.NewHTTPServer("", "way", server, source))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClientLED(t *testing.T) {
	wsURL := startDaemon(t)
	c1, err := Dial(wsURL)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := Dial(wsURL)
	require.NoError(t, err)
	defer c2.Close()

	level, err := c1.LED(testContext(t))
	require.NoError(t, err)
	require.Equal(t, control.LevelOff, level)

	// make sure c2 is attached before the broadcast
	_, err = c2.LED(testContext(t))
	require.NoError(t, err)

	require.NoError(t, c1.SetLED(true))
	level, err = c1.NextLevel(testContext(t))
	require.NoError(t, err)
	require.Equal(t, control.LevelOn, level)
	level, err = c2.NextLevel(testContext(t))
	require.NoError(t, err)
	require.Equal(t, control.LevelOn, level)
}

func TestClientOrientation(t *testing.T) {
	c, err := Dial(startDaemon(t))
	require.NoError(t, err)
	defer c.Close()

	o, err := c.Query(testContext(t))
	require.NoError(t, err)
	require.Equal(t, "way", o.Device)
	require.Equal(t, 1.0, o.W)

	next, err := c.NextOrientation(testContext(t))
	require.NoError(t, err)
	require.Greater(t, next.Seq, uint64(0))
}

func TestClientClosed(t *testing.T) {
	c, err := Dial(startDaemon(t))
	require.NoError(t, err)
	require.NoError(t, c.Close())
	select {
	case <-c.Done():
	default:
		t.Fatal("done not closed")
	}
	_, err = c.NextLevel(testContext(t))
	require.ErrorIs(t, err, ErrClosed)
}

func TestClientDialError(t *testing.T) {
	_, err := Dial("ws://127.0.0.1:1/ws")
	require.Error(t, err)
}

func TestPush(t *testing.T) {
	ch := make(chan int, 2)
	for i := 1; i <= 4; i++ {
		push(ch, i)
	}
	require.Equal(t, 3, <-ch)
	require.Equal(t, 4, <-ch)
	drain(ch)
	require.Empty(t, ch)
}

func TestParseSwitch(t *testing.T) {
	for _, arg := range []string{"on", "1", "true"} {
		on, err := ParseSwitch(arg)
		require.NoError(t, err)
		require.True(t, on)
	}
	for _, arg := range []string{"off", "0", "false"} {
		on, err := ParseSwitch(arg)
		require.NoError(t, err)
		require.False(t, on)
	}
	_, err := ParseSwitch("blink")
	require.Error(t, err)
}

func TestFormatMessage(t *testing.T) {
	require.Equal(t, "#3 roll=1.00 pitch=-2.50 yaw=0.00",
		FormatMessage(&telemetry.Orientation{Seq: 3, Roll: 1, Pitch: -2.5}))
	require.Equal(t, "led on", FormatMessage(telemetry.NewLEDState("way", control.LevelOn)))
	require.Equal(t, "led off", FormatMessage(telemetry.NewLEDState("way", control.LevelOff)))
	require.Contains(t, FormatMessage(&telemetry.DeviceMeta{Device: "way", Numeric: "q16"}), `numeric:"q16"`)
}
