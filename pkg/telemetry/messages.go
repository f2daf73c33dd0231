// Package telemetry encodes attitude snapshots and device state for
// websocket clients and the MQTT broker.
package telemetry

import (
	"errors"
	"math"
	"strings"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/way.go/pkg/attitude"
)

// Topic suffixes under the device name.
const (
	TopicOrientation = "orientation"
	TopicLED         = "led"
	TopicMeta        = "meta"
	TopicLEDCommand  = "cmd/led"
)

// Orientation is the attitude estimate sent to clients.
type Orientation struct {
	Device   string  `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Seq      uint64  `protobuf:"varint,2,opt,name=seq,proto3" json:"seq,omitempty"`
	W        float64 `protobuf:"fixed64,3,opt,name=w,proto3" json:"w,omitempty"`
	X        float64 `protobuf:"fixed64,4,opt,name=x,proto3" json:"x,omitempty"`
	Y        float64 `protobuf:"fixed64,5,opt,name=y,proto3" json:"y,omitempty"`
	Z        float64 `protobuf:"fixed64,6,opt,name=z,proto3" json:"z,omitempty"`
	Roll     float64 `protobuf:"fixed64,7,opt,name=roll,proto3" json:"roll,omitempty"`
	Pitch    float64 `protobuf:"fixed64,8,opt,name=pitch,proto3" json:"pitch,omitempty"`
	Yaw      float64 `protobuf:"fixed64,9,opt,name=yaw,proto3" json:"yaw,omitempty"`
	GravityX float64 `protobuf:"fixed64,10,opt,name=gravity_x,proto3" json:"gravity_x,omitempty"`
	GravityY float64 `protobuf:"fixed64,11,opt,name=gravity_y,proto3" json:"gravity_y,omitempty"`
	GravityZ float64 `protobuf:"fixed64,12,opt,name=gravity_z,proto3" json:"gravity_z,omitempty"`
	Fixed    bool    `protobuf:"varint,13,opt,name=fixed,proto3" json:"fixed,omitempty"`
	TimeMs   int64   `protobuf:"varint,14,opt,name=time_ms,proto3" json:"time_ms,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Orientation) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Orientation) Reset() { *m = Orientation{} }

// String implements proto.Message.
func (m *Orientation) String() string { return proto.CompactTextString(m) }

// LEDState reports the LED pin level: 0 is on (active low).
type LEDState struct {
	Device string `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Level  uint32 `protobuf:"varint,2,opt,name=level,proto3" json:"level,omitempty"`
	On     bool   `protobuf:"varint,3,opt,name=on,proto3" json:"on,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *LEDState) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LEDState) Reset() { *m = LEDState{} }

// String implements proto.Message.
func (m *LEDState) String() string { return proto.CompactTextString(m) }

// DeviceMeta is published retained when connected to the broker.
type DeviceMeta struct {
	Device    string  `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Numeric   string  `protobuf:"bytes,2,opt,name=numeric,proto3" json:"numeric,omitempty"`
	RateHz    float64 `protobuf:"fixed64,3,opt,name=rate_hz,proto3" json:"rate_hz,omitempty"`
	Simulated bool    `protobuf:"varint,4,opt,name=simulated,proto3" json:"simulated,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *DeviceMeta) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DeviceMeta) Reset() { *m = DeviceMeta{} }

// String implements proto.Message.
func (m *DeviceMeta) String() string { return proto.CompactTextString(m) }

const degPerRad = 180 / math.Pi

// NewOrientation converts a snapshot. Angles are in degrees.
func NewOrientation(device string, s *attitude.Snapshot) *Orientation {
	q := s.Quaternion
	g := s.Gravity()
	return &Orientation{
		Device:   device,
		Seq:      s.Seq,
		W:        q.W,
		X:        q.X,
		Y:        q.Y,
		Z:        q.Z,
		Roll:     s.Roll * degPerRad,
		Pitch:    s.Pitch * degPerRad,
		Yaw:      s.Yaw * degPerRad,
		GravityX: g[0],
		GravityY: g[1],
		GravityZ: g[2],
		Fixed:    s.Numeric == "q16",
		TimeMs:   s.Time.UnixNano() / 1e6,
	}
}

// NewLEDState creates LEDState from the pin level.
func NewLEDState(device string, level byte) *LEDState {
	return &LEDState{Device: device, Level: uint32(level), On: level == 0}
}

var jsonMarshaler = jsonpb.Marshaler{OrigName: true, EmitDefaults: true}

// MarshalText encodes msg as JSON for text frames.
func MarshalText(msg proto.Message) (string, error) {
	return jsonMarshaler.MarshalToString(msg)
}

// UnmarshalText decodes JSON produced by MarshalText.
func UnmarshalText(s string, msg proto.Message) error {
	return jsonpb.UnmarshalString(s, msg)
}

// Marshal encodes msg in protobuf wire format.
func Marshal(msg proto.Message) ([]byte, error) {
	return proto.Marshal(msg)
}

// Unmarshal decodes protobuf wire format.
func Unmarshal(b []byte, msg proto.Message) error {
	return proto.Unmarshal(b, msg)
}

// ErrUnknownTopic is returned by DecodeTopic for topics it doesn't carry.
var ErrUnknownTopic = errors.New("unknown topic")

// DecodeTopic decodes a message published under DEVICE/SUFFIX. An
// empty payload on the meta topic is the will message and decodes to
// nil.
func DecodeTopic(topic string, payload []byte) (proto.Message, error) {
	var msg proto.Message
	switch {
	case strings.HasSuffix(topic, "/"+TopicLEDCommand):
		return nil, ErrUnknownTopic
	case strings.HasSuffix(topic, "/"+TopicOrientation):
		msg = &Orientation{}
	case strings.HasSuffix(topic, "/"+TopicLED):
		msg = &LEDState{}
	case strings.HasSuffix(topic, "/"+TopicMeta):
		if len(payload) == 0 {
			return nil, nil
		}
		msg = &DeviceMeta{}
	default:
		return nil, ErrUnknownTopic
	}
	if err := Unmarshal(payload, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
