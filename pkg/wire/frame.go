package wire

import (
	"errors"
	"fmt"

	"github.com/submux/submux-go/pkg/pubsub"
)

// Frame errors.
var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrUnknownCodec = errors.New("unknown codec")
)

// FrameType distinguishes the frame families.
type FrameType uint8

const (
	// FrameCommand is a client subscribe or unsubscribe command.
	FrameCommand FrameType = iota + 1

	// FrameAck acknowledges a command for one channel.
	FrameAck

	// FrameMessage delivers a publication to a subscriber.
	FrameMessage

	// FramePublish asks the server to publish a payload.
	FramePublish
)

// String returns the frame type name.
func (t FrameType) String() string {
	switch t {
	case FrameCommand:
		return "COMMAND"
	case FrameAck:
		return "ACK"
	case FrameMessage:
		return "MESSAGE"
	case FramePublish:
		return "PUBLISH"
	default:
		return "UNKNOWN"
	}
}

// Frame is the unit exchanged on a submux connection.
type Frame struct {
	Type    FrameType          `cbor:"1,keyasint"`
	Kind    pubsub.Kind        `cbor:"2,keyasint,omitempty"`
	Channel pubsub.ChannelName `cbor:"3,keyasint"`
	Pattern pubsub.ChannelName `cbor:"4,keyasint,omitempty"`
	Count   int                `cbor:"5,keyasint,omitempty"`
	Payload []byte             `cbor:"6,keyasint,omitempty"`
}

// Validate checks that the fields required by the frame type are present.
func (f *Frame) Validate() error {
	switch f.Type {
	case FrameCommand, FrameAck:
		if !f.Kind.Valid() {
			return fmt.Errorf("%w: %s with kind %d", ErrInvalidFrame, f.Type, f.Kind)
		}
	case FrameMessage, FramePublish:
	default:
		return fmt.Errorf("%w: type %d", ErrInvalidFrame, f.Type)
	}
	if f.Channel.IsZero() {
		return fmt.Errorf("%w: %s without channel", ErrInvalidFrame, f.Type)
	}
	return nil
}

// CommandFrame returns a subscribe or unsubscribe command.
func CommandFrame(kind pubsub.Kind, channel pubsub.ChannelName) *Frame {
	return &Frame{Type: FrameCommand, Kind: kind, Channel: channel}
}

// AckFrame returns the acknowledgement of kind for channel.
func AckFrame(kind pubsub.Kind, channel pubsub.ChannelName, count int) *Frame {
	return &Frame{Type: FrameAck, Kind: kind, Channel: channel, Count: count}
}

// MessageFrame returns a publication delivery. pattern is zero for direct
// channel subscriptions.
func MessageFrame(channel, pattern pubsub.ChannelName, payload []byte) *Frame {
	return &Frame{Type: FrameMessage, Channel: channel, Pattern: pattern, Payload: payload}
}

// PublishFrame returns a publish request.
func PublishFrame(channel pubsub.ChannelName, payload []byte) *Frame {
	return &Frame{Type: FramePublish, Channel: channel, Payload: payload}
}

// Status converts an ACK frame to a pubsub.Status.
func (f *Frame) Status() pubsub.Status {
	return pubsub.Status{Kind: f.Kind, Channel: f.Channel, Count: f.Count}
}
