package log

import (
	"time"

	"github.com/submux/submux-go/pkg/pubsub"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the physical connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address, when known.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Channel is the channel the event concerns, if any.
	Channel string `cbor:"7,keyasint,omitempty"`

	// Kind is the subscription kind the event concerns, if any.
	Kind pubsub.Kind `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (at most one of these is set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Wire        *WireEvent        `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
	// DirectionLocal indicates an event generated locally (timeouts, synthesized acks).
	DirectionLocal Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionLocal:
		return "LOCAL"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the frame encoding layer (decoded CBOR).
	LayerWire Layer = 1
	// LayerEntry is the connection entry (subscription state machine).
	LayerEntry Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerEntry:
		return "ENTRY"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame indicates a raw transport frame.
	CategoryFrame Category = 0
	// CategoryCommand indicates a subscribe/unsubscribe/publish command.
	CategoryCommand Category = 1
	// CategoryStatus indicates an acknowledgement.
	CategoryStatus Category = 2
	// CategoryMessage indicates a publication delivery.
	CategoryMessage Category = 3
	// CategoryState indicates a state change.
	CategoryState Category = 4
	// CategoryError indicates an error event.
	CategoryError Category = 5
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryCommand:
		return "COMMAND"
	case CategoryStatus:
		return "STATUS"
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// WireEvent captures a decoded frame at the wire layer.
type WireEvent struct {
	// FrameType is the frame type name (COMMAND, ACK, MESSAGE, PUBLISH).
	FrameType string `cbor:"1,keyasint"`

	// Pattern is set for pattern deliveries.
	Pattern string `cbor:"2,keyasint,omitempty"`

	// Count is the subscription count reported by an ACK.
	Count int `cbor:"3,keyasint,omitempty"`

	// PayloadSize is the payload length for MESSAGE and PUBLISH frames.
	PayloadSize int `cbor:"4,keyasint,omitempty"`

	// Synthesized marks acknowledgements generated locally after a timeout.
	Synthesized bool `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures subscription and connection lifecycle changes.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntitySubscribe indicates a subscribe attempt state change.
	StateEntitySubscribe StateEntity = 1
	// StateEntityUnsubscribe indicates an unsubscribe attempt state change.
	StateEntityUnsubscribe StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySubscribe:
		return "SUBSCRIBE"
	case StateEntityUnsubscribe:
		return "UNSUBSCRIBE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
