package log

import (
	"time"

	"github.com/submux/submux-go/pkg/pubsub"
)

// MaxFrameData bounds the raw bytes kept in a FrameEvent.
const MaxFrameData = 256

// NewFrameEvent builds a transport frame event, truncating data to
// MaxFrameData bytes.
func NewFrameEvent(connID string, dir Direction, data []byte) Event {
	fe := &FrameEvent{Size: len(data)}
	if len(data) > MaxFrameData {
		fe.Data = append([]byte(nil), data[:MaxFrameData]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), data...)
	}
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        LayerTransport,
		Category:     CategoryFrame,
		Frame:        fe,
	}
}

// NewStateEvent builds an entry-layer state change event for a channel.
func NewStateEvent(connID string, entity StateEntity, kind pubsub.Kind, channel pubsub.ChannelName, from, to, reason string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionLocal,
		Layer:        LayerEntry,
		Category:     CategoryState,
		Channel:      channel.String(),
		Kind:         kind,
		StateChange: &StateChangeEvent{
			Entity:   entity,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	}
}

// NewErrorEvent builds an error event for the given layer.
func NewErrorEvent(connID string, layer Layer, err error, context string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionLocal,
		Layer:        layer,
		Category:     CategoryError,
		Error: &ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	}
}
