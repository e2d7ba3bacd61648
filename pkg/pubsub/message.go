package pubsub

// Status is a subscribe or unsubscribe acknowledgement for one channel.
// Acknowledgements synthesized locally after a timeout are indistinguishable
// from the ones sent by the server.
type Status struct {
	Kind    Kind
	Channel ChannelName

	// Count is the number of subscriptions the server reports for the
	// connection after applying the command. Zero for synthesized statuses.
	Count int
}

// Message is a publication delivered on a subscribed channel.
type Message struct {
	// Channel is the channel the message was published to.
	Channel ChannelName

	// Pattern is the matching pattern for pattern subscriptions, zero otherwise.
	Pattern ChannelName

	// Payload is the value produced by the channel's codec.
	Payload any
}

// IsPattern reports whether the message was delivered through a pattern.
func (m *Message) IsPattern() bool {
	return !m.Pattern.IsZero()
}
