package pubsub

// ChannelName identifies a channel or pattern. Equality is by value.
type ChannelName struct {
	// Name is the channel name or glob pattern.
	Name string `cbor:"1,keyasint"`

	// Shard is the optional shard tag for sharded channels.
	Shard string `cbor:"2,keyasint,omitempty"`
}

// Channel returns the ChannelName for an unsharded channel.
func Channel(name string) ChannelName {
	return ChannelName{Name: name}
}

// ShardChannel returns the ChannelName for a channel on the given shard.
func ShardChannel(name, shard string) ChannelName {
	return ChannelName{Name: name, Shard: shard}
}

// String renders the channel as "name" or "name@shard".
func (c ChannelName) String() string {
	if c.Shard == "" {
		return c.Name
	}
	return c.Name + "@" + c.Shard
}

// IsZero reports whether c has no name.
func (c ChannelName) IsZero() bool {
	return c.Name == ""
}
