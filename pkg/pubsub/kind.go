package pubsub

// Kind identifies a subscribe or unsubscribe command family.
type Kind uint8

const (
	// Subscribe subscribes to a plain channel.
	Subscribe Kind = iota + 1

	// SSubscribe subscribes to a shard channel.
	SSubscribe

	// PSubscribe subscribes to a glob pattern.
	PSubscribe

	// Unsubscribe cancels a Subscribe.
	Unsubscribe

	// SUnsubscribe cancels an SSubscribe.
	SUnsubscribe

	// PUnsubscribe cancels a PSubscribe.
	PUnsubscribe
)

// String returns the wire command name.
func (k Kind) String() string {
	switch k {
	case Subscribe:
		return "SUBSCRIBE"
	case SSubscribe:
		return "SSUBSCRIBE"
	case PSubscribe:
		return "PSUBSCRIBE"
	case Unsubscribe:
		return "UNSUBSCRIBE"
	case SUnsubscribe:
		return "SUNSUBSCRIBE"
	case PUnsubscribe:
		return "PUNSUBSCRIBE"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= Subscribe && k <= PUnsubscribe
}

// IsSubscribe reports whether k is one of the subscribe kinds.
func (k Kind) IsSubscribe() bool {
	return k == Subscribe || k == SSubscribe || k == PSubscribe
}

// IsPattern reports whether k belongs to the pattern family.
func (k Kind) IsPattern() bool {
	return k == PSubscribe || k == PUnsubscribe
}

// IsShard reports whether k belongs to the shard family.
func (k Kind) IsShard() bool {
	return k == SSubscribe || k == SUnsubscribe
}

// Unsubscribe returns the unsubscribe kind that cancels k.
// Unsubscribe kinds map to themselves; unknown kinds map to 0.
func (k Kind) Unsubscribe() Kind {
	switch k {
	case Subscribe, Unsubscribe:
		return Unsubscribe
	case SSubscribe, SUnsubscribe:
		return SUnsubscribe
	case PSubscribe, PUnsubscribe:
		return PUnsubscribe
	default:
		return 0
	}
}

// Subscribe returns the subscribe kind that k cancels.
// Subscribe kinds map to themselves; unknown kinds map to 0.
func (k Kind) Subscribe() Kind {
	switch k {
	case Subscribe, Unsubscribe:
		return Subscribe
	case SSubscribe, SUnsubscribe:
		return SSubscribe
	case PSubscribe, PUnsubscribe:
		return PSubscribe
	default:
		return 0
	}
}
