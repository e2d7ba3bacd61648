// Package wire implements the submux frame encoding.
//
// Every frame is a CBOR map with integer keys, carried inside one
// length-prefixed transport frame:
//
//	{1: type, 2: kind, 3: channel, 4: pattern, 5: count, 6: payload}
//
// Clients send COMMAND frames (subscribe/unsubscribe) and PUBLISH frames.
// Servers answer with ACK frames, one per channel per command, and deliver
// publications as MESSAGE frames. Pattern deliveries carry the matching
// pattern in key 4.
//
// Payload bytes are opaque to the frame layer; a Codec turns them into
// application values for one channel.
package wire
