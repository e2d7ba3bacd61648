// Package transport carries submux frames over byte streams.
//
// The transport layer handles:
//   - Length-prefixed framing of CBOR frames
//   - The client connection (Conn) driven by a connection entry
//   - A TCP server for brokers (Server, ServerConn)
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   CBOR frames (pkg/wire)       │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│   TCP or any io.ReadWriteCloser│
//	└────────────────────────────────┘
//
// A Conn owns one read goroutine. Listeners are called from it for every
// acknowledgement and publication, and must not block. Statuses passed to
// Inject are dispatched on the caller's goroutine instead.
package transport
