// Package log provides structured protocol logging for submux.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at each layer (transport, wire, entry). It is separate
// from operational logging (slog): protocol capture is a machine-readable
// trace of frames, commands, acknowledgements and subscribe state changes.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to a binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/submux/client.slog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(adapter, fileLogger)
//
// # Event Types
//
//   - Transport: raw frame bytes (FrameEvent)
//   - Wire: decoded commands, acknowledgements and messages (WireEvent)
//   - Entry: subscribe/unsubscribe state transitions (StateChangeEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events. The submux-log tool views
// and summarizes them.
package log
