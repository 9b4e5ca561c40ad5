// Package audit implements async event dispatching for session lifecycle
// operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//     [Dispatcher.Record] is the engine's entry point: it stamps the event and
//     reduces the subject email to its redacted form before anything is queued.
//   - [Event]: structured audit record with timestamp, type, redacted subject and outcome.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that responsibility belongs to the Engine and flow functions.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import sessionauth or any sibling internal package. Only identity is shared.
//   - Queue a plaintext email.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
