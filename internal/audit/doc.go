// Package audit provides the structured event model and asynchronous
// dispatcher behind authkit's observability surface: state transitions
// (login/logout/update), initialization outcomes, and degraded-path
// decisions are emitted here rather than interleaved with control flow.
//
// # Architecture boundaries
//
// This package owns the event model, sink interfaces, and buffered dispatch.
// It knows nothing about sessions or profiles; the root package maps its own
// operations onto event types and error codes.
//
// # What this package must NOT do
//
//   - Block an emitting caller when DropIfFull is set.
//   - Import authkit or any sibling package.
package audit
