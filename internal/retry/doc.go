// Package retry provides the bounded timeout-and-backoff executor that wraps
// every network-facing call in authkit.
//
// # Design
//
// A [Policy] is a pure description: Delays returns the exponential backoff
// sequence without jitter, and AttemptTimeout returns the per-attempt bound
// (fixed, or escalating when AttemptTimeouts is set). [Do] consumes the
// policy, racing each attempt against its timeout and sleeping the jittered
// delay between failures. Exhausting the attempt budget returns the last
// error verbatim; this package never swallows failure, it only delays it.
//
// Timeouts double as cancellation: once an attempt's timer fires, the racing
// operation's eventual resolution is discarded, not forcibly aborted. The
// per-attempt context is cancelled so cooperative operations stop early, but
// callers must tolerate a late resolution being silently dropped.
//
// # Architecture boundaries
//
// This package classifies no failures itself. Callers decide retryability
// through Policy.ShouldRetry; by default every failure is retried.
//
// # What this package must NOT do
//
//   - Import authkit or any sibling package.
//   - Inspect error strings or types beyond the ShouldRetry hook.
package retry
