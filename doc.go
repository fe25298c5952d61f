// Package authkit manages the client-side authentication session lifecycle
// against an external identity provider: it establishes, persists, refreshes,
// and recovers a user's session under unreliable network conditions while
// guaranteeing that initialization always reaches a terminal decision.
//
// The package is designed for concurrent application workloads: Client methods
// are safe to call from multiple goroutines after construction through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Client], [Builder], [Config], and
// value types (AuthState, User, Session, MetricsSnapshot, etc.). Internal
// coordination (retry/timeout execution and audit dispatch) lives under
// internal/ and is never exported. Durable key/value persistence lives in the
// storage subpackage behind [storage.Store].
//
// # What this package must NOT do
//
//   - Talk to the identity provider or the profile store except through the
//     [IdentityProvider] and [ProfileStore] interfaces supplied at Build.
//   - Surface profile-store outages to callers: profile resolution degrades
//     to a session-only user, it never fails authentication.
//   - Leave the caller in an unbounded loading state: every initialization
//     and listener path terminates under its configured timeouts.
//
// # Failure contract
//
// Transient network and timeout failures are retried and then absorbed
// (cached or session-only state). Credential and validation failures are
// returned verbatim to the caller. Only Build-time contract violations
// (missing collaborators, invalid config) are treated as fatal.
package authkit
