package authkit

import (
	"sync/atomic"

	internalaudit "github.com/platefeed/authkit/internal/audit"
)

// Client defines a public type used by authkit APIs.
//
// Client instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// Construct one through New and Build; a zero Client is not usable.
type Client struct {
	config   Config
	provider IdentityProvider
	profiles ProfileStore
	states   *stateStore
	audit    *internalaudit.Dispatcher
	metrics  *Metrics

	initStarted atomic.Bool
	initRunning atomic.Bool
	listening   atomic.Bool
}

// State describes the state operation and its observable behavior.
//
// State does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) State() AuthState {
	return c.states.getState()
}

// CurrentUser describes the currentuser operation and its observable behavior.
//
// CurrentUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) CurrentUser() *User {
	return c.states.getState().User
}

// Initialized reports whether startup resolution has reached its terminal
// state. Once true it stays true for the lifetime of the client.
func (c *Client) Initialized() bool {
	return c.states.getState().Initialized
}

// Loading reports whether the client is still resolving auth state. True
// while an initialization run is in flight and until the first run completes.
func (c *Client) Loading() bool {
	return c.initRunning.Load() || !c.Initialized()
}

// SessionToken returns the current access token, or the empty string when no
// session is held. Callers attach it to outbound requests as a bearer token.
func (c *Client) SessionToken() string {
	st := c.states.getState()
	if st.Session == nil {
		return ""
	}
	return st.Session.AccessToken
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (c *Client) AuditDropped() uint64 {
	if c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// Close drains and stops the audit dispatcher. The client must not be used
// after Close returns.
func (c *Client) Close() error {
	if c.audit != nil {
		c.audit.Close()
	}
	return nil
}

func (c *Client) metricInc(id MetricID) {
	if c == nil {
		return
	}
	c.metrics.Inc(id)
}
