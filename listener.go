package authkit

import (
	"context"
	"log"

	"github.com/platefeed/authkit/internal/retry"
)

// StartListener subscribes to provider auth events and mirrors them into the
// client state. The returned stop function detaches the subscription; calling
// it more than once is safe. A second StartListener while a subscription is
// live returns a no-op stop without starting another goroutine.
func (c *Client) StartListener(ctx context.Context) func() {
	if c == nil || c.provider == nil {
		return func() {}
	}
	if !c.listening.CompareAndSwap(false, true) {
		return func() {}
	}

	lctx, cancel := context.WithCancel(ctx)
	events := c.provider.AuthEvents()

	go func() {
		defer c.listening.Store(false)
		for {
			select {
			case <-lctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				c.handleAuthEvent(lctx, ev)
			}
		}
	}()

	return cancel
}

func (c *Client) handleAuthEvent(ctx context.Context, ev AuthEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Print("authkit: auth event handler panicked: ", r)
			c.states.apply(ctx, stateChange{markInitialized: true})
		}
	}()

	switch ev.Type {
	case EventSignedIn:
		c.metricInc(MetricEventSignedIn)
		normalizeSessionExpiry(ev.Session)
		user := c.resolveUserWithTimeout(ctx, ev.Session)
		c.states.apply(ctx, stateChange{
			user: user, setUser: true,
			session: ev.Session, setSession: true,
			markInitialized: true,
		})
		c.emitAudit(ctx, auditEventSignedIn, true, userIDOf(ev.Session), nil, nil)

	case EventSignedOut:
		c.metricInc(MetricEventSignedOut)
		c.states.apply(ctx, stateChange{
			user: nil, setUser: true,
			session: nil, setSession: true,
			markInitialized: true,
		})
		c.emitAudit(ctx, auditEventSignedOut, true, "", nil, nil)

	case EventTokenRefreshed:
		c.metricInc(MetricEventTokenRefreshed)
		c.handleTokenRefreshed(ctx, ev.Session)

	case EventUserUpdated:
		c.metricInc(MetricEventUserUpdated)
		normalizeSessionExpiry(ev.Session)
		user := c.resolveUserWithTimeout(ctx, ev.Session)
		c.states.apply(ctx, stateChange{
			user: user, setUser: true,
			session: ev.Session, setSession: true,
			markInitialized: true,
		})
		c.emitAudit(ctx, auditEventUserUpdated, true, userIDOf(ev.Session), nil, nil)

	default:
		// Unknown event types still satisfy the initialization guarantee.
		c.states.apply(ctx, stateChange{markInitialized: true})
	}
}

// handleTokenRefreshed validates the refreshed session against the provider.
// A rejected or unreachable validation clears the state: a token the provider
// will not vouch for must not be kept signed in.
func (c *Client) handleTokenRefreshed(ctx context.Context, sess *Session) {
	if sess == nil {
		c.states.apply(ctx, stateChange{markInitialized: true})
		return
	}
	normalizeSessionExpiry(sess)

	policy := retry.Policy{
		MaxAttempts: 1,
		Timeout:     c.config.ResolveTimeout,
	}
	_, err := retry.Do(ctx, policy, "refreshed session validation", func(ctx context.Context) (*ProviderUser, error) {
		return c.provider.GetUser(ctx)
	})
	if err != nil {
		c.states.apply(ctx, stateChange{
			user: nil, setUser: true,
			session: nil, setSession: true,
			markInitialized: true,
		})
		c.metricInc(MetricSessionInvalidated)
		c.emitAudit(ctx, auditEventSessionInvalid, false, userIDOf(sess), err, nil)
		return
	}

	// Validation passed: swap in the fresh token pair and keep the resolved
	// user as-is. Profile data does not change on a token refresh.
	c.states.apply(ctx, stateChange{
		session: sess, setSession: true,
		markInitialized: true,
	})
	c.emitAudit(ctx, auditEventTokenRefreshed, true, userIDOf(sess), nil, nil)
}

func userIDOf(sess *Session) string {
	if sess == nil {
		return ""
	}
	return sess.User.ID
}
