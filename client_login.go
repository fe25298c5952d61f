package authkit

import (
	"context"

	"github.com/platefeed/authkit/internal/retry"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The credential exchange is retried on transient failures only; a rejected
// credential surfaces immediately. Profile resolution after a successful
// exchange never fails the login: when the profile backend is unavailable the
// returned user is session-only.
func (c *Client) Login(ctx context.Context, identifier, password string) (*User, error) {
	if c == nil || c.provider == nil {
		return nil, ErrClientNotReady
	}
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	// Drop the previous identity before the exchange so a failed attempt
	// never leaves a stale user visible alongside fresh error state.
	c.states.apply(ctx, stateChange{user: nil, setUser: true})

	policy := retry.Policy{
		MaxAttempts:     c.config.SessionFetch.MaxAttempts,
		BaseDelay:       c.config.SessionFetch.BaseDelay,
		Multiplier:      c.config.SessionFetch.Multiplier,
		JitterMax:       c.config.SessionFetch.JitterMax,
		Timeout:         c.config.SessionFetch.Timeout,
		AttemptTimeouts: c.config.SessionFetch.AttemptTimeouts,
		ShouldRetry:     IsTransient,
	}

	sess, err := retry.Do(ctx, policy, "password sign-in", func(ctx context.Context) (*Session, error) {
		return c.provider.SignInWithPassword(ctx, identifier, password)
	})
	if err != nil {
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, auditEventLoginFailure, false, "", err, nil)
		return nil, err
	}
	if sess == nil {
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, auditEventLoginFailure, false, "", ErrNoSession, nil)
		return nil, ErrNoSession
	}

	normalizeSessionExpiry(sess)
	user := c.resolveUser(ctx, sess)

	c.states.apply(ctx, stateChange{
		user: user, setUser: true,
		session: sess, setSession: true,
		markInitialized: true,
	})
	c.initStarted.Store(true)

	c.metricInc(MetricLoginSuccess)
	c.emitAudit(ctx, auditEventLoginSuccess, true, sess.User.ID, nil, nil)
	return user, nil
}
