package authkit

import (
	"context"
	"strconv"
	"time"

	"github.com/platefeed/authkit/internal/retry"
)

// Initialize resolves the startup auth state: restore a cached snapshot for
// immediate rendering, fetch the live session from the provider, and publish
// the reconciled result. The run always terminates in an initialized state,
// including when every fetch attempt fails.
//
// Repeat calls after the first are no-ops. Concurrent callers race on a
// single guard so the provider sees at most one fetch sequence.
func (c *Client) Initialize(ctx context.Context) error {
	return c.initialize(ctx, false)
}

// RefreshAuth describes the refreshauth operation and its observable behavior.
//
// RefreshAuth may return an error when input validation, dependency calls, or security checks fail.
// RefreshAuth does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) RefreshAuth(ctx context.Context) error {
	return c.initialize(ctx, true)
}

func (c *Client) initialize(ctx context.Context, force bool) error {
	if c == nil || c.provider == nil {
		return ErrClientNotReady
	}

	if force {
		c.initStarted.Store(true)
	} else if !c.initStarted.CompareAndSwap(false, true) {
		return nil
	}

	c.initRunning.Store(true)
	defer c.initRunning.Store(false)

	start := time.Now()
	published := false
	defer func() {
		// The initialized flag must flip even when a publish path was
		// skipped by a panic or an early return.
		if !published {
			c.states.apply(context.Background(), stateChange{markInitialized: true})
		}
		c.metrics.Observe(MetricInitLatency, time.Since(start))
	}()

	c.restoreCachedState(ctx)

	sess, fetchErr := c.fetchSession(ctx)

	if fetchErr == nil && sess == nil {
		// The provider answered and there is no session. Cached state is
		// stale by definition.
		c.states.clearPersisted(ctx)
		c.states.apply(ctx, stateChange{
			user: nil, setUser: true,
			session: nil, setSession: true,
			markInitialized: true,
		})
		published = true
		c.metricInc(MetricInitEmpty)
		c.emitAudit(ctx, auditEventInitComplete, true, "", nil, func() map[string]string {
			return map[string]string{"session": "none"}
		})
		return nil
	}

	if fetchErr != nil {
		user, cached := c.recoverCachedSession(ctx)
		if cached == nil {
			c.states.apply(ctx, stateChange{
				user: nil, setUser: true,
				session: nil, setSession: true,
				markInitialized: true,
			})
			published = true
			c.metricInc(MetricInitFetchFailed)
			c.emitAudit(ctx, auditEventInitFetchFailed, false, "", fetchErr, nil)
			return fetchErr
		}

		// The persisted session projection drops provider claims, so the
		// persisted user is authoritative here rather than a fresh resolve.
		userID := ""
		if user != nil {
			userID = user.ID
		}
		c.states.apply(ctx, stateChange{
			user: user, setUser: true,
			session: cached, setSession: true,
			markInitialized: true,
		})
		published = true
		c.metricInc(MetricInitCacheRecovery)
		c.emitAudit(ctx, auditEventInitCacheRecovery, true, userID, fetchErr, nil)
		return nil
	}

	normalizeSessionExpiry(sess)
	user := c.resolveUserWithTimeout(ctx, sess)

	c.states.apply(ctx, stateChange{
		user: user, setUser: true,
		session: sess, setSession: true,
		markInitialized: true,
	})
	published = true

	c.metricInc(MetricInitSuccess)
	c.emitAudit(ctx, auditEventInitComplete, true, sess.User.ID, nil, func() map[string]string {
		return map[string]string{"session_only": strconv.FormatBool(user != nil && user.SessionOnly)}
	})
	return nil
}

// restoreCachedState paints the persisted snapshot into memory so callers see
// a plausible state while the live fetch is in flight. Only runs when the
// in-memory state is still empty and uninitialized; a forced refresh must not
// clobber live state with a stale snapshot.
func (c *Client) restoreCachedState(ctx context.Context) {
	st := c.states.getState()
	if st.Initialized || st.User != nil || st.Session != nil {
		return
	}

	user, sess := c.states.load(ctx)
	if user == nil && sess == nil {
		return
	}
	c.states.apply(ctx, stateChange{
		user: user, setUser: true,
		session: sess, setSession: true,
	})
}

func (c *Client) fetchSession(ctx context.Context) (*Session, error) {
	policy := retry.Policy{
		MaxAttempts:     c.config.SessionFetch.MaxAttempts,
		BaseDelay:       c.config.SessionFetch.BaseDelay,
		Multiplier:      c.config.SessionFetch.Multiplier,
		JitterMax:       c.config.SessionFetch.JitterMax,
		AttemptTimeouts: c.config.SessionFetch.AttemptTimeouts,
	}
	return retry.Do(ctx, policy, "session fetch", func(ctx context.Context) (*Session, error) {
		return c.provider.GetSession(ctx)
	})
}

// recoverCachedSession returns the persisted snapshot when the live fetch
// failed, provided the session expiry is within the stale-session window.
// A nil session means the cache is absent or too old to trust.
func (c *Client) recoverCachedSession(ctx context.Context) (*User, *Session) {
	user, sess := c.states.load(ctx)
	if sess == nil {
		return nil, nil
	}

	cutoff := time.Now().Add(-c.config.CacheMaxAge).Unix()
	if sess.ExpiresAt < cutoff {
		return nil, nil
	}
	return user, sess
}
