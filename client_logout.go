package authkit

import (
	"context"
	"log"
)

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Local state and persisted snapshots are cleared before the provider is told
// to revoke the session. The remote sign-out runs detached with its own
// timeout; a revocation failure is logged and never resurrects the session.
func (c *Client) Logout(ctx context.Context) error {
	if c == nil || c.provider == nil {
		return ErrClientNotReady
	}

	c.states.clearPersisted(ctx)
	c.states.apply(ctx, stateChange{
		user: nil, setUser: true,
		session: nil, setSession: true,
		markInitialized: true,
	})

	c.metricInc(MetricLogout)
	c.emitAudit(ctx, auditEventLogout, true, "", nil, nil)

	go func() {
		sctx, cancel := context.WithTimeout(context.Background(), c.config.SignOutTimeout)
		defer cancel()

		if err := c.provider.SignOut(sctx); err != nil {
			log.Print("authkit: remote sign-out failed: ", err)
			c.metricInc(MetricRemoteSignOutFailure)
			c.emitAudit(sctx, auditEventRemoteSignOut, false, "", err, nil)
		}
	}()

	return nil
}
