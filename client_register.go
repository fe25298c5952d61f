package authkit

import (
	"context"
	"strings"

	"github.com/platefeed/authkit/internal/retry"
)

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Account creation at the provider is authoritative; the profile row is
// provisioned best effort afterwards. When the profile insert fails the
// registration still succeeds with a session-only user carrying the requested
// username, and a later resolution provisions the row lazily.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if c == nil || c.provider == nil {
		return nil, ErrClientNotReady
	}
	if strings.TrimSpace(req.Username) == "" ||
		strings.TrimSpace(req.Email) == "" ||
		req.Password == "" {
		return nil, ErrRegistrationInvalid
	}

	policy := retry.Policy{
		MaxAttempts:     c.config.SessionFetch.MaxAttempts,
		BaseDelay:       c.config.SessionFetch.BaseDelay,
		Multiplier:      c.config.SessionFetch.Multiplier,
		JitterMax:       c.config.SessionFetch.JitterMax,
		Timeout:         c.config.SessionFetch.Timeout,
		AttemptTimeouts: c.config.SessionFetch.AttemptTimeouts,
		ShouldRetry:     IsTransient,
	}

	input := SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Data: map[string]string{
			"username":   req.Username,
			"first_name": req.FirstName,
			"last_name":  req.LastName,
		},
	}

	sess, err := retry.Do(ctx, policy, "sign-up", func(ctx context.Context) (*Session, error) {
		return c.provider.SignUp(ctx, input)
	})
	if err != nil {
		c.metricInc(MetricRegisterFailure)
		c.emitAudit(ctx, auditEventRegisterFailure, false, "", err, nil)
		return nil, err
	}
	if sess == nil {
		c.metricInc(MetricRegisterFailure)
		c.emitAudit(ctx, auditEventRegisterFailure, false, "", ErrNoSession, nil)
		return nil, ErrNoSession
	}

	normalizeSessionExpiry(sess)
	user := c.createRegisteredProfile(ctx, sess, req)

	c.states.apply(ctx, stateChange{
		user: user, setUser: true,
		session: sess, setSession: true,
		markInitialized: true,
	})
	c.initStarted.Store(true)

	c.metricInc(MetricRegisterSuccess)
	c.emitAudit(ctx, auditEventRegisterSuccess, true, sess.User.ID, nil, func() map[string]string {
		return map[string]string{"username": req.Username}
	})
	return user, nil
}

func (c *Client) createRegisteredProfile(ctx context.Context, sess *Session, req RegisterRequest) *User {
	profile := Profile{
		ID:        sess.User.ID,
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}

	policy := retry.Policy{
		MaxAttempts: c.config.Profile.MaxAttempts,
		BaseDelay:   c.config.Profile.BaseDelay,
		Multiplier:  c.config.Profile.Multiplier,
		JitterMax:   c.config.Profile.JitterMax,
		Timeout:     c.config.Profile.Timeout,
		ShouldRetry: IsTransient,
	}

	_, err := retry.Do(ctx, policy, "profile insert", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.profiles.Insert(ctx, profile)
	})
	if err != nil {
		c.metricInc(MetricProfileFallback)
		c.emitAudit(ctx, auditEventProfileFallback, false, sess.User.ID, err, nil)
		return &User{
			ID:          sess.User.ID,
			Username:    req.Username,
			Email:       sess.User.Email,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			SessionOnly: true,
		}
	}

	c.metricInc(MetricProfileCreated)
	return &User{
		ID:        sess.User.ID,
		Username:  req.Username,
		Email:     sess.User.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
}
