package authkit

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/platefeed/authkit/internal/retry"
)

// resolveUser maps a provider session onto an application user. It never
// returns an error: when the profile backend is unreachable or the profile
// row cannot be created, the caller gets a session-only user assembled from
// the token claims so sign-in is never blocked on the profile database.
func (c *Client) resolveUser(ctx context.Context, sess *Session) *User {
	if sess == nil || sess.User.ID == "" {
		return nil
	}

	policy := retry.Policy{
		MaxAttempts: c.config.Profile.MaxAttempts,
		BaseDelay:   c.config.Profile.BaseDelay,
		Multiplier:  c.config.Profile.Multiplier,
		JitterMax:   c.config.Profile.JitterMax,
		Timeout:     c.config.Profile.Timeout,
		ShouldRetry: func(err error) bool {
			return !errors.Is(err, ErrProfileNotFound)
		},
	}

	profile, err := retry.Do(ctx, policy, "profile lookup", func(ctx context.Context) (*Profile, error) {
		return c.profiles.Get(ctx, sess.User.ID)
	})

	switch {
	case err == nil:
		// fall through to assembly below
	case errors.Is(err, ErrProfileNotFound):
		profile = c.createProfileLazy(ctx, sess)
		if profile == nil {
			c.metricInc(MetricProfileFallback)
			c.emitAudit(ctx, auditEventProfileFallback, false, sess.User.ID, err, nil)
			return sessionOnlyUser(sess)
		}
	default:
		c.metricInc(MetricProfileFallback)
		c.emitAudit(ctx, auditEventProfileFallback, false, sess.User.ID, err, nil)
		return sessionOnlyUser(sess)
	}

	user := &User{
		ID:        sess.User.ID,
		Username:  profile.Username,
		Email:     sess.User.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
	}

	if user.Username == "" {
		user.Username = fallbackUsername(sess.User.Email)
		c.backfillUsername(sess.User.ID, user.Username)
	}

	c.metricInc(MetricProfileResolved)
	return user
}

// resolveUserWithTimeout runs resolveUser but gives up after the configured
// window, falling back to a session-only user. The late resolution result is
// discarded; resolveUser has no side effects besides the lazy profile insert,
// which is safe to complete in the background.
func (c *Client) resolveUserWithTimeout(ctx context.Context, sess *Session) *User {
	if sess == nil {
		return nil
	}

	timeout := c.config.ResolveTimeout
	if timeout <= 0 {
		return c.resolveUser(ctx, sess)
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan *User, 1)
	go func() {
		done <- c.resolveUser(rctx, sess)
	}()

	select {
	case u := <-done:
		return u
	case <-rctx.Done():
		c.metricInc(MetricProfileFallback)
		return sessionOnlyUser(sess)
	}
}

// createProfileLazy provisions a profile row for a session that has none,
// typically a user created before the profile table existed. Returns nil on
// any failure; the caller degrades to a session-only user.
func (c *Client) createProfileLazy(ctx context.Context, sess *Session) *Profile {
	if err := c.profiles.Ping(ctx); err != nil {
		return nil
	}

	p := Profile{
		ID:       sess.User.ID,
		Username: fallbackUsername(sess.User.Email),
		Email:    sess.User.Email,
	}
	if err := c.profiles.Insert(ctx, p); err != nil {
		return nil
	}

	created, err := c.profiles.Get(ctx, sess.User.ID)
	if err != nil {
		return nil
	}

	c.metricInc(MetricProfileCreated)
	c.emitAudit(ctx, auditEventProfileCreated, true, sess.User.ID, nil, nil)
	return created
}

// backfillUsername writes a derived username to a profile row that is missing
// one. Runs detached; the resolved user already carries the derived value, so
// a failed write only means the next resolution derives it again.
func (c *Client) backfillUsername(userID, username string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.BackfillTimeout)
		defer cancel()

		patch := ProfilePatch{Username: &username}
		if err := c.profiles.Update(ctx, userID, patch); err != nil {
			log.Print("authkit: username backfill failed: ", err)
			return
		}
		c.metricInc(MetricUsernameBackfill)
		c.emitAudit(ctx, auditEventUsernameBackfill, true, userID, nil, nil)
	}()
}

// sessionOnlyUser assembles a user from the session alone. SessionOnly marks
// the record as unconfirmed by the profile backend.
func sessionOnlyUser(sess *Session) *User {
	if sess == nil {
		return nil
	}
	return &User{
		ID:          sess.User.ID,
		Username:    fallbackUsername(sess.User.Email),
		Email:       sess.User.Email,
		SessionOnly: true,
	}
}

// fallbackUsername derives a username from the local part of an email
// address, keeping letters and digits only. When nothing usable remains a
// random token is issued instead.
func fallbackUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")

	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		return b.String()
	}

	return "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
