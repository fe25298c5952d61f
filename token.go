package authkit

import (
	"github.com/golang-jwt/jwt/v5"
)

// normalizeSessionExpiry fills in a missing ExpiresAt from the access token
// claims. Provider responses sometimes omit the expiry field while the token
// itself still carries an exp claim. The token is decoded without signature
// verification; the value only feeds the stale-session cutoff and is never
// used as proof of authenticity.
func normalizeSessionExpiry(sess *Session) {
	if sess == nil || sess.ExpiresAt != 0 || sess.AccessToken == "" {
		return
	}

	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(sess.AccessToken, claims); err != nil {
		return
	}
	if claims.ExpiresAt == nil {
		return
	}
	sess.ExpiresAt = claims.ExpiresAt.Unix()
}
