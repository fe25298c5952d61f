package authkit

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventInitComplete      = "init_complete"
	auditEventInitCacheRecovery = "init_cache_recovery"
	auditEventInitFetchFailed   = "init_fetch_failed"
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventRegisterSuccess   = "register_success"
	auditEventRegisterFailure   = "register_failure"
	auditEventLogout            = "logout"
	auditEventRemoteSignOut     = "remote_sign_out_failed"
	auditEventProfileCreated    = "profile_created"
	auditEventProfileFallback   = "profile_fallback"
	auditEventUsernameBackfill  = "username_backfill"
	auditEventSignedIn          = "provider_signed_in"
	auditEventSignedOut         = "provider_signed_out"
	auditEventTokenRefreshed    = "provider_token_refreshed"
	auditEventUserUpdated       = "provider_user_updated"
	auditEventSessionInvalid    = "session_invalidated"
	auditEventStateTransition   = "state_transition"
)

// AuditErrorCode defines a public type used by authkit APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrRegistrationInvalid AuditErrorCode = "registration_invalid"
	auditErrNotReady            AuditErrorCode = "client_not_ready"
	auditErrNoSession           AuditErrorCode = "no_session"
	auditErrProfileNotFound     AuditErrorCode = "profile_not_found"
	auditErrTimeout             AuditErrorCode = "timeout"
	auditErrNetwork             AuditErrorCode = "network"
	auditErrConflict            AuditErrorCode = "conflict"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrRegistrationInvalid):
		return auditErrRegistrationInvalid
	case errors.Is(err, ErrClientNotReady):
		return auditErrNotReady
	case errors.Is(err, ErrNoSession):
		return auditErrNoSession
	case errors.Is(err, ErrProfileNotFound):
		return auditErrProfileNotFound
	}

	switch KindOf(err) {
	case KindTimeout:
		return auditErrTimeout
	case KindNetwork:
		return auditErrNetwork
	case KindConflict:
		return auditErrConflict
	case KindCredential:
		return auditErrInvalidCredentials
	case KindNotFound:
		return auditErrProfileNotFound
	default:
		return auditErrInternal
	}
}
