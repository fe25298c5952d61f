package authkit

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/platefeed/authkit/internal/audit"
)

// ProviderUser is the minimal user record carried inside a provider
// [Session]: the provider's stable user ID plus the sign-in email.
type ProviderUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is the opaque credential bundle issued by the identity provider.
// authkit holds a cached copy only; the provider owns the lifecycle.
// ExpiresAt is a Unix timestamp in seconds; when the provider omits it,
// the Client recovers it from the access token's own expiry claim.
type Session struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    int64        `json:"expires_at"`
	User         ProviderUser `json:"user"`
}

// User is the application-level identity derived from a [Session] plus a
// [Profile]. SessionOnly marks the degraded construction path: the profile
// store was unreachable (or creation failed) and the user was synthesized
// from session data alone. A session-only user is never written back to the
// profile store.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	SessionOnly bool   `json:"session_only,omitempty"`
}

// AuthState is the process-wide authentication state owned by the Client's
// state store. Initialized becomes true exactly once per Client lifetime and
// never reverts: it signals that a terminal init decision has been made, not
// that User/Session are final.
type AuthState struct {
	User        *User
	Session     *Session
	Initialized bool
	UpdatedAt   time.Time
}

// Profile is a row in the consumer's profile store, keyed by the provider
// user ID.
type Profile struct {
	ID        string
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	Username  *string
	FirstName *string
	LastName  *string
}

// EventType identifies a provider auth-stream event.
type EventType uint8

const (
	// EventSignedIn is an exported constant or variable used by the session lifecycle manager.
	EventSignedIn EventType = iota
	// EventSignedOut is an exported constant or variable used by the session lifecycle manager.
	EventSignedOut
	// EventTokenRefreshed is an exported constant or variable used by the session lifecycle manager.
	EventTokenRefreshed
	// EventUserUpdated is an exported constant or variable used by the session lifecycle manager.
	EventUserUpdated
)

// String returns the canonical wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventSignedIn:
		return "SIGNED_IN"
	case EventSignedOut:
		return "SIGNED_OUT"
	case EventTokenRefreshed:
		return "TOKEN_REFRESHED"
	case EventUserUpdated:
		return "USER_UPDATED"
	default:
		return "UNKNOWN"
	}
}

// AuthEvent is a single event from the provider's session-change stream.
// Session may be nil (always nil for [EventSignedOut]).
type AuthEvent struct {
	Type    EventType
	Session *Session
}

// SignUpInput is the input for [IdentityProvider.SignUp]. Data carries
// provider-side user metadata (username, names) attached at sign-up.
type SignUpInput struct {
	Email    string
	Password string
	Data     map[string]string
}

// IdentityProvider is the capability surface of the external identity
// provider. Implementations must return [ProviderError] values with an
// accurate [ErrorKind] so the Client can distinguish transient network
// failures from credential rejections without inspecting error strings.
//
// GetSession returning (nil, nil) means "authoritatively signed out" and is
// not treated as a failure. AuthEvents returns the provider's session-change
// stream; the channel must stay open for the provider's lifetime.
type IdentityProvider interface {
	GetSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, input SignUpInput) (*Session, error)
	SignOut(ctx context.Context) error
	GetUser(ctx context.Context) (*ProviderUser, error)
	AuthEvents() <-chan AuthEvent
}

// ProfileStore is the capability surface of the consumer's profile store.
// Get must return [ErrProfileNotFound] when no row exists for the ID, as
// distinct from transport failures (which should carry [KindNetwork] or
// [KindTimeout]). Ping is a lightweight reachability probe used before lazy
// profile creation.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Insert(ctx context.Context, p Profile) error
	Update(ctx context.Context, id string, patch ProfilePatch) error
	Ping(ctx context.Context) error
}

// RegisterRequest is the input for [Client.Register]. Username, Email, and
// Password are required.
type RegisterRequest struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuditEvent is a structured audit record emitted by the Client.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the Client's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
