package authkit

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/platefeed/authkit/storage"
)

// persistedSession is the on-disk projection of a session. Raw provider
// payloads beyond the token pair and expiry are never persisted.
type persistedSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

const (
	transitionLogin  = "login"
	transitionLogout = "logout"
	transitionUpdate = "update"
)

// stateChange describes a partial update to the auth state. Fields with the
// matching set flag false are left untouched so callers can update the user
// and session independently.
type stateChange struct {
	user            *User
	setUser         bool
	session         *Session
	setSession      bool
	markInitialized bool
}

type stateStore struct {
	mu    sync.Mutex
	state AuthState
	store storage.Store

	// onTransition fires after every apply that changes the signed-in user,
	// outside the mutex. May be nil.
	onTransition func(transition string, next AuthState)
}

func newStateStore(store storage.Store) *stateStore {
	return &stateStore{store: store}
}

// apply merges the change into the current state, persists the result when the
// state has reached its initialized form, and returns a copy of the new state.
func (s *stateStore) apply(ctx context.Context, ch stateChange) AuthState {
	s.mu.Lock()

	prev := s.state

	if ch.setUser {
		s.state.User = cloneUser(ch.user)
	}
	if ch.setSession {
		s.state.Session = cloneSession(ch.session)
	}
	if ch.markInitialized {
		s.state.Initialized = true
	}
	s.state.UpdatedAt = time.Now().UTC()

	next := s.snapshotLocked()
	initialized := s.state.Initialized
	s.mu.Unlock()

	if initialized {
		s.persist(ctx, next)
	}

	if s.onTransition != nil {
		if t := classifyTransition(prev, next); t != "" {
			s.onTransition(t, next)
		}
	}

	return next
}

// getState returns a defensive copy of the current state.
func (s *stateStore) getState() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *stateStore) snapshotLocked() AuthState {
	return AuthState{
		User:        cloneUser(s.state.User),
		Session:     cloneSession(s.state.Session),
		Initialized: s.state.Initialized,
		UpdatedAt:   s.state.UpdatedAt,
	}
}

// persist writes the user and session projections under their fixed keys.
// A nil user or session deletes the corresponding key. Storage failures are
// logged and swallowed; persistence is best effort and never blocks a state
// transition.
func (s *stateStore) persist(ctx context.Context, st AuthState) {
	if s.store == nil {
		return
	}

	if st.User == nil {
		if err := s.store.Delete(ctx, storage.KeyUser); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Print("authkit: state persistence failed: ", err)
		}
	} else {
		raw, err := json.Marshal(st.User)
		if err == nil {
			err = s.store.Set(ctx, storage.KeyUser, raw)
		}
		if err != nil {
			log.Print("authkit: state persistence failed: ", err)
		}
	}

	if st.Session == nil {
		if err := s.store.Delete(ctx, storage.KeySession); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Print("authkit: state persistence failed: ", err)
		}
		return
	}

	proj := persistedSession{
		AccessToken:  st.Session.AccessToken,
		RefreshToken: st.Session.RefreshToken,
		ExpiresAt:    st.Session.ExpiresAt,
	}
	raw, err := json.Marshal(proj)
	if err == nil {
		err = s.store.Set(ctx, storage.KeySession, raw)
	}
	if err != nil {
		log.Print("authkit: state persistence failed: ", err)
	}
}

// load reads the persisted user and session. Either may come back nil when
// absent or unreadable; corrupt entries are treated as absent.
func (s *stateStore) load(ctx context.Context) (*User, *Session) {
	if s.store == nil {
		return nil, nil
	}

	var user *User
	if raw, err := s.store.Get(ctx, storage.KeyUser); err == nil {
		u := &User{}
		if json.Unmarshal(raw, u) == nil {
			user = u
		}
	}

	var sess *Session
	if raw, err := s.store.Get(ctx, storage.KeySession); err == nil {
		proj := persistedSession{}
		if json.Unmarshal(raw, &proj) == nil && proj.AccessToken != "" {
			sess = &Session{
				AccessToken:  proj.AccessToken,
				RefreshToken: proj.RefreshToken,
				ExpiresAt:    proj.ExpiresAt,
			}
		}
	}

	return user, sess
}

// clearPersisted removes both persisted keys regardless of in-memory state.
func (s *stateStore) clearPersisted(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, storage.KeyUser); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Print("authkit: clearing persisted state failed: ", err)
	}
	if err := s.store.Delete(ctx, storage.KeySession); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Print("authkit: clearing persisted state failed: ", err)
	}
}

func classifyTransition(prev, next AuthState) string {
	switch {
	case prev.User == nil && next.User != nil:
		return transitionLogin
	case prev.User != nil && next.User == nil:
		return transitionLogout
	case prev.User != nil && next.User != nil && *prev.User != *next.User:
		return transitionUpdate
	default:
		return ""
	}
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func cloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
