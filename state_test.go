package authkit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/platefeed/authkit/storage"
)

func TestStateApplyMergesPartially(t *testing.T) {
	ctx := context.Background()
	s := newStateStore(storage.NewMemory())

	user := &User{ID: "u1", Username: "chef"}
	st := s.apply(ctx, stateChange{user: user, setUser: true})
	if st.User == nil || st.User.ID != "u1" {
		t.Fatalf("user not applied: %+v", st.User)
	}
	if st.Session != nil {
		t.Fatal("session should be untouched")
	}

	sess := testSession("u1", "chef@example.com")
	st = s.apply(ctx, stateChange{session: sess, setSession: true})
	if st.User == nil || st.User.ID != "u1" {
		t.Fatal("user dropped by session-only change")
	}
	if st.Session == nil || st.Session.AccessToken != "access-u1" {
		t.Fatalf("session not applied: %+v", st.Session)
	}
	if st.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt not stamped")
	}
}

func TestStateInitializedIsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := newStateStore(storage.NewMemory())

	st := s.apply(ctx, stateChange{markInitialized: true})
	if !st.Initialized {
		t.Fatal("expected Initialized true")
	}

	st = s.apply(ctx, stateChange{user: nil, setUser: true, session: nil, setSession: true})
	if !st.Initialized {
		t.Fatal("Initialized must not revert")
	}
}

func TestStatePersistenceSuppressedBeforeInitialized(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newStateStore(mem)

	s.apply(ctx, stateChange{
		user:    &User{ID: "u1", Username: "chef"},
		setUser: true,
		session: testSession("u1", "chef@example.com"), setSession: true,
	})

	if _, err := mem.Get(ctx, storage.KeyUser); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("user persisted before initialization")
	}
	if _, err := mem.Get(ctx, storage.KeySession); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("session persisted before initialization")
	}
}

func TestStatePersistsSessionProjectionOnly(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newStateStore(mem)

	sess := testSession("u1", "chef@example.com")
	s.apply(ctx, stateChange{
		user: &User{ID: "u1", Username: "chef"}, setUser: true,
		session: sess, setSession: true,
		markInitialized: true,
	})

	raw, err := mem.Get(ctx, storage.KeySession)
	if err != nil {
		t.Fatalf("session not persisted: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("persisted session is not JSON: %v", err)
	}
	if decoded["access_token"] != "access-u1" {
		t.Fatalf("access_token = %v", decoded["access_token"])
	}
	if decoded["refresh_token"] != "refresh-u1" {
		t.Fatalf("refresh_token = %v", decoded["refresh_token"])
	}
	if _, ok := decoded["user"]; ok {
		t.Fatal("provider user claims must not be persisted")
	}
}

func TestStatePersistDeletesClearedKeys(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newStateStore(mem)

	s.apply(ctx, stateChange{
		user: &User{ID: "u1"}, setUser: true,
		session: testSession("u1", ""), setSession: true,
		markInitialized: true,
	})
	s.apply(ctx, stateChange{
		user: nil, setUser: true,
		session: nil, setSession: true,
	})

	if _, err := mem.Get(ctx, storage.KeyUser); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("user key not deleted")
	}
	if _, err := mem.Get(ctx, storage.KeySession); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("session key not deleted")
	}
}

func TestStateLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	writer := newStateStore(mem)
	writer.apply(ctx, stateChange{
		user: &User{ID: "u1", Username: "chef", Email: "chef@example.com"}, setUser: true,
		session: testSession("u1", "chef@example.com"), setSession: true,
		markInitialized: true,
	})

	reader := newStateStore(mem)
	user, sess := reader.load(ctx)
	if user == nil || user.Username != "chef" {
		t.Fatalf("loaded user = %+v", user)
	}
	if sess == nil || sess.AccessToken != "access-u1" {
		t.Fatalf("loaded session = %+v", sess)
	}
	if sess.User.ID != "" {
		t.Fatal("loaded session must not carry provider claims")
	}
}

func TestStateLoadIgnoresCorruptEntries(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	if err := mem.Set(ctx, storage.KeyUser, []byte("{not json")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	s := newStateStore(mem)
	user, sess := s.load(ctx)
	if user != nil || sess != nil {
		t.Fatalf("expected nil state from corrupt cache, got %+v %+v", user, sess)
	}
}

func TestStateTransitionClassification(t *testing.T) {
	cases := []struct {
		name string
		prev *User
		next *User
		want string
	}{
		{"login", nil, &User{ID: "u1"}, transitionLogin},
		{"logout", &User{ID: "u1"}, nil, transitionLogout},
		{"update", &User{ID: "u1", Username: "a"}, &User{ID: "u1", Username: "b"}, transitionUpdate},
		{"unchanged", &User{ID: "u1"}, &User{ID: "u1"}, ""},
		{"still signed out", nil, nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyTransition(AuthState{User: tc.prev}, AuthState{User: tc.next})
			if got != tc.want {
				t.Fatalf("classifyTransition = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStateGetStateReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newStateStore(storage.NewMemory())
	s.apply(ctx, stateChange{user: &User{ID: "u1", Username: "chef"}, setUser: true})

	st := s.getState()
	st.User.Username = "mutated"

	if s.getState().User.Username != "chef" {
		t.Fatal("getState leaked internal pointer")
	}
}
