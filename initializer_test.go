package authkit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/platefeed/authkit/storage"
)

func TestInitializeWithLiveSession(t *testing.T) {
	provider := newMockProvider()
	provider.session = testSession("u1", "chef@example.com")
	profiles := newMockProfileStore()
	profiles.profiles["u1"] = Profile{ID: "u1", Username: "chef_anna"}

	client := newTestClient(t, provider, profiles, nil)

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	st := client.State()
	if !st.Initialized {
		t.Fatal("expected Initialized true")
	}
	if st.Session == nil || st.Session.AccessToken != "access-u1" {
		t.Fatalf("session = %+v", st.Session)
	}
	if st.User == nil || st.User.Username != "chef_anna" {
		t.Fatalf("user = %+v", st.User)
	}
}

func TestInitializeNoSessionEndsEmpty(t *testing.T) {
	client := newTestClient(t, newMockProvider(), newMockProfileStore(), nil)

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	st := client.State()
	if !st.Initialized {
		t.Fatal("expected Initialized true")
	}
	if st.User != nil || st.Session != nil {
		t.Fatalf("expected empty state, got user=%+v session=%+v", st.User, st.Session)
	}
}

func TestInitializeRetriesSessionFetch(t *testing.T) {
	provider := newMockProvider()
	provider.session = testSession("u1", "chef@example.com")
	provider.getSessionErrs = []error{networkErr("get session"), networkErr("get session")}

	client := newTestClient(t, provider, newMockProfileStore(), nil)

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if provider.sessionFetches() != 3 {
		t.Fatalf("fetches = %d, want 3", provider.sessionFetches())
	}
	if client.State().Session == nil {
		t.Fatal("expected session after retries")
	}
}

func TestInitializeTerminatesOnTotalFailure(t *testing.T) {
	provider := newMockProvider()
	provider.getSessionErrs = []error{
		networkErr("get session"),
		networkErr("get session"),
		networkErr("get session"),
	}

	client := newTestClient(t, provider, newMockProfileStore(), nil)

	err := client.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected fetch error to surface")
	}

	st := client.State()
	if !st.Initialized {
		t.Fatal("initialization must terminate even when every fetch fails")
	}
	if st.User != nil || st.Session != nil {
		t.Fatal("expected empty terminal state")
	}
}

func TestInitializeConcurrentCallsFetchOnce(t *testing.T) {
	provider := newMockProvider()
	provider.session = testSession("u1", "chef@example.com")
	client := newTestClient(t, provider, newMockProfileStore(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = client.Initialize(context.Background())
		}()
	}
	wg.Wait()

	waitFor(t, time.Second, func() bool { return client.Initialized() })
	if provider.sessionFetches() != 1 {
		t.Fatalf("fetches = %d, want 1", provider.sessionFetches())
	}
}

func TestInitializeSecondCallIsNoOp(t *testing.T) {
	provider := newMockProvider()
	provider.session = testSession("u1", "chef@example.com")
	client := newTestClient(t, provider, newMockProfileStore(), nil)

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	if provider.sessionFetches() != 1 {
		t.Fatalf("fetches = %d, want 1", provider.sessionFetches())
	}
}

func TestRefreshAuthForcesRefetch(t *testing.T) {
	provider := newMockProvider()
	provider.session = testSession("u1", "chef@example.com")
	client := newTestClient(t, provider, newMockProfileStore(), nil)

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := client.RefreshAuth(context.Background()); err != nil {
		t.Fatalf("RefreshAuth failed: %v", err)
	}
	if provider.sessionFetches() != 2 {
		t.Fatalf("fetches = %d, want 2", provider.sessionFetches())
	}
}

func seedCache(t *testing.T, mem *storage.Memory, sess *Session, user *User) {
	t.Helper()

	s := newStateStore(mem)
	s.apply(context.Background(), stateChange{
		user: user, setUser: true,
		session: sess, setSession: true,
		markInitialized: true,
	})
}

func TestInitializeRecoversRecentCacheOnFetchFailure(t *testing.T) {
	mem := storage.NewMemory()
	sess := testSession("u1", "chef@example.com")
	sess.ExpiresAt = time.Now().Add(-6 * 24 * time.Hour).Unix()
	seedCache(t, mem, sess, &User{ID: "u1", Username: "chef"})

	provider := newMockProvider()
	provider.getSessionErrs = []error{
		networkErr("get session"),
		networkErr("get session"),
		networkErr("get session"),
	}

	client := newTestClient(t, provider, newMockProfileStore(), mem)

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	st := client.State()
	if !st.Initialized {
		t.Fatal("expected Initialized true")
	}
	if st.Session == nil || st.Session.AccessToken != "access-u1" {
		t.Fatalf("expected cached session recovered, got %+v", st.Session)
	}
	if st.User == nil || st.User.Username != "chef" {
		t.Fatalf("expected cached user, got %+v", st.User)
	}
}

func TestInitializeRejectsStaleCacheOnFetchFailure(t *testing.T) {
	mem := storage.NewMemory()
	sess := testSession("u1", "chef@example.com")
	sess.ExpiresAt = time.Now().Add(-8 * 24 * time.Hour).Unix()
	seedCache(t, mem, sess, &User{ID: "u1", Username: "chef"})

	provider := newMockProvider()
	provider.getSessionErrs = []error{
		networkErr("get session"),
		networkErr("get session"),
		networkErr("get session"),
	}

	client := newTestClient(t, provider, newMockProfileStore(), mem)

	if err := client.Initialize(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}

	st := client.State()
	if !st.Initialized {
		t.Fatal("expected Initialized true")
	}
	if st.User != nil || st.Session != nil {
		t.Fatal("stale cache must not be recovered")
	}
}

func TestInitializeClearsCacheWhenProviderSaysSignedOut(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	seedCache(t, mem, testSession("u1", "chef@example.com"), &User{ID: "u1", Username: "chef"})

	client := newTestClient(t, newMockProvider(), newMockProfileStore(), mem)

	if err := client.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	st := client.State()
	if st.User != nil || st.Session != nil {
		t.Fatal("authoritative sign-out must clear restored cache")
	}
	user, sess := newStateStore(mem).load(ctx)
	if user != nil || sess != nil {
		t.Fatal("persisted cache must be cleared")
	}
}

func TestInitializeSlowProfileYieldsSessionOnlyUser(t *testing.T) {
	provider := newMockProvider()
	provider.session = testSession("u1", "chef@example.com")
	profiles := newMockProfileStore()
	profiles.profiles["u1"] = Profile{ID: "u1", Username: "chef_anna"}
	profiles.getDelay = time.Second

	client := newTestClient(t, provider, profiles, nil)

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	st := client.State()
	if st.Session == nil {
		t.Fatal("expected session")
	}
	if st.User == nil || !st.User.SessionOnly {
		t.Fatalf("expected session-only user, got %+v", st.User)
	}
	if st.User.Username != "chef" {
		t.Fatalf("derived username = %q", st.User.Username)
	}
}

func TestInitializeRecordsMetrics(t *testing.T) {
	provider := newMockProvider()
	provider.session = testSession("u1", "chef@example.com")
	client := newTestClient(t, provider, newMockProfileStore(), nil)

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if got := client.MetricsSnapshot().Counters[MetricInitSuccess]; got != 1 {
		t.Fatalf("MetricInitSuccess = %d, want 1", got)
	}
}
