package authkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/platefeed/authkit/storage"
)

func signIn(t *testing.T, client *Client, provider *mockProvider) {
	t.Helper()

	provider.mu.Lock()
	provider.signInSession = testSession("u1", "chef@example.com")
	provider.mu.Unlock()

	if _, err := client.Login(context.Background(), "chef@example.com", "hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
}

func TestLogoutClearsStateImmediately(t *testing.T) {
	provider := newMockProvider()
	provider.signOutDelay = time.Hour

	mem := storage.NewMemory()
	client := newTestClient(t, provider, newMockProfileStore(), mem)
	signIn(t, client, provider)

	start := time.Now()
	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Logout blocked on remote sign-out: %v", elapsed)
	}

	st := client.State()
	if st.User != nil || st.Session != nil {
		t.Fatal("expected cleared state")
	}
	if client.SessionToken() != "" {
		t.Fatal("expected empty session token")
	}

	if _, err := mem.Get(context.Background(), storage.KeyUser); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("persisted user not cleared")
	}
	if _, err := mem.Get(context.Background(), storage.KeySession); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("persisted session not cleared")
	}
}

func TestLogoutRemoteFailureStaysSignedOut(t *testing.T) {
	provider := newMockProvider()
	provider.signOutErr = networkErr("sign out")

	client := newTestClient(t, provider, newMockProfileStore(), nil)
	signIn(t, client, provider)

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return provider.remoteSignOuts() == 1 })

	st := client.State()
	if st.User != nil || st.Session != nil {
		t.Fatal("remote failure must not resurrect the session")
	}
	waitFor(t, time.Second, func() bool {
		return client.MetricsSnapshot().Counters[MetricRemoteSignOutFailure] == 1
	})
}

func TestLogoutIssuesRemoteSignOut(t *testing.T) {
	provider := newMockProvider()
	client := newTestClient(t, provider, newMockProfileStore(), nil)
	signIn(t, client, provider)

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	waitFor(t, time.Second, func() bool { return provider.remoteSignOuts() == 1 })
}

func TestLogoutWhileSignedOutIsSafe(t *testing.T) {
	client := newTestClient(t, newMockProvider(), newMockProfileStore(), nil)

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if client.CurrentUser() != nil {
		t.Fatal("expected no user")
	}
}
