package authkit

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterSuccess(t *testing.T) {
	provider := newMockProvider()
	provider.signUpSession = testSession("u1", "anna@example.com")
	profiles := newMockProfileStore()

	client := newTestClient(t, provider, profiles, nil)

	user, err := client.Register(context.Background(), RegisterRequest{
		Username:  "chef_anna",
		Email:     "anna@example.com",
		Password:  "hunter2",
		FirstName: "Anna",
		LastName:  "Kowalski",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user == nil || user.Username != "chef_anna" || user.SessionOnly {
		t.Fatalf("user = %+v", user)
	}

	row, ok := profiles.profile("u1")
	if !ok {
		t.Fatal("profile row not created")
	}
	if row.ID != "u1" || row.Username != "chef_anna" || row.FirstName != "Anna" {
		t.Fatalf("row = %+v", row)
	}

	if provider.signUpCalls != 1 {
		t.Fatalf("signUpCalls = %d, want 1", provider.signUpCalls)
	}
	input := provider.signUpInputs[0]
	if input.Data["username"] != "chef_anna" || input.Data["first_name"] != "Anna" {
		t.Fatalf("sign-up metadata = %+v", input.Data)
	}

	if !client.Initialized() {
		t.Fatal("register must mark initialized")
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	client := newTestClient(t, newMockProvider(), newMockProfileStore(), nil)

	cases := []RegisterRequest{
		{Email: "a@b.c", Password: "pw"},
		{Username: "chef", Password: "pw"},
		{Username: "chef", Email: "a@b.c"},
		{Username: "   ", Email: "a@b.c", Password: "pw"},
	}
	for _, req := range cases {
		if _, err := client.Register(context.Background(), req); !errors.Is(err, ErrRegistrationInvalid) {
			t.Fatalf("Register(%+v) = %v, want ErrRegistrationInvalid", req, err)
		}
	}
}

func TestRegisterSignUpFailureSurfaces(t *testing.T) {
	provider := newMockProvider()
	provider.signUpErr = NewProviderError(KindConflict, "sign up", errors.New("email taken"))

	client := newTestClient(t, provider, newMockProfileStore(), nil)

	_, err := client.Register(context.Background(), RegisterRequest{
		Username: "chef", Email: "a@b.c", Password: "pw",
	})
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Kind != KindConflict {
		t.Fatalf("expected conflict error verbatim, got %v", err)
	}
	if client.CurrentUser() != nil {
		t.Fatal("failed registration must not set a user")
	}
}

func TestRegisterProfileInsertFailureKeepsUsername(t *testing.T) {
	provider := newMockProvider()
	provider.signUpSession = testSession("u1", "anna@example.com")
	profiles := newMockProfileStore()
	profiles.insertErr = errors.New("constraint violation")

	client := newTestClient(t, provider, profiles, nil)

	user, err := client.Register(context.Background(), RegisterRequest{
		Username: "chef_anna", Email: "anna@example.com", Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user == nil || !user.SessionOnly {
		t.Fatalf("expected session-only user, got %+v", user)
	}
	if user.Username != "chef_anna" {
		t.Fatalf("username = %q, want requested username kept", user.Username)
	}
	if client.SessionToken() != "access-u1" {
		t.Fatal("registration must still sign the user in")
	}
}
