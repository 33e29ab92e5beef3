package authpw

import (
	"context"
	"errors"
	"testing"

	"daymark/api/internal/store"
)

type fakeUserStore struct {
	users map[string]store.User // by email
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]store.User)}
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := f.users[email]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (f *fakeUserStore) CreateUser(_ context.Context, user store.User) error {
	f.users[user.Email] = user
	return nil
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpRequest{
		Email:    "Someone@Example.com",
		Password: "correct horse",
		Timezone: "Europe/Helsinki",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if user.Email != "someone@example.com" {
		t.Errorf("email not normalized: %q", user.Email)
	}
	if user.PasswordHash == "correct horse" || user.PasswordHash == "" {
		t.Error("password stored unhashed")
	}
	if user.Timezone != "Europe/Helsinki" {
		t.Errorf("timezone = %q", user.Timezone)
	}

	got, err := svc.SignIn(ctx, "someone@example.com", "correct horse")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("signed in as %q, want %q", got.ID, user.ID)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "a@b.c", Password: "longenough"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.SignUp(ctx, SignUpRequest{Email: "a@b.c", Password: "longenough"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestSignUpShortPassword(t *testing.T) {
	svc := NewService(newFakeUserStore())
	if _, err := svc.SignUp(context.Background(), SignUpRequest{Email: "a@b.c", Password: "short"}); err == nil {
		t.Error("expected validation error")
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "a@b.c", Password: "longenough"}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SignIn(ctx, "a@b.c", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := svc.SignIn(ctx, "missing@b.c", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v", err)
	}
}
