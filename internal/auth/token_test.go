package auth

import (
	"net/http"
	"testing"
	"time"
)

var secret = []byte("test-secret")

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(secret, "usr_1", "redis", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != "usr_1" {
		t.Errorf("UserID = %q", claims.UserID)
	}
	if claims.Backend != "redis" {
		t.Errorf("Backend = %q", claims.Backend)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := IssueToken(secret, "usr_1", "sheets", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken([]byte("other"), token); err != ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := IssueToken(secret, "usr_1", "sheets", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(secret, token); err != ErrExpiredToken {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := ParseToken(secret, "not.a.token"); err != ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestBearerToken(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	if got := BearerToken(r); got != "" {
		t.Errorf("no header: got %q", got)
	}
	r.Header.Set("Authorization", "Bearer abc123")
	if got := BearerToken(r); got != "abc123" {
		t.Errorf("got %q", got)
	}
	r.Header.Set("Authorization", "Basic abc123")
	if got := BearerToken(r); got != "" {
		t.Errorf("non-bearer scheme: got %q", got)
	}
}

func TestHashTokenStable(t *testing.T) {
	if HashToken("a") != HashToken("a") {
		t.Error("hash not stable")
	}
	if HashToken("a") == HashToken("b") {
		t.Error("distinct tokens collided")
	}
}
