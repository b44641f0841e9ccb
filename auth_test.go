package main

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T, password string) *Auth {
	t.Helper()
	cfg := DefaultConfig().Auth
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			t.Fatal(err)
		}
		cfg.AdminPasswordHash = string(hash)
	}
	return NewAuth(cfg, nil, zaptest.NewLogger(t))
}

func TestTokenRoundTrip(t *testing.T) {
	a := newTestAuth(t, "")
	id, tok, err := a.IssueGuest()
	if err != nil {
		t.Fatal(err)
	}
	if !uuidRegex.MatchString(id) {
		t.Errorf("guest id %q is not a v4 uuid", id)
	}
	got, err := a.ValidateToken(tok)
	if err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Errorf("got %q, want %q", got, id)
	}
}

func TestTokenRejected(t *testing.T) {
	a := newTestAuth(t, "")
	tok, _ := a.IssueToken("p1")

	if _, err := a.ValidateToken(tok + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("tampered token: got %v", err)
	}

	other := newTestAuth(t, "")
	other.jwtSecret = []byte("another-secret-entirely")
	if _, err := other.ValidateToken(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign secret: got %v", err)
	}

	a.tokenTTL = -time.Minute
	expired, _ := a.IssueToken("p1")
	if _, err := a.ValidateToken(expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v", err)
	}

	blank := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	s, _ := blank.SignedString(a.jwtSecret)
	if _, err := a.ValidateToken(s); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token without pid: got %v", err)
	}
}

func TestCheckAdmin(t *testing.T) {
	a := newTestAuth(t, "hunter2")
	if err := a.CheckAdmin("admin", "hunter2", "10.0.0.1"); err != nil {
		t.Errorf("valid credentials rejected: %v", err)
	}
	if err := a.CheckAdmin("admin", "wrong", "10.0.0.1"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if err := a.CheckAdmin("root", "hunter2", "10.0.0.1"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong user: got %v", err)
	}

	disabled := newTestAuth(t, "")
	if err := disabled.CheckAdmin("admin", "", "10.0.0.1"); !errors.Is(err, ErrAdminDisabled) {
		t.Errorf("expected disabled, got %v", err)
	}
}

func TestCheckAdminRateLimit(t *testing.T) {
	a := newTestAuth(t, "hunter2")
	for i := 0; i < maxAdminAttempts; i++ {
		a.CheckAdmin("admin", "wrong", "10.0.0.2")
	}
	if err := a.CheckAdmin("admin", "hunter2", "10.0.0.2"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected rate limit, got %v", err)
	}
	if err := a.CheckAdmin("admin", "hunter2", "10.0.0.3"); err != nil {
		t.Errorf("other IP should not be limited: %v", err)
	}
}

func TestSecretPersisted(t *testing.T) {
	db := openTestDB(t)
	log := zaptest.NewLogger(t)
	first := loadOrCreateSecret("", db, log)
	second := loadOrCreateSecret("", db, log)
	if string(first) != string(second) || len(first) != 32 {
		t.Error("generated secret should be persisted and reused")
	}
	if got := loadOrCreateSecret("plain-secret", db, log); string(got) != "plain-secret" {
		t.Errorf("configured secret should win, got %q", got)
	}
}
