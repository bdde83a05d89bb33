package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSessionIssueValidate(t *testing.T) {
	s, err := NewSessions("unit-test-secret", "")
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}

	signed, expiresAt, err := s.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expiry is not in the future: %v", expiresAt)
	}

	userID, err := s.Validate(signed)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("validated as %q, want user-1", userID)
	}
}

func TestSessionRejectsWrongSecret(t *testing.T) {
	issuer, err := NewSessions("secret-a", "")
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}
	verifier, err := NewSessions("secret-b", "")
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}

	signed, _, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Validate(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestSessionRejectsGarbage(t *testing.T) {
	s, err := NewSessions("unit-test-secret", "")
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}
	for _, token := range []string{"", "   ", "not-a-jwt", "aaa.bbb.ccc"} {
		if _, err := s.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Validate(%q): got %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestSessionExpiry(t *testing.T) {
	s := &Sessions{secret: []byte("unit-test-secret"), issuer: "cratevault", ttl: -time.Minute}

	signed, _, err := s.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := s.Validate(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired session accepted: %v", err)
	}
}

func TestSessionIssuerMismatch(t *testing.T) {
	a := &Sessions{secret: []byte("unit-test-secret"), issuer: "other-service", ttl: time.Hour}
	b := &Sessions{secret: []byte("unit-test-secret"), issuer: "cratevault", ttl: time.Hour}

	signed, _, err := a.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Validate(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign issuer accepted: %v", err)
	}
}

func TestNewSessionsRequiresSecret(t *testing.T) {
	if _, err := NewSessions("   ", ""); err == nil {
		t.Fatal("blank secret accepted")
	}
}
