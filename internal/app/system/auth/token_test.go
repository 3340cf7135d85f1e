package auth

import (
	"testing"
	"time"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)
	tok, exp, err := ti.Issue(&SessionUser{ID: "abc", Role: "user", Email: "x@example.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 59*time.Minute {
		t.Errorf("unexpected expiry %v", exp)
	}
	c, err := ti.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Subject != "abc" || c.Role != "user" || c.Email != "x@example.com" {
		t.Errorf("claims = %+v", c)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Minute)
	base := time.Now()
	ti.now = func() time.Time { return base }
	tok, _, err := ti.Issue(&SessionUser{ID: "abc"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ti.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := ti.Parse(tok); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	tok, _, _ := NewTokenIssuer("one", time.Hour).Issue(&SessionUser{ID: "abc"})
	if _, err := NewTokenIssuer("two", time.Hour).Parse(tok); err == nil {
		t.Error("expected signature mismatch")
	}
}

func TestNewTokenIssuer_EmptySecretDisables(t *testing.T) {
	if NewTokenIssuer("", time.Hour) != nil {
		t.Error("expected nil issuer")
	}
}
