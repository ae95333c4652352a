package utils

import "testing"

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "s3cret") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestNewRefreshTokenIsUnique(t *testing.T) {
	a, err := NewRefreshToken(7)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	b, err := NewRefreshToken(7)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if a.Raw == b.Raw {
		t.Error("two refresh tokens share the same raw value")
	}
	if len(a.Raw) != 96 {
		t.Errorf("raw length = %d, want 96 hex chars", len(a.Raw))
	}
	if HashRefreshRaw(a.Raw) == HashRefreshRaw(b.Raw) {
		t.Error("distinct tokens hash to the same value")
	}
}

func TestAccessTokenCarriesClaims(t *testing.T) {
	tok, err := NewAccessToken("test-secret", 42, "USER", 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if tok.Token == "" {
		t.Fatal("empty signed token")
	}
	if tok.Exp.IsZero() {
		t.Error("zero expiry")
	}
}
