package util

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	tok, err := GenerateJWT("JD42", "secret", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sub, err := ParseJWT(tok, "secret", time.Now())
	if err != nil || sub != "JD42" {
		t.Fatalf("parse: sub=%q err=%v", sub, err)
	}
	if _, err := ParseJWT(tok, "other", time.Now()); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for a wrong secret, got %v", err)
	}
}

func TestJWTExpired(t *testing.T) {
	tok, _ := GenerateJWT("JD42", "secret", time.Minute, time.Now().Add(-time.Hour))
	if _, err := ParseJWT(tok, "secret", time.Now()); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/tasks", nil)
	if ExtractToken(r) != "" {
		t.Error("expected empty token")
	}
	r.Header.Set("Authorization", "Bearer abc.def")
	if got := ExtractToken(r); got != "abc.def" {
		t.Errorf("got %q", got)
	}
	r.Header.Set("Authorization", "Basic xyz")
	if ExtractToken(r) != "" {
		t.Error("non-bearer scheme must be ignored")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !IsHashed(hash) || !CheckPassword("hunter2", hash) || CheckPassword("hunter3", hash) {
		t.Fatal("bcrypt verification failed")
	}
	if !CheckPassword("plain", "plain") || CheckPassword("plain", "Plain") {
		t.Fatal("legacy plaintext must compare exactly")
	}
}
