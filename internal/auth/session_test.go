package auth

import (
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestSessionRoundTrip(t *testing.T) {
	cookie, err := IssueSessionCookie("user-42", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	uid, err := VerifySessionCookie(cookie, testSecret)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if uid != "user-42" {
		t.Fatalf("expected user-42, got %q", uid)
	}
}

func TestVerifyRejectsEmptyCookie(t *testing.T) {
	if _, err := VerifySessionCookie("", testSecret); err == nil {
		t.Fatal("expected error for empty cookie")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	cookie, err := IssueSessionCookie("user-42", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	other := []byte("ffffffffffffffffffffffffffffffff")
	if _, err := VerifySessionCookie(cookie, other); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestVerifyRejectsExpiredCookie(t *testing.T) {
	cookie, err := IssueSessionCookie("user-42", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := VerifySessionCookie(cookie, testSecret); err == nil {
		t.Fatal("expected error for expired cookie")
	}
}
