package security

import (
	"strings"
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidateAccess(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}

	token, expiresAt, err := p.IssueAccess("user-42", "teacher", "sess-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if token == "" {
		t.Fatal("IssueAccess returned empty token")
	}
	if until := time.Until(expiresAt); until < 14*time.Minute || until > 16*time.Minute {
		t.Errorf("expiresAt %v not ~15m out", expiresAt)
	}

	userID, role, sessionID, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if userID != "user-42" || role != "teacher" || sessionID != "sess-1" {
		t.Errorf("claims = (%q, %q, %q)", userID, role, sessionID)
	}
}

func TestTokenProvider_RejectsTampered(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, _, err := p.IssueAccess("user-1", "student", "sess-2")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected JWT shape: %q", token)
	}
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, _, _, err := p.ValidateAccess(tampered); err == nil {
		t.Error("ValidateAccess should reject tampered token")
	}

	if _, _, _, err := p.ValidateAccess("not-a-jwt"); err == nil {
		t.Error("ValidateAccess should reject malformed token")
	}
}

func TestTokenProvider_RejectsWrongIssuerAudience(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}

	other := NewTokenProvider(signer, pub, "other-issuer", "other-audience", 15*time.Minute)
	token, _, err := other.IssueAccess("user-1", "admin", "sess-3")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	p := NewTokenProvider(signer, pub, "test-issuer", "test-audience", 15*time.Minute)
	if _, _, _, err := p.ValidateAccess(token); err == nil {
		t.Error("ValidateAccess should reject token from a different issuer/audience")
	}
}

func TestTokenProvider_RejectsExpired(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	p := NewTokenProvider(signer, pub, "test-issuer", "test-audience", -1*time.Minute)
	token, _, err := p.IssueAccess("user-1", "student", "sess-4")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, _, _, err := p.ValidateAccess(token); err == nil {
		t.Error("ValidateAccess should reject expired token")
	}
}
