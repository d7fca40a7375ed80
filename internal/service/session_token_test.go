package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type errRevoker struct {
	noopSessionRevoker
	err error
}

func (r errRevoker) IsRevoked(context.Context, SessionClaims) (bool, error) {
	return false, r.err
}

func TestSessionTokenService_IssueVerify(t *testing.T) {
	svc := NewSessionTokenService("secret", 7*24*time.Hour, "auth-portal", nil)

	session, err := svc.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if session.Token == "" {
		t.Fatalf("expected token")
	}
	if d := time.Until(session.ExpiresAt); d < 7*24*time.Hour-time.Minute || d > 7*24*time.Hour {
		t.Fatalf("expected 7 day expiry, got %v", d)
	}

	claims, err := svc.Verify(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Subject != "u1" || claims.Issuer != "auth-portal" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" || claims.IssuedAtMs == 0 {
		t.Fatalf("expected jti and iat_ms, got %+v", claims)
	}
}

func TestSessionTokenService_UniqueTokenIDs(t *testing.T) {
	svc := NewSessionTokenService("secret", time.Hour, "", nil)
	a, _ := svc.Issue("u1")
	b, _ := svc.Issue("u1")
	ca, _ := svc.Verify(context.Background(), a.Token)
	cb, _ := svc.Verify(context.Background(), b.Token)
	if ca.ID == cb.ID {
		t.Fatalf("expected distinct token ids")
	}
}

func TestSessionTokenService_Rejects(t *testing.T) {
	svc := NewSessionTokenService("secret", time.Hour, "auth-portal", nil)
	valid, err := svc.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	otherKey, _ := NewSessionTokenService("other-secret", time.Hour, "auth-portal", nil).Issue("u1")
	otherIssuer, _ := NewSessionTokenService("secret", time.Hour, "someone-else", nil).Issue("u1")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "auth-portal",
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"tampered":     valid.Token + "x",
		"wrong key":    otherKey.Token,
		"wrong issuer": otherIssuer.Token,
		"alg none":     noneToken,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(context.Background(), token)
			if !errors.Is(err, ErrSessionInvalid) {
				t.Fatalf("expected ErrSessionInvalid, got %v", err)
			}
			if !errors.Is(err, ErrAuth) {
				t.Fatalf("expected auth kind, got %v", err)
			}
		})
	}
}

func TestSessionTokenService_Expired(t *testing.T) {
	svc := NewSessionTokenService("secret", time.Hour, "auth-portal", nil)
	session, err := svc.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	base := time.Now().UTC()
	svc.now = func() time.Time { return base.Add(2 * time.Hour) }

	if _, err := svc.Verify(context.Background(), session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestSessionTokenService_MissingSecret(t *testing.T) {
	svc := NewSessionTokenService("", time.Hour, "auth-portal", nil)
	if _, err := svc.Issue("u1"); err == nil {
		t.Fatalf("expected error without signing key")
	}
	if _, err := svc.Verify(context.Background(), "a.b.c"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestSessionTokenService_RevokerFailureIsStoreError(t *testing.T) {
	svc := NewSessionTokenService("secret", time.Hour, "auth-portal", errRevoker{err: errors.New("redis down")})
	session, _ := svc.Issue("u1")

	_, err := svc.Verify(context.Background(), session.Token)
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

func TestSessionTokenService_Revoke(t *testing.T) {
	revoker := newMemoryRevoker()
	svc := NewSessionTokenService("secret", time.Hour, "auth-portal", revoker)
	a, _ := svc.Issue("u1")
	b, _ := svc.Issue("u1")

	claims, err := svc.Verify(context.Background(), a.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.Revoke(context.Background(), claims); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Verify(context.Background(), a.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected revoked token, got %v", err)
	}
	if _, err := svc.Verify(context.Background(), b.Token); err != nil {
		t.Fatalf("expected sibling token still valid, got %v", err)
	}
}
