package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const msgNotAuthorized = "Not Authorized. Login Again"

var (
	ErrSessionInvalid = &Error{Kind: KindAuth, Message: msgNotAuthorized}
	ErrSessionExpired = &Error{Kind: KindAuth, Message: "Session expired. Login Again"}
	ErrSessionRevoked = &Error{Kind: KindAuth, Message: "Session revoked. Login Again"}
)

// Session es un token firmado listo para viajar en la cookie.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// SessionClaims son los claims del token de sesion.
type SessionClaims struct {
	UserID     string `json:"uid"`
	IssuedAtMs int64  `json:"iat_ms"`
	jwt.RegisteredClaims
}

// SessionTokenService emite y valida tokens de sesion sin estado.
type SessionTokenService struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoker SessionRevoker
	now     func() time.Time
}

func NewSessionTokenService(secret string, ttl time.Duration, issuer string, revoker SessionRevoker) *SessionTokenService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if strings.TrimSpace(issuer) == "" {
		issuer = "auth-portal"
	}
	if revoker == nil {
		revoker = NewNoopSessionRevoker()
	}
	return &SessionTokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		issuer:  issuer,
		revoker: revoker,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// TTL es la vida maxima de un token; tambien la usa la cookie.
func (s *SessionTokenService) TTL() time.Duration {
	return s.ttl
}

func (s *SessionTokenService) Issue(userID string) (Session, error) {
	if len(s.secret) == 0 {
		return Session{}, errors.New("session signing key not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return Session{}, errors.New("session subject is required")
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := SessionClaims{
		UserID:     userID,
		IssuedAtMs: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify valida firma, emisor y expiracion, y consulta el revocador.
func (s *SessionTokenService) Verify(ctx context.Context, tokenString string) (SessionClaims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return SessionClaims{}, ErrSessionInvalid
	}
	var claims SessionClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrSessionExpired
		}
		return SessionClaims{}, ErrSessionInvalid
	}
	if strings.TrimSpace(claims.UserID) == "" || claims.Subject != claims.UserID {
		return SessionClaims{}, ErrSessionInvalid
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims)
	if err != nil {
		return SessionClaims{}, newError(KindStore, msgGenericFailure, err)
	}
	if revoked {
		return SessionClaims{}, ErrSessionRevoked
	}
	return claims, nil
}

// Revoke invalida un token concreto hasta su expiracion natural.
func (s *SessionTokenService) Revoke(ctx context.Context, claims SessionClaims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	remaining := claims.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	return s.revoker.RevokeToken(ctx, claims.ID, remaining)
}

// RevokeAllFor invalida todos los tokens emitidos hasta ahora para userID.
func (s *SessionTokenService) RevokeAllFor(ctx context.Context, userID string) error {
	return s.revoker.RevokeUser(ctx, userID, s.now(), s.ttl)
}
