package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionRevoker guarda revocaciones de sesiones. Sin revocador las sesiones
// son puramente sin estado y logout solo borra la cookie del cliente.
type SessionRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	RevokeUser(ctx context.Context, userID string, at time.Time, ttl time.Duration) error
	IsRevoked(ctx context.Context, claims SessionClaims) (bool, error)
}

type noopSessionRevoker struct{}

func NewNoopSessionRevoker() SessionRevoker {
	return noopSessionRevoker{}
}

func (noopSessionRevoker) RevokeToken(context.Context, string, time.Duration) error { return nil }

func (noopSessionRevoker) RevokeUser(context.Context, string, time.Time, time.Duration) error {
	return nil
}

func (noopSessionRevoker) IsRevoked(context.Context, SessionClaims) (bool, error) { return false, nil }

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

type redisSessionRevoker struct {
	client redisKV
	prefix string
}

// NewRedisSessionRevoker guarda jti revocados y marcas "revocado antes de"
// por usuario, ambos con TTL para que Redis los limpie solo.
func NewRedisSessionRevoker(client *redis.Client) SessionRevoker {
	if client == nil {
		return NewNoopSessionRevoker()
	}
	return &redisSessionRevoker{
		client: client,
		prefix: "auth:session:",
	}
}

func (r *redisSessionRevoker) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.tokenKey(tokenID), "1", ttl).Err()
}

func (r *redisSessionRevoker) RevokeUser(ctx context.Context, userID string, at time.Time, ttl time.Duration) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return r.client.Set(ctx, r.userKey(userID), strconv.FormatInt(at.UnixMilli(), 10), ttl).Err()
}

func (r *redisSessionRevoker) IsRevoked(ctx context.Context, claims SessionClaims) (bool, error) {
	vals, err := r.client.MGet(ctx, r.tokenKey(claims.ID), r.userKey(claims.UserID)).Result()
	if err != nil {
		return false, err
	}
	if len(vals) > 0 && vals[0] != nil {
		return true, nil
	}
	if len(vals) > 1 && vals[1] != nil {
		raw, ok := vals[1].(string)
		if !ok {
			return false, nil
		}
		before, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return false, err
		}
		return claims.IssuedAtMs <= before, nil
	}
	return false, nil
}

func (r *redisSessionRevoker) tokenKey(tokenID string) string {
	return r.prefix + "revoked:" + tokenID
}

func (r *redisSessionRevoker) userKey(userID string) string {
	return r.prefix + "revoked_before:" + userID
}
