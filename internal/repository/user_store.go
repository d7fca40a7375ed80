package repository

import (
	"context"
	"errors"
	"time"

	"auth-portal/internal/domain"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// UserStore define el contrato de persistencia para cuentas.
//
// Las operaciones Set*/MarkVerified/ResetPassword actualizan solo sus propios
// campos en una escritura atomica sobre un documento, asi dos flujos OTP
// concurrentes sobre la misma cuenta no se pisan.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (domain.Account, error)
	FindByID(ctx context.Context, id string) (domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
	SetVerifyOTP(ctx context.Context, id, code string, expiresAt time.Time) error
	SetResetOTP(ctx context.Context, id, code string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id string) error
	ResetPassword(ctx context.Context, id, passwordHash string) error
	Ping(ctx context.Context) error
}
