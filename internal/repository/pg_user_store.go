package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"auth-portal/internal/domain"
)

// pgxPool es el subconjunto de pgxpool.Pool que usa el store.
type pgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PgUserStore implementa UserStore usando pgxpool.
type PgUserStore struct {
	pool pgxPool
}

func NewPgUserStore(pool pgxPool) *PgUserStore {
	return &PgUserStore{pool: pool}
}

const accountColumns = `id, name, email, password_hash, is_verified,
		verify_otp, verify_otp_expires_at, reset_otp, reset_otp_expires_at,
		created_at, updated_at`

func (r *PgUserStore) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserStore) FindByID(ctx context.Context, id string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserStore) Save(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO accounts (id, name, email, password_hash, is_verified,
			verify_otp, verify_otp_expires_at, reset_otp, reset_otp_expires_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			is_verified = EXCLUDED.is_verified,
			verify_otp = EXCLUDED.verify_otp,
			verify_otp_expires_at = EXCLUDED.verify_otp_expires_at,
			reset_otp = EXCLUDED.reset_otp,
			reset_otp_expires_at = EXCLUDED.reset_otp_expires_at,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.IsVerified,
		account.VerifyOTP,
		account.VerifyOTPExpiresAt,
		account.ResetOTP,
		account.ResetOTPExpiresAt,
		account.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *PgUserStore) SetVerifyOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	const query = `
		UPDATE accounts
		SET verify_otp = $2, verify_otp_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, code, expiresAt)
}

func (r *PgUserStore) SetResetOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	const query = `
		UPDATE accounts
		SET reset_otp = $2, reset_otp_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, code, expiresAt)
}

func (r *PgUserStore) MarkVerified(ctx context.Context, id string) error {
	const query = `
		UPDATE accounts
		SET is_verified = TRUE, verify_otp = '', verify_otp_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id)
}

func (r *PgUserStore) ResetPassword(ctx context.Context, id, passwordHash string) error {
	const query = `
		UPDATE accounts
		SET password_hash = $2, reset_otp = '', reset_otp_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, passwordHash)
}

func (r *PgUserStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PgUserStore) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PgUserStore) scanOne(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&a.IsVerified,
		&a.VerifyOTP,
		&a.VerifyOTPExpiresAt,
		&a.ResetOTP,
		&a.ResetOTPExpiresAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
