package repository

import (
	"context"
	"sync"
	"time"

	"auth-portal/internal/domain"
)

// MemoryUserStore guarda cuentas en memoria. Pensado para desarrollo local.
type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.Account
	byEmail map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryUserStore) FindByID(_ context.Context, id string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byID[id]
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (s *MemoryUserStore) Save(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.byEmail[account.Email]; ok && owner != account.ID {
		return ErrEmailTaken
	}
	if prev, ok := s.byID[account.ID]; ok && prev.Email != account.Email {
		delete(s.byEmail, prev.Email)
	}
	account.UpdatedAt = time.Now().UTC()
	s.byID[account.ID] = account
	s.byEmail[account.Email] = account.ID
	return nil
}

func (s *MemoryUserStore) SetVerifyOTP(_ context.Context, id, code string, expiresAt time.Time) error {
	return s.update(id, func(a *domain.Account) {
		a.VerifyOTP = code
		a.VerifyOTPExpiresAt = &expiresAt
	})
}

func (s *MemoryUserStore) SetResetOTP(_ context.Context, id, code string, expiresAt time.Time) error {
	return s.update(id, func(a *domain.Account) {
		a.ResetOTP = code
		a.ResetOTPExpiresAt = &expiresAt
	})
}

func (s *MemoryUserStore) MarkVerified(_ context.Context, id string) error {
	return s.update(id, func(a *domain.Account) {
		a.IsVerified = true
		a.VerifyOTP = ""
		a.VerifyOTPExpiresAt = nil
	})
}

func (s *MemoryUserStore) ResetPassword(_ context.Context, id, passwordHash string) error {
	return s.update(id, func(a *domain.Account) {
		a.PasswordHash = passwordHash
		a.ResetOTP = ""
		a.ResetOTPExpiresAt = nil
	})
}

func (s *MemoryUserStore) Ping(_ context.Context) error {
	return nil
}

func (s *MemoryUserStore) update(id string, fn func(a *domain.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	fn(&account)
	account.UpdatedAt = time.Now().UTC()
	s.byID[id] = account
	return nil
}
