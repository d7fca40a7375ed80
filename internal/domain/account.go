package domain

import "time"

// Account es el registro de credenciales de un usuario.
type Account struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	IsVerified         bool       `json:"is_verified"`
	VerifyOTP          string     `json:"-"`
	VerifyOTPExpiresAt *time.Time `json:"-"`
	ResetOTP           string     `json:"-"`
	ResetOTPExpiresAt  *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HasVerifyOTP indica si hay un codigo de verificacion pendiente.
func (a Account) HasVerifyOTP() bool {
	return a.VerifyOTP != "" && a.VerifyOTPExpiresAt != nil
}

// HasResetOTP indica si hay un codigo de reseteo pendiente.
func (a Account) HasResetOTP() bool {
	return a.ResetOTP != "" && a.ResetOTPExpiresAt != nil
}
