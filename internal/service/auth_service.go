package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"auth-portal/internal/domain"
	"auth-portal/internal/email"
	"auth-portal/internal/repository"
)

// AuthService coordina registro, login y los flujos OTP de verificacion de
// email y reseteo de contraseña. No guarda estado entre requests: todo el
// estado durable vive en el UserStore.
type AuthService struct {
	logger   *zap.Logger
	users    repository.UserStore
	notifier email.Notifier
	hasher   PasswordHasher
	otps     OTPGenerator
	sessions *SessionTokenService
	appName  string
	otpTTL   time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// AuthOptions agrupa los parametros de configuracion de AuthService.
type AuthOptions struct {
	AppName          string
	OTPTTL           time.Duration
	OperationTimeout time.Duration
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserStore,
	notifier email.Notifier,
	hasher PasswordHasher,
	otps OTPGenerator,
	sessions *SessionTokenService,
	opts AuthOptions,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = email.NewDisabledSender("email sender not configured")
	}
	if otps == nil {
		otps = NewOTPGenerator()
	}
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 5 * time.Minute
	}
	if opts.AppName == "" {
		opts.AppName = "Security Portal"
	}
	return &AuthService{
		logger:   logger,
		users:    users,
		notifier: notifier,
		hasher:   hasher,
		otps:     otps,
		sessions: sessions,
		appName:  opts.AppName,
		otpTTL:   opts.OTPTTL,
		timeout:  opts.OperationTimeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Result es la respuesta de una operacion exitosa.
type Result struct {
	Message string
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type ResetPasswordInput struct {
	Email       string
	OTP         string
	NewPassword string
}

// Register crea la cuenta, emite la sesion y envia el correo de bienvenida.
// Si el correo falla la cuenta y la sesion quedan creadas: se devuelven junto
// al error de entrega.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (Session, error) {
	name := strings.TrimSpace(input.Name)
	emailAddr := normalizeEmail(input.Email)
	if name == "" || emailAddr == "" || input.Password == "" {
		return Session{}, newError(KindValidation, "Missing Details", nil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.users.FindByEmail(ctx, emailAddr)
	if err == nil {
		return Session{}, newError(KindConflict, "User already exists!", nil)
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return Session{}, s.storeError("find account by email", err)
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return Session{}, err
	}

	now := s.now()
	account := domain.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        emailAddr,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Save(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return Session{}, newError(KindConflict, "User already exists!", err)
		}
		return Session{}, s.storeError("save account", err)
	}

	session, err := s.issueSession(account.ID)
	if err != nil {
		return Session{}, err
	}

	msg, err := email.WelcomeMessage(s.appName, account.Name, account.Email)
	if err != nil {
		return session, s.internalError("render welcome email", err)
	}
	if err := s.deliver(ctx, account.Email, msg, "welcome"); err != nil {
		return session, err
	}
	return session, nil
}

// Login no exige cuenta verificada.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (Session, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" || input.Password == "" {
		return Session{}, newError(KindValidation, "Email and Password are required", nil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return Session{}, newError(KindNotFound, "Invalid E-mail", nil)
		}
		return Session{}, s.storeError("find account by email", err)
	}

	ok, err := s.hasher.Verify(account.PasswordHash, input.Password)
	if err != nil {
		return Session{}, s.internalError("verify password", err)
	}
	if !ok {
		return Session{}, newError(KindAuth, "Invalid Password", nil)
	}

	return s.issueSession(account.ID)
}

// Logout siempre tiene exito. Con un revocador configurado ademas invalida
// el token presentado; sin el, la sesion solo muere al borrar la cookie.
func (s *AuthService) Logout(ctx context.Context, token string) Result {
	if strings.TrimSpace(token) != "" {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()
		if claims, err := s.sessions.Verify(ctx, token); err == nil {
			if err := s.sessions.Revoke(ctx, claims); err != nil {
				s.logger.Warn("revoke session failed", zap.Error(err), zap.String("user_id", claims.UserID))
			}
		}
	}
	return Result{Message: "Logged Out"}
}

// SendVerifyOTP requiere una sesion valida: userID viene del middleware.
func (s *AuthService) SendVerifyOTP(ctx context.Context, userID string) (Result, error) {
	if strings.TrimSpace(userID) == "" {
		return Result{}, newError(KindValidation, "Missing Details", nil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return Result{}, newError(KindNotFound, "User not found", nil)
		}
		return Result{}, s.storeError("find account by id", err)
	}
	if account.IsVerified {
		return Result{}, newError(KindConflict, "Account already verified.", nil)
	}

	code, err := s.otps.Generate()
	if err != nil {
		return Result{}, s.internalError("generate otp", err)
	}
	if err := s.users.SetVerifyOTP(ctx, account.ID, code, s.now().Add(s.otpTTL)); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return Result{}, newError(KindNotFound, "User not found", nil)
		}
		return Result{}, s.storeError("store verify otp", err)
	}

	msg, err := email.VerifyOTPMessage(s.appName, account.Name, account.Email, code, s.otpTTL)
	if err != nil {
		return Result{}, s.internalError("render verify otp email", err)
	}
	if err := s.deliver(ctx, account.Email, msg, "verify_otp"); err != nil {
		return Result{}, err
	}
	return Result{Message: "Verification OTP sent on email: " + account.Email}, nil
}

// VerifyEmail compara el codigo antes que la expiracion: un codigo erroneo
// siempre es "Invalid OTP", aunque tambien este vencido.
func (s *AuthService) VerifyEmail(ctx context.Context, userID, otp string) (Result, error) {
	if strings.TrimSpace(userID) == "" || otp == "" {
		return Result{}, newError(KindValidation, "Missing Details", nil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return Result{}, newError(KindNotFound, "No user found", nil)
		}
		return Result{}, s.storeError("find account by id", err)
	}

	if !otpMatches(account.VerifyOTP, otp) {
		return Result{}, newError(KindAuth, "Invalid OTP", nil)
	}
	if s.expired(account.VerifyOTPExpiresAt) {
		return Result{}, newError(KindExpired, "OTP expired", nil)
	}

	if err := s.users.MarkVerified(ctx, account.ID); err != nil {
		return Result{}, s.storeError("mark account verified", err)
	}
	return Result{Message: "E-mail verified successfully"}, nil
}

// IsAuthenticated solo confirma que el middleware resolvio una identidad.
func (s *AuthService) IsAuthenticated(_ context.Context, _ string) Result {
	return Result{}
}

// SendPasswordResetOTP no requiere sesion: el usuario puede haber perdido el acceso.
func (s *AuthService) SendPasswordResetOTP(ctx context.Context, emailAddr string) (Result, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return Result{}, newError(KindValidation, "E-mail is required", nil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return Result{}, newError(KindNotFound, "User not found", nil)
		}
		return Result{}, s.storeError("find account by email", err)
	}

	code, err := s.otps.Generate()
	if err != nil {
		return Result{}, s.internalError("generate otp", err)
	}
	if err := s.users.SetResetOTP(ctx, account.ID, code, s.now().Add(s.otpTTL)); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return Result{}, newError(KindNotFound, "User not found", nil)
		}
		return Result{}, s.storeError("store reset otp", err)
	}

	msg, err := email.ResetOTPMessage(s.appName, account.Name, account.Email, code, s.otpTTL)
	if err != nil {
		return Result{}, s.internalError("render reset otp email", err)
	}
	if err := s.deliver(ctx, account.Email, msg, "reset_otp"); err != nil {
		return Result{}, err
	}
	return Result{Message: "OTP to reset password is sent to email " + account.Email}, nil
}

// ResetPassword aplica las mismas comprobaciones que VerifyEmail sobre el
// codigo de reseteo, guarda la nueva contraseña y limpia el codigo.
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) (Result, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" || input.OTP == "" || input.NewPassword == "" {
		return Result{}, newError(KindValidation, "Email, OTP, and new password are required", nil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return Result{}, newError(KindNotFound, "User not found", nil)
		}
		return Result{}, s.storeError("find account by email", err)
	}

	if !otpMatches(account.ResetOTP, input.OTP) {
		return Result{}, newError(KindAuth, "Invalid OTP", nil)
	}
	if s.expired(account.ResetOTPExpiresAt) {
		return Result{}, newError(KindExpired, "OTP expired", nil)
	}

	hash, err := s.hashPassword(input.NewPassword)
	if err != nil {
		return Result{}, err
	}
	if err := s.users.ResetPassword(ctx, account.ID, hash); err != nil {
		return Result{}, s.storeError("reset password", err)
	}

	// La contraseña ya cambio; un fallo al revocar no debe deshacerlo.
	if err := s.sessions.RevokeAllFor(ctx, account.ID); err != nil {
		s.logger.Warn("revoke sessions after password reset failed", zap.Error(err), zap.String("user_id", account.ID))
	}
	return Result{Message: "Password has been reset successfully"}, nil
}

// Health verifica la conectividad con el store.
func (s *AuthService) Health(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.users.Ping(ctx)
}

func (s *AuthService) issueSession(userID string) (Session, error) {
	session, err := s.sessions.Issue(userID)
	if err != nil {
		return Session{}, s.internalError("issue session", err)
	}
	return session, nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, ErrPasswordTooLong) {
		return "", newError(KindValidation, "Password is too long", err)
	}
	if err != nil {
		return "", s.internalError("hash password", err)
	}
	return hash, nil
}

// deliver envia el correo despues de persistir el estado. Un fallo no
// revierte lo persistido.
func (s *AuthService) deliver(ctx context.Context, to string, msg email.Message, kind string) error {
	if err := s.notifier.Send(ctx, to, msg.Subject, msg.HTML); err != nil {
		s.logger.Warn("send email failed", zap.Error(err), zap.String("email", to), zap.String("kind", kind))
		if errors.Is(err, context.DeadlineExceeded) {
			return newError(KindDelivery, msgTimeout, err)
		}
		return newError(KindDelivery, msgEmailFailure, err)
	}
	return nil
}

func (s *AuthService) storeError(op string, err error) error {
	s.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindStore, msgTimeout, err)
	}
	return newError(KindStore, msgGenericFailure, err)
}

func (s *AuthService) internalError(op string, err error) error {
	s.logger.Error("auth operation failed", zap.String("op", op), zap.Error(err))
	return newError(KindInternal, msgGenericFailure, err)
}

func (s *AuthService) expired(expiresAt *time.Time) bool {
	return expiresAt == nil || s.now().After(*expiresAt)
}

func (s *AuthService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
