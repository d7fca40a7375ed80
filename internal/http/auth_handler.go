package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auth-portal/internal/service"
)

// response es el cuerpo de todas las respuestas de la API.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// AuthHandler expone AuthService sobre HTTP.
type AuthHandler struct {
	logger  *zap.Logger
	auth    *service.AuthService
	cookies CookieConfig
}

func NewAuthHandler(logger *zap.Logger, auth *service.AuthService, cookies CookieConfig) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		logger:  logger,
		auth:    auth,
		cookies: cookies,
	}
}

// Register maneja POST /register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.bind(c, &req) {
		return
	}

	session, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	// La cuenta y la sesion existen aunque falle el correo de bienvenida.
	if session.Token != "" {
		h.cookies.set(c, session.Token)
	}
	if err != nil {
		h.writeError(c, "register", err)
		return
	}
	c.JSON(http.StatusOK, response{Success: true})
}

// Login maneja POST /login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.bind(c, &req) {
		return
	}

	session, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, "login", err)
		return
	}
	h.cookies.set(c, session.Token)
	c.JSON(http.StatusOK, response{Success: true})
}

// Logout maneja POST /logout. Nunca falla.
func (h *AuthHandler) Logout(c *gin.Context) {
	res := h.auth.Logout(c.Request.Context(), sessionToken(c))
	h.cookies.clear(c)
	c.JSON(http.StatusOK, response{Success: true, Message: res.Message})
}

// SendVerifyOTP maneja POST /send-verify-otp (requiere sesion).
func (h *AuthHandler) SendVerifyOTP(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response{Message: service.ErrSessionInvalid.Message})
		return
	}
	res, err := h.auth.SendVerifyOTP(c.Request.Context(), claims.UserID)
	if err != nil {
		h.writeError(c, "send verify otp", err)
		return
	}
	c.JSON(http.StatusOK, response{Success: true, Message: res.Message})
}

// VerifyEmail maneja POST /verify-email (requiere sesion).
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response{Message: service.ErrSessionInvalid.Message})
		return
	}
	var req struct {
		OTP string `json:"otp"`
	}
	if !h.bind(c, &req) {
		return
	}
	res, err := h.auth.VerifyEmail(c.Request.Context(), claims.UserID, req.OTP)
	if err != nil {
		h.writeError(c, "verify email", err)
		return
	}
	c.JSON(http.StatusOK, response{Success: true, Message: res.Message})
}

// IsAuthenticated maneja POST /is-auth: si el middleware dejo pasar, hay sesion.
func (h *AuthHandler) IsAuthenticated(c *gin.Context) {
	claims, _ := GetSessionClaims(c)
	res := h.auth.IsAuthenticated(c.Request.Context(), claims.UserID)
	c.JSON(http.StatusOK, response{Success: true, Message: res.Message})
}

// SendPasswordResetOTP maneja POST /send-password-reset-otp.
func (h *AuthHandler) SendPasswordResetOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if !h.bind(c, &req) {
		return
	}
	res, err := h.auth.SendPasswordResetOTP(c.Request.Context(), req.Email)
	if err != nil {
		h.writeError(c, "send password reset otp", err)
		return
	}
	c.JSON(http.StatusOK, response{Success: true, Message: res.Message})
}

// ResetPassword maneja POST /reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"newPassword"`
	}
	if !h.bind(c, &req) {
		return
	}
	res, err := h.auth.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		Email:       req.Email,
		OTP:         req.OTP,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.writeError(c, "reset password", err)
		return
	}
	c.JSON(http.StatusOK, response{Success: true, Message: res.Message})
}

// Health maneja GET /healthz.
func (h *AuthHandler) Health(c *gin.Context) {
	if err := h.auth.Health(c.Request.Context()); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, response{Message: "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, response{Success: true})
}

// bind acepta cuerpo vacio: los campos faltantes los reporta el servicio.
func (h *AuthHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid request body", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusBadRequest, response{Message: "Invalid request body"})
		return false
	}
	return true
}

func (h *AuthHandler) writeError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("auth request failed", zap.String("op", op), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, response{Message: messageFor(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrExpired):
		return http.StatusGone
	case errors.Is(err, service.ErrDelivery):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	var domainErr *service.Error
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return "Something went wrong, try again later"
}
