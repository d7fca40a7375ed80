package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auth-portal/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas de auth.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	sessions *service.SessionTokenService,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", authH.Health)

	r.POST("/register", authH.Register)
	r.POST("/login", authH.Login)
	r.POST("/logout", authH.Logout)
	r.POST("/send-password-reset-otp", authH.SendPasswordResetOTP)
	r.POST("/reset-password", authH.ResetPassword)

	protected := r.Group("/", SessionMiddleware(sessions))
	protected.POST("/send-verify-otp", authH.SendVerifyOTP)
	protected.POST("/verify-email", authH.VerifyEmail)
	protected.POST("/is-auth", authH.IsAuthenticated)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
