package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"auth-portal/internal/service"
)

const sessionClaimsKey = "session_claims"

// SessionMiddleware valida el token de sesion (cookie o Bearer) y guarda los
// claims en el contexto.
func SessionMiddleware(sessions *service.SessionTokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response{Message: "sessions not configured"})
			return
		}

		token := sessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response{Message: service.ErrSessionInvalid.Message})
			return
		}

		claims, err := sessions.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrStore) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, response{Message: messageFor(err)})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response{Message: service.ErrSessionInvalid.Message})
			return
		}

		c.Set(sessionClaimsKey, claims)
		c.Next()
	}
}

// GetSessionClaims obtiene los claims de sesion desde el contexto.
func GetSessionClaims(c *gin.Context) (service.SessionClaims, bool) {
	val, ok := c.Get(sessionClaimsKey)
	if !ok {
		return service.SessionClaims{}, false
	}
	claims, ok := val.(service.SessionClaims)
	return claims, ok
}

// sessionToken prioriza la cookie y cae al header Authorization.
func sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(sessionCookieName); err == nil && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token)
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > len("Bearer ") && strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}
