package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const sessionCookieName = "token"

// CookieConfig define los atributos de la cookie de sesion.
type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// NewCookieConfig usa Secure + SameSite=None en produccion (front en otro
// dominio) y SameSite=Strict en desarrollo.
func NewCookieConfig(production bool, maxAge time.Duration) CookieConfig {
	cfg := CookieConfig{
		Name:     sessionCookieName,
		Secure:   production,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	}
	if production {
		cfg.SameSite = http.SameSiteNoneMode
	}
	return cfg
}

func (cc CookieConfig) set(c *gin.Context, token string) {
	c.SetSameSite(cc.SameSite)
	c.SetCookie(cc.Name, token, int(cc.MaxAge/time.Second), "/", "", cc.Secure, true)
}

// clear repite los mismos atributos; si no, el navegador no reemplaza la cookie.
func (cc CookieConfig) clear(c *gin.Context) {
	c.SetSameSite(cc.SameSite)
	c.SetCookie(cc.Name, "", -1, "/", "", cc.Secure, true)
}
