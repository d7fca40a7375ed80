package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	AppName  string `env:"APP_NAME" envDefault:"Security Portal"`

	JWTSecret        string        `env:"JWT_SECRET,required"`
	JWTIssuer        string        `env:"JWT_ISSUER" envDefault:"auth-portal"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	OTPTTL           time.Duration `env:"OTP_TTL" envDefault:"5m"`
	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"10"`
	OperationTimeout time.Duration `env:"OPERATION_TIMEOUT" envDefault:"10s"`

	StoreDriver     string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	MongoURI        string        `env:"MONGODB_URI"`
	MongoDatabase   string        `env:"MONGODB_DATABASE" envDefault:"Authentication-System"`
	MongoConnectTTL time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`

	SMTPHost             string `env:"SMTP_HOST"`
	SMTPPort             int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser             string `env:"SMTP_USER"`
	SMTPPass             string `env:"SMTP_PASS"`
	SMTPUseTLS           bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL"`
	SenderName           string `env:"SENDER_NAME"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

var ErrInvalidConfig = errors.New("invalid config")

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que las etiquetas env no pueden expresar.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", ErrInvalidConfig)
	}
	if c.SessionTTL <= 0 || c.OTPTTL <= 0 || c.OperationTimeout <= 0 {
		return fmt.Errorf("%w: durations must be positive", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for postgres store", ErrInvalidConfig)
		}
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("%w: MONGODB_URI is required for mongo store", ErrInvalidConfig)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}

// IsProduction indica si las cookies deben viajar con Secure y SameSite=None.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
