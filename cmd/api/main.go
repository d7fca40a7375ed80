package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"auth-portal/internal/config"
	"auth-portal/internal/db"
	"auth-portal/internal/email"
	apihttp "auth-portal/internal/http"
	"auth-portal/internal/repository"
	"auth-portal/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	users, closeStore, err := newUserStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("user store init", zap.Error(err), zap.String("driver", cfg.StoreDriver))
	}
	defer closeStore()

	notifier := newNotifier(cfg, logger)

	revoker, closeRedis := newSessionRevoker(ctx, cfg, logger)
	defer closeRedis()

	sessions := service.NewSessionTokenService(cfg.JWTSecret, cfg.SessionTTL, cfg.JWTIssuer, revoker)
	authSvc := service.NewAuthService(
		logger,
		users,
		notifier,
		service.NewBcryptHasher(cfg.BcryptCost),
		service.NewOTPGenerator(),
		sessions,
		service.AuthOptions{
			AppName:          cfg.AppName,
			OTPTTL:           cfg.OTPTTL,
			OperationTimeout: cfg.OperationTimeout,
		},
	)
	authHandler := apihttp.NewAuthHandler(logger, authSvc, apihttp.NewCookieConfig(cfg.IsProduction(), sessions.TTL()))
	router := apihttp.NewRouter(logger, authHandler, sessions)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.AppEnv))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newUserStore elige el backend segun STORE_DRIVER y devuelve su cierre.
func newUserStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.UserStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, database, err := db.NewMongoDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Warn("mongo disconnect", zap.Error(err))
			}
		}
		store := repository.NewMongoUserStore(database)
		if err := store.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		logger.Info("using mongo user store", zap.String("database", cfg.MongoDatabase))
		return store, closeFn, nil

	case config.StoreDriverMemory:
		logger.Warn("using in-memory user store, accounts are lost on restart")
		return repository.NewMemoryUserStore(), func() {}, nil

	default:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("using postgres user store")
		return repository.NewPgUserStore(pool), pool.Close, nil
	}
}

// newNotifier prioriza Postmark, luego SMTP; sin ninguno los envios fallan
// con DeliveryError pero el estado se persiste igual.
func newNotifier(cfg *config.Config, logger *zap.Logger) email.Notifier {
	if cfg.PostmarkServerToken != "" {
		sender, err := email.NewPostmarkSender(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.SenderEmail, cfg.SenderName)
		if err == nil {
			return sender
		}
		logger.Warn("postmark sender init failed", zap.Error(err))
	}
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SenderEmail, cfg.SenderName, cfg.SMTPUseTLS)
		if err == nil {
			return sender
		}
		logger.Warn("smtp sender init failed", zap.Error(err))
	}
	logger.Warn("email sender not configured")
	return email.NewDisabledSender("email sender not configured")
}

// newSessionRevoker activa la revocacion en Redis solo si REDIS_ADDR esta
// definido y responde al ping.
func newSessionRevoker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.SessionRevoker, func()) {
	if cfg.RedisAddr == "" {
		return service.NewNoopSessionRevoker(), func() {}
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctxPing).Err(); err != nil {
		logger.Warn("redis ping failed, session revocation disabled", zap.Error(err))
		_ = redisClient.Close()
		return service.NewNoopSessionRevoker(), func() {}
	}
	logger.Info("session revocation enabled", zap.String("redis_addr", cfg.RedisAddr))
	return service.NewRedisSessionRevoker(redisClient), func() { _ = redisClient.Close() }
}
