// Server runs the auth HTTP API: password and Google login, token refresh,
// and session management. Configure via .env or environment variables.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"coursedesk/backend/internal/audit"
	auditrepo "coursedesk/backend/internal/audit/repository"
	"coursedesk/backend/internal/config"
	"coursedesk/backend/internal/db"
	healthhandler "coursedesk/backend/internal/health/handler"
	identityhandler "coursedesk/backend/internal/identity/handler"
	identityrepo "coursedesk/backend/internal/identity/repository"
	"coursedesk/backend/internal/identity/service"
	"coursedesk/backend/internal/oauth"
	"coursedesk/backend/internal/security"
	"coursedesk/backend/internal/server"
	"coursedesk/backend/internal/session"
	sessionrepo "coursedesk/backend/internal/session/repository"
	"coursedesk/backend/internal/telemetry"
	telemetryotel "coursedesk/backend/internal/telemetry/otel"
	"coursedesk/backend/internal/telemetry/producer"
	userrepo "coursedesk/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, server.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		logger.Fatal("otel setup", zap.Error(err))
	}
	providers.SetGlobal()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer database.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		logger.Fatal("jwt private key", zap.Error(err))
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		logger.Fatal("jwt public key", zap.Error(err))
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	users := userrepo.NewPostgresRepository(database)
	identities := identityrepo.NewPostgresRepository(database)
	sessions := session.NewStore(sessionrepo.NewPostgresRepository(database), cfg.RefreshTTL())
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(database))
	hasher := security.NewHasher(cfg.BcryptCost)

	authService := service.NewAuthService(users, identities, sessions, hasher, tokens, auditLogger)

	var states oauth.StateStore
	if cfg.RedisAddr != "" {
		states = oauth.NewRedisStateStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}
	oauthService := service.NewOAuthService(authService, oauth.NewHTTPProviderClient(nil), states, oauth.ProviderConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
	})

	emitters := telemetry.MultiEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		logger.Fatal("kafka producer", zap.Error(err))
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		emitters = append(emitters, kafkaProducer)
	}

	authHandler := identityhandler.NewAuthHandler(authService, oauthService, emitters, logger)
	healthHandler := healthhandler.NewHandler(database)

	router := server.NewRouter(logger, authHandler, healthHandler, tokens)
	srv := server.NewHTTPServer(router)

	logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
	if err := srv.Run(ctx, cfg.HTTPAddr); err != nil {
		logger.Error("http server", zap.Error(err))
	}

	// Let in-flight async telemetry emits finish before exporters shut down.
	time.Sleep(telemetry.ShutdownDrainDuration)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
