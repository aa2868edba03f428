package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"silver-jubilee-backend/config"
	"silver-jubilee-backend/database"
	"silver-jubilee-backend/handlers"
	"silver-jubilee-backend/logger"
	"silver-jubilee-backend/services"
)

func main() {
	// Charger la configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Erreur lors du chargement de la configuration: %v", err)
	}

	zlog, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("❌ Erreur lors de l'initialisation du logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Connexion à MongoDB
	if err := database.Connect(cfg.MongoURI, cfg.MongoDB, zlog); err != nil {
		zlog.Fatal("❌ Erreur de connexion à MongoDB", zap.Error(err))
	}
	defer database.Close()

	ctx := context.Background()
	metrics := services.NewMetrics()
	slack := services.NewSlackService(cfg.SlackURL, zlog)

	// Limiteur de connexion admin: Redis si configuré, sinon mémoire
	limiter, redisClient := newLoginLimiter(ctx, cfg, zlog)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Firebase Cloud Messaging (optionnel)
	fcmService, err := services.NewFCMService(ctx, cfg.Firebase, zlog)
	if err != nil {
		zlog.Warn("⚠️  Le serveur démarre SANS notifications admin", zap.Error(err))
		fcmService = services.NewDisabledFCMService(zlog)
	}

	// Vérification des ID tokens Google. Sans client ID, la connexion Google est refusée.
	var verifier services.TokenVerifier
	if cfg.GoogleClientID == "" {
		zlog.Warn("⚠️  GOOGLE_CLIENT_ID non configuré - connexion Google désactivée")
	} else if googleVerifier, err := services.NewGoogleVerifier(ctx, cfg.GoogleClientID); err != nil {
		zlog.Warn("⚠️  Vérificateur Google indisponible", zap.Error(err))
	} else {
		verifier = googleVerifier
	}

	media := services.NewCloudinaryStore(cfg.Media, zlog)

	// Services
	registrationService := services.NewRegistrationService(
		database.NewRegistrationRepository(database.DB), media, fcmService, cfg, metrics, zlog)
	imageService := services.NewImageService(database.NewImageRepository(database.DB), media, metrics, zlog)
	adminAuthService := services.NewAdminAuthService(
		database.NewAdminRepository(database.DB), limiter, cfg.AdminJWTSecret, cfg.AdminTokenTTL, zlog, metrics)
	googleAuthService := services.NewGoogleAuthService(verifier, cfg.JWTSecret, cfg.UserTokenTTL, zlog)

	router := handlers.NewRouter(handlers.RouterDeps{
		Log:          zlog,
		Slack:        slack,
		Metrics:      metrics,
		CORSOrigins:  cfg.CORSOrigins,
		JWTSecret:    cfg.JWTSecret,
		AdminGuard:   adminAuthService,
		Health:       handlers.NewHealthHandler(cfg.Environment, database.Ping),
		Auth:         handlers.NewAuthHandler(googleAuthService),
		Registration: handlers.NewRegistrationHandler(registrationService, media.MaxBytes(), zlog),
		AdminReview:  handlers.NewAdminRegistrationHandler(registrationService),
		AdminAuth:    handlers.NewAdminAuthHandler(adminAuthService, cfg.IsProduction(), cfg.TrustProxy),
		Images:       handlers.NewImageHandler(imageService, media.MaxBytes(), zlog),
	})

	// Démarrer le serveur
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zlog.Info("🚀 Serveur démarré",
			zap.String("addr", addr),
			zap.String("env", cfg.Environment),
			zap.Strings("cors_origins", cfg.CORSOrigins),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("❌ Erreur du serveur", zap.Error(err))
		}
	}()

	// Attendre le signal d'arrêt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("🛑 Arrêt du serveur...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("❌ Erreur lors de l'arrêt du serveur", zap.Error(err))
	}
	zlog.Info("✓ Serveur arrêté proprement")
}

// newLoginLimiter choisit le backend du limiteur. Redis injoignable au démarrage: repli mémoire.
func newLoginLimiter(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (services.LoginLimiter, *redis.Client) {
	if cfg.RedisURL == "" {
		zlog.Info("limiteur de connexion admin en mémoire")
		return services.NewMemoryLoginLimiter(cfg.Login.MaxFailures, cfg.Login.Window), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zlog.Warn("⚠️  REDIS_URL invalide, limiteur en mémoire", zap.Error(err))
		return services.NewMemoryLoginLimiter(cfg.Login.MaxFailures, cfg.Login.Window), nil
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		zlog.Warn("⚠️  Redis injoignable, limiteur en mémoire", zap.Error(err))
		_ = client.Close()
		return services.NewMemoryLoginLimiter(cfg.Login.MaxFailures, cfg.Login.Window), nil
	}

	zlog.Info("✓ Limiteur de connexion admin sur Redis")
	return services.NewRedisLoginLimiter(client, cfg.Login.MaxFailures, cfg.Login.Window), client
}
