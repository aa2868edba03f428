package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"silver-jubilee-backend/middleware"
	"silver-jubilee-backend/services"
)

// RouterDeps regroupe tout ce dont les routes ont besoin
type RouterDeps struct {
	Log          *zap.Logger
	Slack        *services.SlackService
	Metrics      *services.Metrics
	CORSOrigins  []string
	JWTSecret    string
	AdminGuard   middleware.AdminAuthorizer
	Health       *HealthHandler
	Auth         *AuthHandler
	Registration *RegistrationHandler
	AdminReview  *AdminRegistrationHandler
	AdminAuth    *AdminAuthHandler
	Images       *ImageHandler
}

// NewRouter construit le routeur HTTP complet
func NewRouter(d RouterDeps) *mux.Router {
	router := mux.NewRouter()

	// Middlewares globaux
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(d.Log, d.Slack, d.Metrics))
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.UserIdentity(d.JWTSecret))

	// Santé et métriques
	router.HandleFunc("/health", d.Health.Health).Methods("GET")
	router.HandleFunc("/api/health", d.Health.Health).Methods("GET", "OPTIONS")
	router.Handle("/metrics", d.Metrics.Handler()).Methods("GET")

	// Authentification Google
	router.HandleFunc("/api/auth/google", d.Auth.Google).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/auth/me", d.Auth.Me).Methods("GET", "OPTIONS")

	// Inscription au jubilé
	router.HandleFunc("/api/event/register", d.Registration.Register).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/event/registration/me", d.Registration.GetMine).Methods("GET", "OPTIONS")

	// Session admin (login limité par le limiteur)
	router.HandleFunc("/api/admin/auth/login", d.AdminAuth.Login).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/admin/auth/logout", d.AdminAuth.Logout).Methods("POST", "OPTIONS")

	// Images: liste publique
	router.HandleFunc("/api/admin/images", d.Images.List).Methods("GET", "OPTIONS")

	requireAdmin := middleware.RequireAdmin(d.AdminGuard, d.Log)
	admin := func(h http.HandlerFunc) http.Handler { return requireAdmin(h) }

	router.Handle("/api/admin/images/upload", admin(d.Images.Upload)).Methods("POST", "OPTIONS")
	router.Handle("/api/admin/images/{id}", admin(d.Images.Delete)).Methods("DELETE", "OPTIONS")

	// Revue des inscriptions (admin)
	adminRouter := router.PathPrefix("/api/admin/event").Subrouter()
	adminRouter.Use(requireAdmin)
	adminRouter.HandleFunc("/registrations", d.AdminReview.List).Methods("GET", "OPTIONS")
	adminRouter.HandleFunc("/registrations/stats", d.AdminReview.Stats).Methods("GET", "OPTIONS")
	adminRouter.HandleFunc("/registrations/{id}/status", d.AdminReview.UpdateStatus).Methods("PATCH", "OPTIONS")

	return router
}
