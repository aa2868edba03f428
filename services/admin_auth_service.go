package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"silver-jubilee-backend/apperrors"
	"silver-jubilee-backend/database"
	"silver-jubilee-backend/models"
	"silver-jubilee-backend/utils"
)

// AdminStore est la persistance des comptes admin
type AdminStore interface {
	Create(ctx context.Context, admin *models.AdminCredential) error
	FindByUsername(ctx context.Context, username string) (*models.AdminCredential, error)
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	UpdatePassword(ctx context.Context, username, passwordHash string) (bool, error)
}

// Messages renvoyés au panneau admin
const (
	msgInvalidCredentials = "Invalid credentials"
	msgNoAdminToken       = "Admin authentication required"
	msgAdminTokenExpired  = "Admin token expired"
	msgInvalidAdminToken  = "Invalid admin token"
	msgAdminOnly          = "Admin access required"
)

// AdminAuthService émet et vérifie les sessions admin
type AdminAuthService struct {
	store   AdminStore
	limiter LoginLimiter
	secret  string
	ttl     time.Duration
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewAdminAuthService crée une nouvelle instance de AdminAuthService
func NewAdminAuthService(store AdminStore, limiter LoginLimiter, secret string, ttl time.Duration, log *zap.Logger, metrics *Metrics) *AdminAuthService {
	return &AdminAuthService{
		store:   store,
		limiter: limiter,
		secret:  secret,
		ttl:     ttl,
		log:     log,
		metrics: metrics,
		now:     time.Now,
	}
}

// TokenTTL retourne la durée de vie d'une session admin
func (s *AdminAuthService) TokenTTL() time.Duration {
	return s.ttl
}

// Login vérifie les identifiants et émet un token de session.
// Utilisateur inconnu et mauvais mot de passe donnent la même réponse.
func (s *AdminAuthService) Login(ctx context.Context, username, password, clientKey string) (*models.AdminLoginResponse, error) {
	retry, err := s.limiter.Check(ctx, clientKey)
	if err != nil {
		// Redis indisponible: on laisse passer pour ne pas verrouiller les admins
		s.log.Error("❌ Limiteur de connexion indisponible", zap.Error(err))
	}
	if retry > 0 {
		s.metrics.ObserveAdminLogin("blocked")
		s.log.Warn("⚠️  Connexion admin bloquée", zap.String("client", clientKey), zap.Duration("retry_after", retry))
		return nil, &LoginBlockedError{RetryAfter: retry}
	}

	username = strings.TrimSpace(username)
	admin, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}

	hash := ""
	if admin != nil {
		hash = admin.PasswordHash
	}
	if username == "" || !utils.CheckPassword(hash, password) {
		if err := s.limiter.RecordFailure(ctx, clientKey); err != nil {
			s.log.Error("❌ Impossible d'enregistrer l'échec de connexion", zap.Error(err))
		}
		s.metrics.ObserveAdminLogin("failure")
		s.log.Info("connexion admin refusée", zap.String("username", username), zap.String("client", clientKey))
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, msgInvalidCredentials)
	}

	token, err := utils.GenerateAdminToken(admin.ID.Hex(), admin.Username, s.secret, s.ttl)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}

	if err := s.store.UpdateLastLogin(ctx, admin.ID, s.now()); err != nil {
		s.log.Warn("⚠️  Dernière connexion non enregistrée", zap.Error(err))
	}

	s.metrics.ObserveAdminLogin("success")
	s.log.Info("✓ Connexion admin", zap.String("username", admin.Username))
	return &models.AdminLoginResponse{Token: token, ExpiresIn: int64(s.ttl.Seconds())}, nil
}

// Authorize vérifie un token admin extrait de l'en-tête ou du cookie
func (s *AdminAuthService) Authorize(token string) (*models.AdminIdentity, error) {
	if token == "" {
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, msgNoAdminToken)
	}

	claims, err := utils.ValidateAdminToken(token, s.secret)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return nil, apperrors.Wrap(err, apperrors.ErrUnauthorized, msgAdminTokenExpired)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrUnauthorized, msgInvalidAdminToken)
	}
	if !claims.HasAdminRole() {
		return nil, apperrors.Clone(apperrors.ErrForbidden, msgAdminOnly)
	}

	return &models.AdminIdentity{ID: claims.AdminID, Username: claims.Username, Role: utils.RoleAdmin}, nil
}

// EnsureAdmin crée le compte, ou remplace son mot de passe si reset est demandé
func (s *AdminAuthService) EnsureAdmin(ctx context.Context, username, password string, reset bool) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, fmt.Errorf("le nom d'utilisateur est requis")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return false, err
	}

	err = s.store.Create(ctx, &models.AdminCredential{Username: username, PasswordHash: hash})
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, database.ErrDuplicate) {
		return false, err
	}
	if !reset {
		return false, fmt.Errorf("l'admin %s existe déjà", username)
	}
	if _, err := s.store.UpdatePassword(ctx, username, hash); err != nil {
		return false, err
	}
	return false, nil
}
