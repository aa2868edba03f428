package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"silver-jubilee-backend/constants"
	"silver-jubilee-backend/models"
	"silver-jubilee-backend/utils"
)

// AdminAuthorizer valide un token de session admin
type AdminAuthorizer interface {
	Authorize(token string) (*models.AdminIdentity, error)
}

// RequireAdmin vérifie que l'appelant porte une session admin valide.
// Le token vient du header Authorization, sinon du cookie adminToken.
func RequireAdmin(auth AdminAuthorizer, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := auth.Authorize(adminToken(r))
			if err != nil {
				log.Debug("⚠️  Accès admin refusé",
					zap.String("path", r.URL.Path),
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err),
				)
				utils.RespondAppError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), adminContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminFromContext retourne l'admin authentifié, nil hors des routes protégées
func GetAdminFromContext(ctx context.Context) *models.AdminIdentity {
	identity, ok := ctx.Value(adminContextKey).(*models.AdminIdentity)
	if !ok {
		return nil
	}
	return identity
}

func adminToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(constants.AdminTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
