package middleware

import (
	"context"
	"net/http"
	"strings"

	"silver-jubilee-backend/constants"
	"silver-jubilee-backend/models"
	"silver-jubilee-backend/services"
	"silver-jubilee-backend/utils"
)

type contextKey string

const (
	identityContextKey contextKey = "identity"
	adminContextKey    contextKey = "admin"
	requestIDKey       contextKey = "request_id"
)

// UserIdentity résout l'identité de l'appelant sans jamais refuser la requête.
// Ordre: token utilisateur Bearer, puis en-têtes x-oauth-uid / x-oauth-email.
func UserIdentity(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity, fromToken, ok := resolveIdentity(r, jwtSecret); ok {
				resolved := &resolvedIdentity{identity: identity, fromToken: fromToken}
				r = r.WithContext(context.WithValue(r.Context(), identityContextKey, resolved))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type resolvedIdentity struct {
	identity  models.Identity
	fromToken bool
}

func resolveIdentity(r *http.Request, jwtSecret string) (models.Identity, bool, bool) {
	if token := bearerToken(r); token != "" {
		if claims, err := utils.ValidateToken(token, jwtSecret); err == nil {
			identity, ok := services.Normalize(services.Payload{
				Sub:     claims.SubjectID,
				Email:   claims.Email,
				Name:    claims.Name,
				Picture: claims.Picture,
			})
			if ok {
				return identity, true, true
			}
		}
	}
	identity, ok := services.Normalize(services.Payload{
		UID:   r.Header.Get(constants.HeaderOAuthUID),
		Email: r.Header.Get(constants.HeaderOAuthEmail),
	})
	return identity, false, ok
}

// GetIdentityFromContext retourne l'identité résolue, nil si inconnue
func GetIdentityFromContext(ctx context.Context) *models.Identity {
	resolved, ok := ctx.Value(identityContextKey).(*resolvedIdentity)
	if !ok {
		return nil
	}
	identity := resolved.identity
	return &identity
}

// GetTokenIdentityFromContext ne retourne que l'identité issue d'un token signé
func GetTokenIdentityFromContext(ctx context.Context) *models.Identity {
	resolved, ok := ctx.Value(identityContextKey).(*resolvedIdentity)
	if !ok || !resolved.fromToken {
		return nil
	}
	identity := resolved.identity
	return &identity
}

// bearerToken extrait le token du header "Authorization: Bearer <token>"
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get(constants.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
