package middleware

import (
	"net/http"
	"strings"

	"silver-jubilee-backend/constants"
	"silver-jubilee-backend/utils"
)

var corsAllowedHeaders = strings.Join([]string{
	constants.HeaderContentType,
	constants.HeaderAuthorization,
	constants.HeaderRequestID,
	constants.HeaderOAuthUID,
	constants.HeaderOAuthEmail,
}, ", ")

// CORS gère les en-têtes CORS. Une origine présente mais non autorisée est refusée en 403.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && !isOriginAllowed(origin, allowedOrigins) {
				utils.RespondError(w, http.StatusForbidden, constants.ErrOriginNotAllowed)
				return
			}

			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			w.Header().Set("Access-Control-Expose-Headers", "Retry-After, "+constants.HeaderRequestID)
			w.Header().Set("Access-Control-Max-Age", "3600")

			// Gérer les requêtes OPTIONS (preflight)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed compare l'origine exacte, "*" autorise tout
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
