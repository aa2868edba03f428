package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"silver-jubilee-backend/services"
)

// responseWriter wrapper pour capturer le code de statut
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// isCriticalError indique les erreurs à remonter sur Slack: 5xx et 403
func isCriticalError(statusCode int) bool {
	return statusCode >= http.StatusInternalServerError || statusCode == http.StatusForbidden
}

// Logging journalise chaque requête, alimente les métriques HTTP et notifie Slack
// pour les erreurs critiques
func Logging(log *zap.Logger, slack *services.SlackService, metrics *services.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			route := routeTemplate(r)
			metrics.ObserveHTTPRequest(r.Method, route, rw.statusCode, duration)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", duration),
				zap.String("request_id", GetRequestID(r.Context())),
			}

			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				log.Error("❌ Requête en erreur", fields...)
			case rw.statusCode >= http.StatusBadRequest:
				log.Warn("⚠️ Requête refusée", fields...)
			default:
				log.Debug("requête", fields...)
			}

			if !isCriticalError(rw.statusCode) {
				return
			}
			info := services.RequestInfo{
				Method:    r.Method,
				Path:      r.URL.Path,
				Status:    rw.statusCode,
				RequestID: GetRequestID(r.Context()),
				Origin:    r.Header.Get("Origin"),
				UserAgent: r.UserAgent(),
			}
			// Un 403 avec Origin est très probablement un refus CORS
			if rw.statusCode == http.StatusForbidden && info.Origin != "" {
				slack.SendCORSError(info)
				return
			}
			slack.SendCriticalError(info)
		})
	}
}

// routeTemplate retourne le modèle de route mux pour borner la cardinalité des labels
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
