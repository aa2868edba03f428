package handlers

import (
	"net/http"
	"runtime"
	"time"

	"silver-jubilee-backend/utils"
)

var startTime = time.Now()

// HealthHandler gère les endpoints de santé
type HealthHandler struct {
	environment string
	ping        func() error
}

// NewHealthHandler crée un nouveau HealthHandler. ping vérifie la base, nil si absente.
func NewHealthHandler(environment string, ping func() error) *HealthHandler {
	return &HealthHandler{environment: environment, ping: ping}
}

// Health retourne l'état de santé du serveur. La base indisponible donne un 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(startTime).Round(time.Second).String()

	status, dbStatus, code := "ok", "ok", http.StatusOK
	if h.ping == nil || h.ping() != nil {
		status, dbStatus, code = "degraded", "error", http.StatusServiceUnavailable
	}

	utils.RespondJSON(w, code, map[string]interface{}{
		"status":     status,
		"env":        h.environment,
		"database":   "MongoDB",
		"db_status":  dbStatus,
		"uptime":     uptime,
		"go_version": runtime.Version(),
	})
}
