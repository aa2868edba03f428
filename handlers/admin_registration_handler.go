package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"silver-jubilee-backend/middleware"
	"silver-jubilee-backend/models"
	"silver-jubilee-backend/utils"
)

// AdminRegistrationHandler expose la revue des inscriptions au panneau admin
type AdminRegistrationHandler struct {
	workflow RegistrationWorkflow
}

// NewAdminRegistrationHandler crée une nouvelle instance de AdminRegistrationHandler
func NewAdminRegistrationHandler(workflow RegistrationWorkflow) *AdminRegistrationHandler {
	return &AdminRegistrationHandler{workflow: workflow}
}

// List gère GET /api/admin/event/registrations?status=
func (h *AdminRegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.RegistrationFilter{
		Status: models.RegistrationStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))),
	}
	registrations, err := h.workflow.ListAll(r.Context(), filter)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, registrations)
}

// Stats gère GET /api/admin/event/registrations/stats
func (h *AdminRegistrationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.workflow.Stats(r.Context())
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, stats)
}

// UpdateStatus gère PATCH /api/admin/event/registrations/{id}/status
func (h *AdminRegistrationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	actor := "admin"
	if admin := middleware.GetAdminFromContext(r.Context()); admin != nil {
		actor = admin.Username
	}

	registration, err := h.workflow.SetStatus(r.Context(), mux.Vars(r)["id"], req.Status, actor, req.Note)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, registration)
}
