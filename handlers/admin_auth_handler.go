package handlers

import (
	"context"
	"net/http"
	"time"

	"silver-jubilee-backend/constants"
	"silver-jubilee-backend/models"
	"silver-jubilee-backend/utils"
)

// AdminAuthenticator ouvre une session admin
type AdminAuthenticator interface {
	Login(ctx context.Context, username, password, clientKey string) (*models.AdminLoginResponse, error)
	TokenTTL() time.Duration
}

// AdminAuthHandler gère la connexion au panneau admin
type AdminAuthHandler struct {
	auth         AdminAuthenticator
	secureCookie bool
	trustProxy   bool
}

// NewAdminAuthHandler crée une nouvelle instance de AdminAuthHandler.
// secureCookie est activé en production.
func NewAdminAuthHandler(auth AdminAuthenticator, secureCookie, trustProxy bool) *AdminAuthHandler {
	return &AdminAuthHandler{auth: auth, secureCookie: secureCookie, trustProxy: trustProxy}
}

// Login gère POST /api/admin/auth/login
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Username, req.Password, ClientKey(r, h.trustProxy))
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	http.SetCookie(w, h.cookie(resp.Token, int(h.auth.TokenTTL().Seconds())))
	utils.RespondJSON(w, http.StatusOK, resp)
}

// Logout gère POST /api/admin/auth/logout. Le token reste valide jusqu'à expiration.
func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookie("", -1))
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AdminAuthHandler) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     constants.AdminTokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
