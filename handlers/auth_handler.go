package handlers

import (
	"context"
	"net/http"

	"silver-jubilee-backend/apperrors"
	"silver-jubilee-backend/constants"
	"silver-jubilee-backend/middleware"
	"silver-jubilee-backend/models"
	"silver-jubilee-backend/utils"
)

// GoogleSignIn échange un credential Google contre un token applicatif
type GoogleSignIn interface {
	SignIn(ctx context.Context, credential string) (*models.AuthResponse, error)
}

// AuthHandler gère l'authentification Google des anciens élèves
type AuthHandler struct {
	signIn GoogleSignIn
}

// NewAuthHandler crée une nouvelle instance de AuthHandler
func NewAuthHandler(signIn GoogleSignIn) *AuthHandler {
	return &AuthHandler{signIn: signIn}
}

// Google gère POST /api/auth/google
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req models.GoogleAuthRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.signIn.SignIn(r.Context(), req.Credential)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

// Me gère GET /api/auth/me. Seul un token Bearer valide est accepté ici.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetTokenIdentityFromContext(r.Context())
	if identity == nil {
		utils.RespondAppError(w, apperrors.Clone(apperrors.ErrUnauthorized, constants.ErrNotAuthenticated))
		return
	}
	utils.RespondJSON(w, http.StatusOK, identity)
}
