package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"silver-jubilee-backend/apperrors"
	"silver-jubilee-backend/constants"
	"silver-jubilee-backend/middleware"
	"silver-jubilee-backend/models"
	"silver-jubilee-backend/services"
	"silver-jubilee-backend/utils"
)

// RegistrationWorkflow regroupe les opérations du workflow d'inscription
type RegistrationWorkflow interface {
	Submit(ctx context.Context, in services.SubmitInput) (*models.Registration, error)
	GetOwn(ctx context.Context, subjectID string) (*models.Registration, error)
	ListAll(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error)
	SetStatus(ctx context.Context, id string, status models.RegistrationStatus, actor, note string) (*models.Registration, error)
	Stats(ctx context.Context) (*models.RegistrationStats, error)
}

// multipartOverhead couvre les champs texte du formulaire
const multipartOverhead = 1 << 20

// RegistrationHandler gère l'inscription des anciens élèves
type RegistrationHandler struct {
	workflow RegistrationWorkflow
	maxBytes int64
	log      *zap.Logger
}

// NewRegistrationHandler crée une nouvelle instance de RegistrationHandler
func NewRegistrationHandler(workflow RegistrationWorkflow, maxReceiptBytes int64, log *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{workflow: workflow, maxBytes: maxReceiptBytes, log: log}
}

// Register gère POST /api/event/register (multipart)
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondAppError(w, apperrors.Validation(map[string]string{"receiptFile": "Receipt file is too large"}))
			return
		}
		utils.RespondError(w, http.StatusBadRequest, constants.ErrInvalidForm)
		return
	}
	defer r.MultipartForm.RemoveAll()

	form, fieldErr := registrationForm(r)
	if fieldErr != nil {
		utils.RespondAppError(w, fieldErr)
		return
	}

	receipt, contentType, err := readFormFile(r, h.maxBytes, "receipt", "receiptFile")
	if err != nil {
		h.log.Warn("⚠️  Lecture du reçu impossible", zap.Error(err))
		utils.RespondError(w, http.StatusBadRequest, constants.ErrInvalidForm)
		return
	}

	registration, err := h.workflow.Submit(r.Context(), services.SubmitInput{
		Identity:           submitterIdentity(r),
		Form:               form,
		Receipt:            receipt,
		ReceiptContentType: contentType,
	})
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, registration)
}

// GetMine gère GET /api/event/registration/me
func (h *RegistrationHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("oauthUid")
	if identity := middleware.GetIdentityFromContext(r.Context()); identity != nil {
		subjectID = identity.SubjectID
	} else if uid := r.Header.Get(constants.HeaderOAuthUID); uid != "" {
		subjectID = uid
	}

	registration, err := h.workflow.GetOwn(r.Context(), subjectID)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, registration)
}

// submitterIdentity: identité du middleware, sinon champs oauthUid/oauthEmail du formulaire
func submitterIdentity(r *http.Request) *models.Identity {
	if identity := middleware.GetIdentityFromContext(r.Context()); identity != nil {
		return identity
	}
	identity, ok := services.Normalize(services.Payload{
		UID:   r.FormValue("oauthUid"),
		Email: r.FormValue("oauthEmail"),
	})
	if !ok {
		return nil
	}
	return &identity
}

func registrationForm(r *http.Request) (services.RegistrationForm, error) {
	form := services.RegistrationForm{
		Name:             r.FormValue("name"),
		Batch:            r.FormValue("batch"),
		Contact:          r.FormValue("contact"),
		Email:            r.FormValue("email"),
		LinkedIn:         r.FormValue("linkedin"),
		ComingWithFamily: parseBool(r.FormValue("comingWithFamily")),
	}

	if raw := strings.TrimSpace(r.FormValue("familyMembers")); raw != "" && form.ComingWithFamily {
		if err := json.Unmarshal([]byte(raw), &form.FamilyMembers); err != nil {
			return form, apperrors.Validation(map[string]string{"familyMembers": constants.ErrInvalidFamilyJSON})
		}
	}
	return form, nil
}

// parseBool accepte les valeurs envoyées par un navigateur ("on", "true", "1")
func parseBool(raw string) bool {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "on" || raw == "yes" {
		return true
	}
	b, err := strconv.ParseBool(raw)
	return err == nil && b
}

// readFormFile lit le premier champ fichier présent parmi names.
// Un fichier absent retourne nil sans erreur, la validation métier tranche.
func readFormFile(r *http.Request, maxBytes int64, names ...string) ([]byte, string, error) {
	for _, name := range names {
		file, header, err := r.FormFile(name)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		defer file.Close()
		data, err := readLimited(file, maxBytes)
		return data, contentTypeOf(header), err
	}
	return nil, "", nil
}

// readLimited lit au plus maxBytes+1 octets: le contrôle de taille reste au media store
func readLimited(file multipart.File, maxBytes int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(file, maxBytes+1))
}

func contentTypeOf(header *multipart.FileHeader) string {
	if header == nil {
		return ""
	}
	return header.Header.Get(constants.HeaderContentType)
}
