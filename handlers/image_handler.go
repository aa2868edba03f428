package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"silver-jubilee-backend/apperrors"
	"silver-jubilee-backend/constants"
	"silver-jubilee-backend/models"
	"silver-jubilee-backend/services"
	"silver-jubilee-backend/utils"
)

// ImageManager gère les images du site
type ImageManager interface {
	List(ctx context.Context, category string) ([]models.Image, error)
	Upload(ctx context.Context, data []byte, contentType, category string) (*models.Image, error)
	Delete(ctx context.Context, id string) error
}

// ImageHandler expose la gestion des images du panneau admin
type ImageHandler struct {
	images   ImageManager
	maxBytes int64
	log      *zap.Logger
}

// NewImageHandler crée une nouvelle instance de ImageHandler
func NewImageHandler(images ImageManager, maxBytes int64, log *zap.Logger) *ImageHandler {
	return &ImageHandler{images: images, maxBytes: maxBytes, log: log}
}

// uploadedImage est la réponse d'upload attendue par le panneau admin
type uploadedImage struct {
	ID       string               `json:"_id"`
	URL      string               `json:"url"`
	Category models.ImageCategory `json:"category"`
}

// List gère GET /api/admin/images (public)
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	images, err := h.images.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, images)
}

// Upload gère POST /api/admin/images/upload.
// Accepte un multipart (image + category) ou une data URL base64 dans le champ image.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// une data URL base64 prend ~4/3 de la taille binaire
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes*4/3+multipartOverhead)

	var (
		data        []byte
		contentType string
		category    string
		err         error
	)

	if strings.HasPrefix(r.Header.Get(constants.HeaderContentType), "multipart/") {
		if err := r.ParseMultipartForm(h.maxBytes + multipartOverhead); err != nil {
			h.respondParseError(w, err)
			return
		}
		defer r.MultipartForm.RemoveAll()
		category = r.FormValue("category")
		data, contentType, err = readFormFile(r, h.maxBytes, "image")
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, constants.ErrInvalidForm)
			return
		}
		if data == nil {
			data, contentType, err = h.dataURL(r.FormValue("image"))
		}
	} else {
		var body struct {
			Image    string `json:"image"`
			Category string `json:"category"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		category = body.Category
		data, contentType, err = h.dataURL(body.Image)
	}
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	image, err := h.images.Upload(r.Context(), data, contentType, category)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, uploadedImage{ID: image.ID.Hex(), URL: image.URL, Category: image.Category})
}

// Delete gère DELETE /api/admin/images/{id}
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.images.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, models.OKResponse{OK: true})
}

// dataURL décode le repli base64. Champ vide: rien à décoder, la validation tranche.
func (h *ImageHandler) dataURL(raw string) ([]byte, string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, "", nil
	}
	data, contentType, err := services.DecodeDataURL(raw)
	if err != nil {
		return nil, "", apperrors.Validation(map[string]string{"image": "Image must be a base64 data URL"})
	}
	return data, contentType, nil
}

func (h *ImageHandler) respondParseError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		utils.RespondAppError(w, apperrors.Validation(map[string]string{"image": "File too large (max 8MB)"}))
		return
	}
	utils.RespondError(w, http.StatusBadRequest, constants.ErrInvalidForm)
}
