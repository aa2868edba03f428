package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"silver-jubilee-backend/apperrors"
	"silver-jubilee-backend/models"
)

// ImageStore est la partie du repository d'images utilisée par le service
type ImageStore interface {
	Create(ctx context.Context, image *models.Image) error
	List(ctx context.Context, category models.ImageCategory) ([]models.Image, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Image, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// ImageService gère les images du site depuis le panneau admin
type ImageService struct {
	store   ImageStore
	media   MediaStore
	metrics *Metrics
	log     *zap.Logger
}

// NewImageService crée une nouvelle instance de ImageService
func NewImageService(store ImageStore, media MediaStore, metrics *Metrics, log *zap.Logger) *ImageService {
	return &ImageService{store: store, media: media, metrics: metrics, log: log}
}

// List retourne les images d'une catégorie. Une catégorie inconnue liste tout.
func (s *ImageService) List(ctx context.Context, rawCategory string) ([]models.Image, error) {
	category, _ := models.ParseImageCategory(strings.TrimSpace(rawCategory))
	images, err := s.store.List(ctx, category)
	if err != nil {
		s.log.Error("❌ Erreur lors de la liste des images", zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}
	return images, nil
}

// Upload contrôle puis envoie l'image dans le dossier de sa catégorie
func (s *ImageService) Upload(ctx context.Context, data []byte, contentType, rawCategory string) (*models.Image, error) {
	category, ok := models.ParseImageCategory(strings.TrimSpace(rawCategory))
	if !ok {
		return nil, apperrors.Validation(map[string]string{"category": categoryMessage()})
	}
	if err := s.media.Check(data, contentType); err != nil {
		return nil, apperrors.Validation(map[string]string{"image": imageMessage(err)})
	}

	upload, err := s.media.Upload(ctx, data, contentType, string(category))
	s.metrics.ObserveMedia("upload", err)
	if err != nil {
		return nil, asUpstream(err)
	}

	image := &models.Image{URL: upload.URL, ExternalID: upload.ExternalID, Category: category}
	if err := s.store.Create(ctx, image); err != nil {
		s.log.Error("❌ Erreur lors de l'enregistrement de l'image", zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}

	s.log.Info("✓ Image ajoutée", zap.String("image_id", image.ID.Hex()), zap.String("category", string(category)))
	return image, nil
}

// Delete supprime l'image distante puis l'enregistrement local.
// L'échec distant est journalisé, l'enregistrement local fait foi.
func (s *ImageService) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return apperrors.Clone(apperrors.ErrNotFound, "Image not found")
	}

	image, err := s.store.FindByID(ctx, objectID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}
	if image == nil {
		return apperrors.Clone(apperrors.ErrNotFound, "Image not found")
	}

	err = s.media.Delete(ctx, image.ExternalID)
	s.metrics.ObserveMedia("delete", err)
	if err != nil {
		s.log.Warn("⚠️  Suppression Cloudinary échouée", zap.String("public_id", image.ExternalID), zap.Error(err))
	}

	deleted, err := s.store.Delete(ctx, objectID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}
	if !deleted {
		return apperrors.Clone(apperrors.ErrNotFound, "Image not found")
	}
	return nil
}

func categoryMessage() string {
	valid := make([]string, len(models.ImageCategories))
	for i, c := range models.ImageCategories {
		valid[i] = string(c)
	}
	return fmt.Sprintf("Invalid or missing category. Valid: %s", strings.Join(valid, ", "))
}

func imageMessage(err error) string {
	switch {
	case errors.Is(err, ErrMediaEmpty):
		return "No file uploaded"
	case errors.Is(err, ErrMediaTooLarge):
		return "File too large (max 8MB)"
	default:
		return "Unsupported image format"
	}
}
