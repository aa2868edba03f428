package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"silver-jubilee-backend/models"
)

// ImageRepository gère les images du site
type ImageRepository struct {
	collection *mongo.Collection
}

// NewImageRepository crée une nouvelle instance de ImageRepository
func NewImageRepository(db *mongo.Database) *ImageRepository {
	return &ImageRepository{
		collection: db.Collection(ImagesCollection),
	}
}

// Create enregistre une image déjà envoyée au media store
func (r *ImageRepository) Create(ctx context.Context, image *models.Image) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	if image.ID.IsZero() {
		image.ID = primitive.NewObjectID()
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, image); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("image %s: %w", image.ExternalID, ErrDuplicate)
		}
		return fmt.Errorf("erreur lors de l'ajout de l'image: %w", err)
	}
	return nil
}

// List retourne les images d'une catégorie (toutes si vide), les plus récentes d'abord
func (r *ImageRepository) List(ctx context.Context, category models.ImageCategory) ([]models.Image, error) {
	ctx, cancel := withTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}

	opts := options.Find().SetSort(bson.D{{Key: fieldCreatedAt, Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la recherche des images: %w", err)
	}
	defer cursor.Close(ctx)

	images := []models.Image{}
	if err = cursor.All(ctx, &images); err != nil {
		return nil, fmt.Errorf("erreur lors du décodage des images: %w", err)
	}
	return images, nil
}

// FindByID recherche une image, nil si absente
func (r *ImageRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Image, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	var image models.Image
	err := r.collection.FindOne(ctx, bson.M{fieldID: id}).Decode(&image)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la recherche de l'image: %w", err)
	}
	return &image, nil
}

// Delete supprime l'enregistrement local d'une image
func (r *ImageRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{fieldID: id})
	if err != nil {
		return false, fmt.Errorf("erreur lors de la suppression de l'image: %w", err)
	}
	return result.DeletedCount > 0, nil
}
