package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"silver-jubilee-backend/models"
)

// AdminRepository gère les comptes administrateurs
type AdminRepository struct {
	collection *mongo.Collection
}

// NewAdminRepository crée une nouvelle instance de AdminRepository
func NewAdminRepository(db *mongo.Database) *AdminRepository {
	return &AdminRepository{
		collection: db.Collection(AdminsCollection),
	}
}

// Create crée un compte admin
func (r *AdminRepository) Create(ctx context.Context, admin *models.AdminCredential) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	admin.ID = primitive.NewObjectID()
	admin.CreatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, admin); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("admin %s: %w", admin.Username, ErrDuplicate)
		}
		return fmt.Errorf("erreur lors de la création de l'admin: %w", err)
	}
	return nil
}

// FindByUsername recherche un admin par identifiant, nil si absent
func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (*models.AdminCredential, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	var admin models.AdminCredential
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&admin)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la recherche de l'admin: %w", err)
	}
	return &admin, nil
}

// UpdateLastLogin trace la dernière connexion réussie
func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.collection.UpdateOne(ctx, bson.M{fieldID: id}, bson.M{BSONSet: bson.M{"last_login_at": at}})
	if err != nil {
		return fmt.Errorf("erreur lors de la mise à jour de la connexion admin: %w", err)
	}
	return nil
}

// UpdatePassword remplace le hash d'un compte existant
func (r *AdminRepository) UpdatePassword(ctx context.Context, username, passwordHash string) (bool, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"username": username}, bson.M{BSONSet: bson.M{"password_hash": passwordHash}})
	if err != nil {
		return false, fmt.Errorf("erreur lors de la mise à jour du mot de passe: %w", err)
	}
	return result.MatchedCount > 0, nil
}
