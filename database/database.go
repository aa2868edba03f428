package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Noms des collections
const (
	RegistrationsCollection = "registrations"
	ImagesCollection        = "images"
	AdminsCollection        = "admins"
)

// ErrDuplicate signale la violation d'un index unique
var ErrDuplicate = errors.New("document déjà existant")

// DB est l'instance de connexion à la base de données MongoDB
var DB *mongo.Database
var Client *mongo.Client

// Connect établit la connexion à la base de données MongoDB
func Connect(uri, dbName string, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("erreur lors de la connexion à MongoDB: %w", err)
	}

	// Vérifier la connexion
	if err = client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("erreur lors du ping MongoDB: %w", err)
	}

	Client = client
	DB = client.Database(dbName)

	log.Info("✓ Connexion à MongoDB établie", zap.String("database", dbName))

	if err = createIndexes(ctx, DB); err != nil {
		return fmt.Errorf("erreur lors de la création des index: %w", err)
	}
	log.Info("✓ Index MongoDB créés")

	return nil
}

// Ping vérifie que la connexion MongoDB est active
func Ping() error {
	if Client == nil {
		return fmt.Errorf("client MongoDB non initialisé")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return Client.Ping(ctx, nil)
}

// Close ferme la connexion à la base de données
func Close() error {
	if Client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return Client.Disconnect(ctx)
	}
	return nil
}

// indexSpecs liste les index par collection.
// L'unicité sur oauth_uid et email garantit une seule inscription par personne,
// y compris quand deux soumissions arrivent en même temps.
var indexSpecs = map[string][]mongo.IndexModel{
	RegistrationsCollection: {
		{Keys: bson.D{{Key: "oauth_uid", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_oauth_uid")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("status_created_at")},
	},
	ImagesCollection: {
		{Keys: bson.D{{Key: "public_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_public_id")},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("category_created_at")},
	},
	AdminsCollection: {
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
	},
}

// createIndexes crée les index nécessaires
func createIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, specs := range indexSpecs {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("index %s: %w", collection, err)
		}
	}
	return nil
}

// withTimeout borne la durée d'un appel à la base
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}
