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

// RegistrationRepository gère les opérations sur les inscriptions
type RegistrationRepository struct {
	collection *mongo.Collection
}

// NewRegistrationRepository crée une nouvelle instance de RegistrationRepository
func NewRegistrationRepository(db *mongo.Database) *RegistrationRepository {
	return &RegistrationRepository{
		collection: db.Collection(RegistrationsCollection),
	}
}

// Create insère une inscription. Retourne ErrDuplicate si oauth_uid ou email existe déjà.
func (r *RegistrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	if registration.ID.IsZero() {
		registration.ID = primitive.NewObjectID()
	}
	if registration.FamilyMembers == nil {
		registration.FamilyMembers = []models.FamilyMember{}
	}

	if _, err := r.collection.InsertOne(ctx, registration); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("inscription %s: %w", registration.Email, ErrDuplicate)
		}
		return fmt.Errorf("erreur lors de la création de l'inscription: %w", err)
	}
	return nil
}

// FindBySubject recherche l'inscription d'un compte Google, nil si absente
func (r *RegistrationRepository) FindBySubject(ctx context.Context, subjectID string) (*models.Registration, error) {
	return r.findOne(ctx, bson.M{"oauth_uid": subjectID})
}

// FindByID recherche une inscription par identifiant, nil si absente
func (r *RegistrationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Registration, error) {
	return r.findOne(ctx, bson.M{fieldID: id})
}

// ExistsBySubjectOrEmail indique si une inscription occupe déjà ce compte ou cet email
func (r *RegistrationRepository) ExistsBySubjectOrEmail(ctx context.Context, subjectID, email string) (bool, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"oauth_uid": subjectID},
		bson.M{"email": email},
	}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("erreur lors de la vérification des doublons: %w", err)
	}
	return count > 0, nil
}

// List retourne les inscriptions, les plus récentes d'abord
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	ctx, cancel := withTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{}
	if filter.Status != "" {
		query[fieldStatus] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: fieldCreatedAt, Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la recherche des inscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	registrations := []models.Registration{}
	if err = cursor.All(ctx, &registrations); err != nil {
		return nil, fmt.Errorf("erreur lors du décodage des inscriptions: %w", err)
	}
	return registrations, nil
}

// TransitionStatus applique une décision sur une inscription encore PENDING.
// La condition sur le statut rend l'opération atomique: si un autre admin a
// déjà statué, aucun document ne correspond et (nil, nil) est retourné.
func (r *RegistrationRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, change models.StatusChange) (*models.Registration, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{fieldID: id, fieldStatus: models.StatusPending}
	update := bson.M{
		BSONSet: bson.M{
			fieldStatus:   change.To,
			"reviewed_by": change.Actor,
			"reviewed_at": change.At,
			"updated_at":  change.At,
		},
		BSONPush: bson.M{"status_history": change},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Registration
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la mise à jour du statut: %w", err)
	}
	return &updated, nil
}

// Stats agrège les inscriptions par statut
func (r *RegistrationRepository) Stats(ctx context.Context) ([]models.StatusCount, error) {
	ctx, cancel := withTimeout(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: BSONGroup, Value: bson.M{
			fieldID: "$" + fieldStatus,
			"count": bson.M{BSONSum: 1},
			"attendees": bson.M{BSONSum: bson.M{BSONAdd: bson.A{
				1,
				bson.M{BSONSize: bson.M{"$ifNull": bson.A{"$family_members", bson.A{}}}},
			}}},
			"amount": bson.M{BSONSum: "$amount"},
		}}},
		{{Key: BSONSort, Value: bson.D{{Key: fieldID, Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("erreur lors de l'agrégation des inscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	counts := []models.StatusCount{}
	if err = cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("erreur lors du décodage des statistiques: %w", err)
	}
	return counts, nil
}

func (r *RegistrationRepository) findOne(ctx context.Context, filter bson.M) (*models.Registration, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	var registration models.Registration
	err := r.collection.FindOne(ctx, filter).Decode(&registration)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la recherche de l'inscription: %w", err)
	}
	return &registration, nil
}
