package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"silver-jubilee-backend/apperrors"
	"silver-jubilee-backend/config"
	"silver-jubilee-backend/database"
	"silver-jubilee-backend/models"
	"silver-jubilee-backend/utils"
)

// ReceiptFolder est le sous-dossier des reçus de paiement
const ReceiptFolder = "receipts"

const notifyTimeout = 10 * time.Second

// RegistrationStore est la partie du repository utilisée par le workflow
type RegistrationStore interface {
	Create(ctx context.Context, registration *models.Registration) error
	FindBySubject(ctx context.Context, subjectID string) (*models.Registration, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Registration, error)
	ExistsBySubjectOrEmail(ctx context.Context, subjectID, email string) (bool, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error)
	TransitionStatus(ctx context.Context, id primitive.ObjectID, change models.StatusChange) (*models.Registration, error)
	Stats(ctx context.Context) ([]models.StatusCount, error)
}

// FamilyMemberForm est un accompagnant tel que saisi
type FamilyMemberForm struct {
	Name     string `json:"name" key:"name" validate:"required"`
	Relation string `json:"relation" key:"relation" validate:"required"`
}

// RegistrationForm regroupe les champs saisis par l'ancien élève
type RegistrationForm struct {
	Name             string             `key:"name" validate:"required"`
	Batch            string             `key:"batch" validate:"required,batch"`
	Contact          string             `key:"contact" validate:"required,contact"`
	Email            string             `key:"email" validate:"required,simple_email"`
	LinkedIn         string             `key:"linkedin" validate:"omitempty,linkedin"`
	ComingWithFamily bool               `key:"-"`
	FamilyMembers    []FamilyMemberForm `key:"family" validate:"dive"`
}

// SubmitInput est une soumission complète: identité résolue, formulaire et reçu
type SubmitInput struct {
	Identity           *models.Identity
	Form               RegistrationForm
	Receipt            []byte
	ReceiptContentType string
}

// RegistrationService porte le workflow d'inscription et d'approbation
type RegistrationService struct {
	store     RegistrationStore
	media     MediaStore
	notifier  AdminNotifier
	validator *utils.Validator
	pricing   config.PricingConfig
	metrics   *Metrics
	log       *zap.Logger
	now       func() time.Time
}

// NewRegistrationService crée le service. notifier et metrics peuvent être nil.
func NewRegistrationService(store RegistrationStore, media MediaStore, notifier AdminNotifier, cfg *config.Config, metrics *Metrics, log *zap.Logger) *RegistrationService {
	allowed, message := BatchRule(cfg.Batch)
	return &RegistrationService{
		store:     store,
		media:     media,
		notifier:  notifier,
		validator: utils.NewValidator(allowed, message),
		pricing:   cfg.Pricing,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// BatchRule retourne la règle d'admission d'une promo et son message d'erreur.
// Une année imposée prime sur l'intervalle.
func BatchRule(cfg config.BatchConfig) (func(string) bool, string) {
	if year := strings.TrimSpace(cfg.AllowedYear); year != "" {
		return func(batch string) bool {
			return strings.TrimSpace(batch) == year
		}, fmt.Sprintf("Only batch %s can register", year)
	}
	return func(batch string) bool {
		n, err := strconv.Atoi(strings.TrimSpace(batch))
		return err == nil && n >= cfg.MinYear && n <= cfg.MaxYear
	}, fmt.Sprintf("Batch must be a year between %d and %d", cfg.MinYear, cfg.MaxYear)
}

// Amount calcule le montant dû
func (s *RegistrationService) Amount(comingWithFamily bool, familyMembers int) int64 {
	if !comingWithFamily {
		return s.pricing.BasePrice
	}
	return s.pricing.BasePrice + s.pricing.AddonPrice*int64(familyMembers)
}

// Submit valide, uploade le reçu puis crée l'inscription en PENDING
func (s *RegistrationService) Submit(ctx context.Context, in SubmitInput) (*models.Registration, error) {
	if in.Identity == nil || in.Identity.SubjectID == "" || in.Identity.Email == "" {
		s.metrics.ObserveSubmission("unauthorized")
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, "Sign in with Google to register")
	}

	form := normalizeForm(in.Form, in.Identity.Email)
	if fields := s.validate(form, in.Receipt, in.ReceiptContentType); len(fields) > 0 {
		s.metrics.ObserveSubmission("invalid")
		return nil, apperrors.Validation(fields)
	}

	// Pré-contrôle: évite un upload inutile pour un doublon
	exists, err := s.store.ExistsBySubjectOrEmail(ctx, in.Identity.SubjectID, form.Email)
	if err != nil {
		s.log.Error("❌ Erreur lors de la vérification des doublons", zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}
	if exists {
		s.metrics.ObserveSubmission("conflict")
		return nil, apperrors.ErrConflict
	}

	upload, err := s.media.Upload(ctx, in.Receipt, in.ReceiptContentType, ReceiptFolder)
	s.metrics.ObserveMedia("upload", err)
	if err != nil {
		s.metrics.ObserveSubmission("storage_error")
		return nil, asUpstream(err)
	}

	now := s.now().UTC()
	registration := &models.Registration{
		SubjectID:         in.Identity.SubjectID,
		Email:             form.Email,
		Name:              form.Name,
		Batch:             form.Batch,
		Contact:           form.Contact,
		LinkedIn:          form.LinkedIn,
		ComingWithFamily:  form.ComingWithFamily,
		FamilyMembers:     toFamilyMembers(form.FamilyMembers),
		Amount:            s.Amount(form.ComingWithFamily, len(form.FamilyMembers)),
		ReceiptURL:        upload.URL,
		ReceiptExternalID: upload.ExternalID,
		Status:            models.StatusPending,
		StatusHistory: []models.StatusChange{
			{To: models.StatusPending, Actor: in.Identity.SubjectID, At: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, registration); err != nil {
		s.discardReceipt(upload.ExternalID)
		if errors.Is(err, database.ErrDuplicate) {
			s.metrics.ObserveSubmission("conflict")
			return nil, apperrors.ErrConflict
		}
		s.log.Error("❌ Erreur lors de la création de l'inscription", zap.Error(err))
		s.metrics.ObserveSubmission("error")
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}

	s.log.Info("✓ Inscription créée",
		zap.String("registration_id", registration.ID.Hex()),
		zap.String("batch", registration.Batch),
		zap.Int64("amount", registration.Amount),
	)
	s.metrics.ObserveSubmission("created")
	s.notifyAdmins(registration)
	return registration, nil
}

// GetOwn retourne l'inscription du sujet
func (s *RegistrationService) GetOwn(ctx context.Context, subjectID string) (*models.Registration, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, "Sign in with Google to view your registration")
	}
	registration, err := s.store.FindBySubject(ctx, subjectID)
	if err != nil {
		s.log.Error("❌ Erreur lors de la lecture de l'inscription", zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}
	if registration == nil {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "No registration found")
	}
	return registration, nil
}

// ListAll retourne toutes les inscriptions, les plus récentes d'abord
func (s *RegistrationService) ListAll(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	if filter.Status != "" && !isKnownStatus(filter.Status) {
		return nil, apperrors.Validation(map[string]string{"status": "Unknown status"})
	}
	registrations, err := s.store.List(ctx, filter)
	if err != nil {
		s.log.Error("❌ Erreur lors de la liste des inscriptions", zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}
	if registrations == nil {
		registrations = []models.Registration{}
	}
	return registrations, nil
}

// SetStatus applique une décision admin. Seule une inscription PENDING peut changer
// d'état. Réappliquer la décision déjà prise renvoie l'inscription telle quelle.
func (s *RegistrationService) SetStatus(ctx context.Context, id string, status models.RegistrationStatus, actor, note string) (*models.Registration, error) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, apperrors.Validation(map[string]string{"id": "Invalid registration id"})
	}
	status = models.RegistrationStatus(strings.ToUpper(strings.TrimSpace(string(status))))
	if !status.IsDecision() {
		return nil, apperrors.Validation(map[string]string{"status": "Status must be APPROVED or REJECTED"})
	}

	change := models.StatusChange{
		From:  models.StatusPending,
		To:    status,
		Actor: actor,
		Note:  strings.TrimSpace(note),
		At:    s.now().UTC(),
	}
	updated, err := s.store.TransitionStatus(ctx, objectID, change)
	if err != nil {
		s.log.Error("❌ Erreur lors du changement de statut", zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}
	if updated != nil {
		s.log.Info("✓ Statut d'inscription modifié",
			zap.String("registration_id", id),
			zap.String("status", string(status)),
			zap.String("actor", actor),
			zap.Time("at", change.At),
		)
		s.metrics.ObserveStatusChange(string(status))
		return updated, nil
	}

	// Pas de PENDING correspondant: inconnue ou déjà décidée
	current, err := s.store.FindByID(ctx, objectID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}
	if current == nil {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "Registration not found")
	}
	if current.Status == status {
		return current, nil
	}
	return nil, apperrors.ErrInvalidTransition
}

// Stats agrège les inscriptions par statut
func (s *RegistrationService) Stats(ctx context.Context) (*models.RegistrationStats, error) {
	counts, err := s.store.Stats(ctx)
	if err != nil {
		s.log.Error("❌ Erreur lors du calcul des statistiques", zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "")
	}

	stats := &models.RegistrationStats{ByStatus: counts}
	if stats.ByStatus == nil {
		stats.ByStatus = []models.StatusCount{}
	}
	for _, c := range counts {
		stats.Total += c.Count
		stats.TotalAttendees += c.Attendees
		switch c.Status {
		case models.StatusPending:
			stats.Pending = c.Count
			stats.ExpectedAmount += c.Amount
		case models.StatusApproved:
			stats.Approved = c.Count
			stats.ExpectedAmount += c.Amount
			stats.ApprovedAmount += c.Amount
		case models.StatusRejected:
			stats.Rejected = c.Count
		}
	}
	return stats, nil
}

// validate retourne toutes les erreurs du formulaire, reçu compris
func (s *RegistrationService) validate(form RegistrationForm, receipt []byte, contentType string) map[string]string {
	fields := s.validator.ValidateStruct(form)
	if msg := receiptError(s.media, receipt, contentType); msg != "" {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["receiptFile"] = msg
	}
	return fields
}

func receiptError(media MediaStore, data []byte, contentType string) string {
	if len(data) == 0 {
		return "Upload payment receipt (image)"
	}
	err := media.Check(data, contentType)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMediaTooLarge):
		return "Receipt file is too large"
	case errors.Is(err, ErrMediaEmpty):
		return "Upload payment receipt (image)"
	default:
		return "Receipt must be an image"
	}
}

// discardReceipt supprime un reçu orphelin. Échec journalisé seulement.
func (s *RegistrationService) discardReceipt(externalID string) {
	if externalID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	err := s.media.Delete(ctx, externalID)
	s.metrics.ObserveMedia("delete", err)
	if err != nil {
		s.log.Warn("⚠️  Reçu orphelin non supprimé", zap.String("public_id", externalID), zap.Error(err))
	}
}

func (s *RegistrationService) notifyAdmins(registration *models.Registration) {
	if s.notifier == nil {
		return
	}
	copied := *registration
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyNewRegistration(ctx, &copied); err != nil {
			s.log.Warn("⚠️  Notification admin non envoyée", zap.Error(err))
		}
	}()
}

func normalizeForm(form RegistrationForm, fallbackEmail string) RegistrationForm {
	form.Name = strings.TrimSpace(form.Name)
	form.Batch = strings.TrimSpace(form.Batch)
	form.Contact = strings.TrimSpace(form.Contact)
	form.LinkedIn = strings.TrimSpace(form.LinkedIn)
	form.Email = NormalizeEmail(form.Email)
	if form.Email == "" {
		form.Email = NormalizeEmail(fallbackEmail)
	}

	if !form.ComingWithFamily {
		form.FamilyMembers = nil
		return form
	}
	members := make([]FamilyMemberForm, len(form.FamilyMembers))
	for i, m := range form.FamilyMembers {
		members[i] = FamilyMemberForm{Name: strings.TrimSpace(m.Name), Relation: strings.TrimSpace(m.Relation)}
	}
	form.FamilyMembers = members
	return form
}

func toFamilyMembers(in []FamilyMemberForm) []models.FamilyMember {
	out := make([]models.FamilyMember, len(in))
	for i, m := range in {
		out[i] = models.FamilyMember{Name: m.Name, Relation: m.Relation}
	}
	return out
}

func isKnownStatus(status models.RegistrationStatus) bool {
	return status == models.StatusPending || status.IsTerminal()
}

// asUpstream ramène une erreur de stockage au code UPSTREAM sans détail fournisseur
func asUpstream(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Wrap(err, ErrStorageFailed, "")
}
