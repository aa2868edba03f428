package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"silver-jubilee-backend/config"
	"silver-jubilee-backend/models"
)

// AdminNotifier prévient les admins qu'une inscription attend une décision
type AdminNotifier interface {
	NotifyNewRegistration(ctx context.Context, registration *models.Registration) error
}

// topicSender est la partie du client FCM utilisée ici
type topicSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMService envoie les notifications via Firebase Cloud Messaging
type FCMService struct {
	client topicSender
	topic  string
	log    *zap.Logger
}

// NewFCMService initialise Firebase depuis FIREBASE_CREDENTIALS_JSON ou le fichier
func NewFCMService(ctx context.Context, cfg config.FirebaseConfig, log *zap.Logger) (*FCMService, error) {
	var opt option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		log.Info("📦 Utilisation des credentials Firebase depuis FIREBASE_CREDENTIALS_JSON")
		opt = option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		log.Info("📦 Utilisation des credentials Firebase depuis le fichier", zap.String("file", cfg.CredentialsFile))
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
	default:
		return nil, fmt.Errorf("aucun credential Firebase configuré")
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("erreur lors de l'initialisation de Firebase: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la création du client FCM: %w", err)
	}

	log.Info("✓ Firebase Cloud Messaging initialisé", zap.String("topic", cfg.AdminTopic))
	return &FCMService{client: client, topic: cfg.AdminTopic, log: log}, nil
}

// NewDisabledFCMService retourne un service sans client: les envois sont ignorés
func NewDisabledFCMService(log *zap.Logger) *FCMService {
	return &FCMService{log: log}
}

// Enabled indique si les notifications partent réellement
func (s *FCMService) Enabled() bool {
	return s.client != nil && s.topic != ""
}

// SendToTopic envoie un data message sur le topic des admins
func (s *FCMService) SendToTopic(ctx context.Context, title, body string, data map[string]string) error {
	if !s.Enabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// UNIQUEMENT des data messages, le service worker construit l'affichage
	if data == nil {
		data = make(map[string]string)
	}
	data["title"] = title
	data["message"] = body

	message := &messaging.Message{
		Topic: s.topic,
		Data:  data,
		Webpush: &messaging.WebpushConfig{
			Headers: map[string]string{
				"Urgency": "high",
			},
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("erreur lors de l'envoi de la notification: %w", err)
	}

	s.log.Debug("✓ Message envoyé", zap.String("id", response))
	return nil
}

// NotifyNewRegistration implémente AdminNotifier
func (s *FCMService) NotifyNewRegistration(ctx context.Context, registration *models.Registration) error {
	return s.SendToTopic(ctx,
		"Nouvelle inscription",
		fmt.Sprintf("%s (promo %s) attend une validation", registration.Name, registration.Batch),
		map[string]string{
			"type":            "registration_pending",
			"registration_id": registration.ID.Hex(),
			"amount":          strconv.FormatInt(registration.Amount, 10),
		},
	)
}
