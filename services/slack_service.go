package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SlackService envoie les alertes d'exploitation sur un webhook Slack
type SlackService struct {
	webhookURL string
	client     *http.Client
	log        *zap.Logger
}

// SlackMessage représente un message Slack
type SlackMessage struct {
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment représente une pièce jointe Slack
type Attachment struct {
	Color     string  `json:"color,omitempty"`
	Title     string  `json:"title,omitempty"`
	Text      string  `json:"text,omitempty"`
	Fields    []Field `json:"fields,omitempty"`
	Timestamp int64   `json:"ts,omitempty"`
	Footer    string  `json:"footer,omitempty"`
}

// Field représente un champ dans une pièce jointe Slack
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// RequestInfo décrit la requête en erreur
type RequestInfo struct {
	Method    string
	Path      string
	Status    int
	RequestID string
	Origin    string
	UserAgent string
}

// NewSlackService crée une nouvelle instance de SlackService
func NewSlackService(webhookURL string, log *zap.Logger) *SlackService {
	if webhookURL == "" {
		log.Warn("⚠️  Slack webhook URL non configuré - notifications Slack désactivées")
	}
	return &SlackService{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		log:        log,
	}
}

// Enabled indique si un webhook est configuré
func (s *SlackService) Enabled() bool {
	return s != nil && s.webhookURL != ""
}

// Send poste un message sur le webhook
func (s *SlackService) Send(ctx context.Context, msg SlackMessage) error {
	if !s.Enabled() {
		return nil // Service désactivé
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("erreur lors de la sérialisation du message Slack: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("erreur lors de la création de la requête: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("erreur lors de l'envoi à Slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Slack a retourné un code d'erreur: %d", resp.StatusCode)
	}
	return nil
}

// errorMessage construit l'alerte d'une requête en erreur
func errorMessage(title, text string, info RequestInfo) SlackMessage {
	color := "danger"
	if info.Status == http.StatusForbidden {
		color = "warning" // Orange pour les erreurs CORS/Forbidden
	}

	fields := []Field{
		{Title: "Méthode", Value: info.Method, Short: true},
		{Title: "Status Code", Value: fmt.Sprintf("%d", info.Status), Short: true},
		{Title: "Chemin", Value: info.Path, Short: false},
	}
	if info.RequestID != "" {
		fields = append(fields, Field{Title: "Request ID", Value: info.RequestID, Short: true})
	}
	if info.Origin != "" {
		fields = append(fields, Field{Title: "Origin", Value: info.Origin, Short: true})
	}
	if info.UserAgent != "" {
		fields = append(fields, Field{Title: "User-Agent", Value: info.UserAgent, Short: false})
	}

	return SlackMessage{Attachments: []Attachment{{
		Color:     color,
		Title:     title,
		Text:      text,
		Fields:    fields,
		Timestamp: time.Now().Unix(),
		Footer:    "Silver Jubilee - Backend",
	}}}
}

// SendCriticalError notifie une erreur serveur. L'envoi est asynchrone.
func (s *SlackService) SendCriticalError(info RequestInfo) {
	s.sendAsync(errorMessage("🚨 Erreur serveur: Erreur Critique", http.StatusText(info.Status), info))
}

// SendCORSError notifie une origine refusée
func (s *SlackService) SendCORSError(info RequestInfo) {
	s.sendAsync(errorMessage("🚨 Erreur serveur: Erreur CORS", fmt.Sprintf("Origine non autorisée: %s", info.Origin), info))
}

func (s *SlackService) sendAsync(msg SlackMessage) {
	if !s.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Send(ctx, msg); err != nil {
			s.log.Error("❌ Erreur lors de l'envoi de la notification Slack", zap.Error(err))
		}
	}()
}
