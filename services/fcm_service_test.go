package services

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"silver-jubilee-backend/config"
	"silver-jubilee-backend/models"
)

type recordingSender struct {
	messages []*messaging.Message
	err      error
}

func (r *recordingSender) Send(ctx context.Context, message *messaging.Message) (string, error) {
	r.messages = append(r.messages, message)
	return "projects/demo/messages/1", r.err
}

// TestDisabledFCMService vérifie qu'un service désactivé ne fait rien
func TestDisabledFCMService(t *testing.T) {
	svc := NewDisabledFCMService(zap.NewNop())
	require.NotNil(t, svc)
	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.NotifyNewRegistration(context.Background(), &models.Registration{Name: "A"}))
}

func TestNotifyNewRegistration(t *testing.T) {
	sender := &recordingSender{}
	svc := &FCMService{client: sender, topic: "admins", log: zap.NewNop()}
	id := primitive.NewObjectID()

	err := svc.NotifyNewRegistration(context.Background(), &models.Registration{ID: id, Name: "A", Batch: "2000", Amount: 15000})
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)

	msg := sender.messages[0]
	assert.Equal(t, "admins", msg.Topic)
	assert.Nil(t, msg.Notification)
	assert.Equal(t, "registration_pending", msg.Data["type"])
	assert.Equal(t, id.Hex(), msg.Data["registration_id"])
	assert.Equal(t, "15000", msg.Data["amount"])
}

func TestNotifyNewRegistrationErreur(t *testing.T) {
	svc := &FCMService{client: &recordingSender{err: errors.New("quota")}, topic: "admins", log: zap.NewNop()}
	assert.Error(t, svc.NotifyNewRegistration(context.Background(), &models.Registration{}))
}

func TestNewFCMServiceSansCredentials(t *testing.T) {
	_, err := NewFCMService(context.Background(), config.FirebaseConfig{AdminTopic: "admins"}, zap.NewNop())
	assert.Error(t, err)
}
