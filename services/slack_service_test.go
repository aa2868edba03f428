package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSlackDesactive(t *testing.T) {
	svc := NewSlackService("", zap.NewNop())
	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.Send(context.Background(), SlackMessage{Text: "x"}))
}

func TestSlackSend(t *testing.T) {
	var received SlackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewSlackService(srv.URL, zap.NewNop())
	msg := errorMessage("🚨 test", "Internal Server Error", RequestInfo{Method: "POST", Path: "/api/event/register", Status: 500, RequestID: "req-1"})
	require.NoError(t, svc.Send(context.Background(), msg))

	require.Len(t, received.Attachments, 1)
	assert.Equal(t, "danger", received.Attachments[0].Color)
	assert.Contains(t, received.Attachments[0].Fields, Field{Title: "Request ID", Value: "req-1", Short: true})
}

func TestSlackSendErreurHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	err := NewSlackService(srv.URL, zap.NewNop()).Send(context.Background(), SlackMessage{Text: "x"})
	assert.Error(t, err)
}

func TestErrorMessageCouleurForbidden(t *testing.T) {
	msg := errorMessage("t", "x", RequestInfo{Status: http.StatusForbidden, Origin: "https://evil.example"})
	assert.Equal(t, "warning", msg.Attachments[0].Color)
}
