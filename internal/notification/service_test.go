package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/tariffcompare/internal/config"
)

func TestSendEmail_Disabled(t *testing.T) {
	svc := NewService(config.EmailConfig{})
	assert.False(t, svc.Enabled())
	err := svc.ChecklistComplete(context.Background(), "Jane", time.Now())
	assert.ErrorIs(t, err, ErrDisabled)

	var nilSvc *Service
	assert.False(t, nilSvc.Enabled())
}

func TestSendEmail_UnknownProvider(t *testing.T) {
	svc := NewService(config.EmailConfig{Provider: "pigeon", FromAddress: "a@example.com"})
	err := svc.SendTest(context.Background(), "b@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestSendEmail_NoRecipients(t *testing.T) {
	svc := NewService(config.EmailConfig{Provider: "resend", FromAddress: "a@example.com"})
	err := svc.ChecklistComplete(context.Background(), "Jane", time.Now())
	require.Error(t, err)
}

func TestChecklistComplete_Resend(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewService(config.EmailConfig{
		Provider:    "resend",
		APIKey:      "re_test",
		FromAddress: "noreply@example.com",
		FromName:    "Tariff Compare",
		To:          []string{"ops@example.com"},
	})
	svc.resendURL = srv.URL

	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, svc.ChecklistComplete(context.Background(), "Jane <Doe>", at))

	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, "Tariff Compare <noreply@example.com>", got["from"])
	assert.Equal(t, []any{"ops@example.com"}, got["to"])
	assert.Equal(t, "Signup checks complete: Jane <Doe>", got["subject"])
	assert.True(t, strings.Contains(got["html"].(string), "Jane &lt;Doe&gt;"))
}

func TestSendEmail_ResendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc := NewService(config.EmailConfig{Provider: "resend", FromAddress: "a@example.com"})
	svc.resendURL = srv.URL
	err := svc.SendTest(context.Background(), "b@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
