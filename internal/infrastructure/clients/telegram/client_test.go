package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/pravoguard/court-monitor/internal/domain/errors"
)

func TestClient_Send(t *testing.T) {
	var captured sendMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient("test-token", zap.NewNop(), WithAPIBase(server.URL))

	messageID, err := client.Send(context.Background(), 111, "<b>Нова судова справа</b>")
	require.NoError(t, err)
	assert.Equal(t, "42", messageID)

	assert.Equal(t, int64(111), captured.ChatID)
	assert.Equal(t, "HTML", captured.ParseMode)
	assert.True(t, captured.DisableWebPagePreview)
}

func TestClient_Send_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"error_code":403,"description":"bot was blocked by the user"}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient("test-token", zap.NewNop(), WithAPIBase(server.URL))

	_, err := client.Send(context.Background(), 111, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestClient_Send_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests"}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient("test-token", zap.NewNop(), WithAPIBase(server.URL))

	_, err := client.Send(context.Background(), 111, "text")
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimit(err))
}
