package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramNotifier_SendDeal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:   "delivered",
			status: http.StatusOK,
			body:   `{"ok": true, "result": {"message_id": 1}}`,
		},
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    `{"ok": false, "description": "Bad Request: can't parse entities"}`,
			wantErr: "can't parse entities",
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"ok": false}`,
			wantErr: "rate limited",
		},
		{
			name:    "ok false with 200",
			status:  http.StatusOK,
			body:    `{"ok": false, "description": "chat not found"}`,
			wantErr: "chat not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var received telegramSendMessage
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/botTOKEN123/sendMessage", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			n := NewTelegramNotifier("TOKEN123", "-100200",
				WithTelegramEndpoint(srv.URL),
				WithTelegramHTTPClient(srv.Client()),
			)
			alert := testAlert(0.9)
			err := n.SendDeal(context.Background(), &alert)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "-100200", received.ChatID)
			assert.Equal(t, "Markdown", received.ParseMode)
			assert.False(t, received.DisableWebPagePreview)
			assert.Contains(t, received.Text, "DEAL DETECTED")
		})
	}
}

func TestTelegramNotifier_NetworkErrorRedactsToken(t *testing.T) {
	t.Parallel()

	n := NewTelegramNotifier("SECRET-TOKEN", "1", WithTelegramEndpoint("http://127.0.0.1:1"))
	alert := testAlert(0.9)
	err := n.SendDeal(context.Background(), &alert)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending telegram message")
	assert.NotContains(t, err.Error(), "SECRET-TOKEN")
}
