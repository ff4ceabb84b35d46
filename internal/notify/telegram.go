package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/donaldgifford/car-deal-tracker/internal/metrics"
)

const defaultTelegramURL = "https://api.telegram.org"

// TelegramNotifier implements Notifier via the Telegram Bot API.
type TelegramNotifier struct {
	endpoint string
	token    string
	chatID   string
	loc      *time.Location
	client   *http.Client
}

// TelegramOption configures a TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithTelegramHTTPClient sets a custom HTTP client.
func WithTelegramHTTPClient(c *http.Client) TelegramOption {
	return func(t *TelegramNotifier) {
		t.client = c
	}
}

// WithTelegramEndpoint overrides the Bot API base URL.
func WithTelegramEndpoint(url string) TelegramOption {
	return func(t *TelegramNotifier) {
		t.endpoint = url
	}
}

// WithTelegramLocation sets the timezone detection times are shown in.
func WithTelegramLocation(loc *time.Location) TelegramOption {
	return func(t *TelegramNotifier) {
		t.loc = loc
	}
}

// NewTelegramNotifier creates a notifier posting to chatID as the bot
// identified by token.
func NewTelegramNotifier(token, chatID string, opts ...TelegramOption) *TelegramNotifier {
	t := &TelegramNotifier{
		endpoint: defaultTelegramURL,
		token:    token,
		chatID:   chatID,
		loc:      time.UTC,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type telegramSendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendDeal posts the formatted alert as a Markdown message.
func (t *TelegramNotifier) SendDeal(ctx context.Context, alert *DealAlert) error {
	start := time.Now()
	defer func() {
		metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(telegramSendMessage{
		ChatID:    t.chatID,
		Text:      FormatMessage(alert, t.loc),
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshaling telegram message: %w", err)
	}

	target := fmt.Sprintf("%s/bot%s/sendMessage", t.endpoint, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", redactURLError(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// The request URL embeds the bot token; keep it out of logs.
		return fmt.Errorf("sending telegram message: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading telegram response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("telegram rate limited (429)")
	}

	var tr telegramResponse
	if err := json.Unmarshal(respBody, &tr); err != nil || !tr.OK {
		desc := tr.Description
		if desc == "" {
			desc = string(respBody)
		}
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, desc)
	}

	return nil
}

func redactURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if i := strings.Index(ue.URL, "/bot"); i >= 0 {
			ue.URL = ue.URL[:i] + "/bot<redacted>/sendMessage"
		}
	}
	return err
}
