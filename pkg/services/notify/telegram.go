package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Settings configures the Telegram notifier.
type Settings struct {
	// BaseURL is the Bot API root (default: https://api.telegram.org)
	BaseURL string
	// Token is the bot token
	Token string
	// ChatID is the chat receiving the messages
	ChatID string
	// Timeout bounds each HTTP request (default: 15s)
	Timeout time.Duration
}

// DefaultSettings returns the default notifier configuration.
func DefaultSettings(token, chatID string) Settings {
	return Settings{
		BaseURL: "https://api.telegram.org",
		Token:   token,
		ChatID:  chatID,
		Timeout: 15 * time.Second,
	}
}

// Telegram delivers messages through the Telegram Bot API.
type Telegram struct {
	settings Settings
	http     *http.Client
}

// NewTelegram creates a Telegram notifier from settings, filling unset
// fields with defaults.
func NewTelegram(settings Settings) *Telegram {
	def := DefaultSettings(settings.Token, settings.ChatID)
	if settings.BaseURL == "" {
		settings.BaseURL = def.BaseURL
	}
	if settings.Timeout == 0 {
		settings.Timeout = def.Timeout
	}
	return &Telegram{
		settings: settings,
		http:     &http.Client{Timeout: settings.Timeout},
	}
}

// Notify sends one message to the configured chat.
func (t *Telegram) Notify(ctx context.Context, message string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.settings.BaseURL, t.settings.Token)
	form := url.Values{}
	form.Set("chat_id", t.settings.ChatID)
	form.Set("text", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram responded %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
