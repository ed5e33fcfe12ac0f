// internal/adapter/webhook/telegram.go

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"trendcatch/internal/adapter/httpclient"
	"trendcatch/internal/domain/sound"
)

// DefaultTelegramURL is the Bot API endpoint
const DefaultTelegramURL = "https://api.telegram.org"

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Telegram sends alerts through a Telegram bot
type Telegram struct {
	token   string
	baseURL string
	client  *httpclient.Client
}

// NewTelegram creates a new Telegram sender. An empty token disables it.
func NewTelegram(token, baseURL string, client *httpclient.Client) *Telegram {
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}

	return &Telegram{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Enabled reports whether a bot token is configured
func (t *Telegram) Enabled() bool {
	return t.token != ""
}

// SendAlert sends a trending-sound alert to chatID
func (t *Telegram) SendAlert(ctx context.Context, chatID string, event sound.Event) error {
	if !t.Enabled() {
		return errors.New("telegram bot token is not configured")
	}

	text := fmt.Sprintf("🔥 <b>%s</b> by %s\nVelocity: %+.0f%%\nUses: %d",
		html.EscapeString(event.Name),
		html.EscapeString(artistOrUnknown(event.Artist)),
		event.Velocity,
		event.Uses,
	)
	if event.TikTokURL != "" {
		text += fmt.Sprintf("\n<a href=\"%s\">Open on TikTok</a>", html.EscapeString(event.TikTokURL))
	}

	payload, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("error marshaling telegram message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	body, err := t.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("error sending telegram message: %w", err)
	}

	var resp telegramResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("error decoding telegram response: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram rejected message: %s", resp.Description)
	}

	return nil
}
