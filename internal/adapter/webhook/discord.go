// internal/adapter/webhook/discord.go

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"trendcatch/internal/adapter/httpclient"
	"trendcatch/internal/domain/sound"
)

const discordColor = 0xFE2C55

type discordEmbed struct {
	Title       string         `json:"title"`
	URL         string         `json:"url,omitempty"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Timestamp   string         `json:"timestamp"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordMessage struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds"`
}

// Discord posts alerts to Discord incoming webhooks
type Discord struct {
	client *httpclient.Client
}

// NewDiscord creates a new Discord sender
func NewDiscord(client *httpclient.Client) *Discord {
	return &Discord{client: client}
}

// SendAlert posts a trending-sound alert to webhookURL
func (d *Discord) SendAlert(ctx context.Context, webhookURL string, event sound.Event) error {
	msg := discordMessage{
		Content: "🔥 A sound is taking off",
		Embeds: []discordEmbed{{
			Title:       event.Name,
			URL:         event.TikTokURL,
			Description: fmt.Sprintf("by %s", artistOrUnknown(event.Artist)),
			Color:       discordColor,
			Fields: []discordField{
				{Name: "Velocity", Value: fmt.Sprintf("%+.0f%%", event.Velocity), Inline: true},
				{Name: "Uses", Value: fmt.Sprintf("%d", event.Uses), Inline: true},
			},
			Timestamp: event.CapturedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling discord message: %w", err)
	}

	_, err = d.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("error posting discord webhook: %w", err)
	}

	return nil
}

func artistOrUnknown(artist string) string {
	if artist == "" {
		return "Unknown artist"
	}
	return artist
}
