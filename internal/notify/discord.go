package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Discord posts embeds to a channel webhook.
type Discord struct {
	session   *discordgo.Session
	webhookID string
	token     string
}

var _ Dispatcher = (*Discord)(nil)

// NewDiscord creates a dispatcher for a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}.
func NewDiscord(webhookURL string) (*Discord, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	// Webhook execution is authenticated by the URL token; the session needs
	// no bot token.
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	return &Discord{session: session, webhookID: id, token: token}, nil
}

func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid discord webhook URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("invalid discord webhook URL: expected /api/webhooks/{id}/{token}")
}

func (d *Discord) Name() string { return "discord" }

// Send executes the webhook with a single embed.
func (d *Discord) Send(ctx context.Context, in Intent) error {
	msg := Render(in)

	fields := make([]*discordgo.MessageEmbedField, len(msg.Fields))
	for i, f := range msg.Fields {
		fields[i] = &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline}
	}

	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       msg.Color,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: msg.Footer},
		Timestamp:   msg.Timestamp.UTC().Format(time.RFC3339),
	}

	_, err := d.session.WebhookExecute(d.webhookID, d.token, false,
		&discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}},
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("executing discord webhook: %w", err)
	}
	return nil
}
