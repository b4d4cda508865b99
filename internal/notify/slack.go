package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/slack-go/slack"
)

// Slack posts attachments to an incoming webhook.
type Slack struct {
	webhookURL string
}

var _ Dispatcher = (*Slack)(nil)

// NewSlack creates a dispatcher for an incoming webhook URL.
func NewSlack(webhookURL string) *Slack {
	return &Slack{webhookURL: webhookURL}
}

func (s *Slack) Name() string { return "slack" }

// Send posts one colored attachment.
func (s *Slack) Send(ctx context.Context, in Intent) error {
	msg := Render(in)

	fields := make([]slack.AttachmentField, len(msg.Fields))
	for i, f := range msg.Fields {
		fields[i] = slack.AttachmentField{
			Title: f.Name,
			Value: slackText(f.Value),
			Short: f.Inline,
		}
	}

	err := slack.PostWebhookContext(ctx, s.webhookURL, &slack.WebhookMessage{
		Text: msg.Title,
		Attachments: []slack.Attachment{{
			Color:      fmt.Sprintf("#%06x", msg.Color),
			Title:      msg.Title,
			Text:       slackText(msg.Description),
			Fields:     fields,
			Footer:     msg.Footer,
			Ts:         json.Number(strconv.FormatInt(msg.Timestamp.Unix(), 10)),
			MarkdownIn: []string{"text", "fields"},
		}},
	})
	if err != nil {
		return fmt.Errorf("posting slack webhook: %w", err)
	}
	return nil
}

// slackText converts **bold** to Slack's *bold*.
func slackText(s string) string {
	return replaceBold(s, "*", "*")
}
