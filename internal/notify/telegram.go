package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends HTML messages through a bot to one chat.
type Telegram struct {
	token    string
	chatID   int64
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

var _ Dispatcher = (*Telegram)(nil)

// TelegramOption configures NewTelegram.
type TelegramOption func(*Telegram)

// WithTelegramEndpoint overrides the Bot API endpoint format
// (default "https://api.telegram.org/bot%s/%s").
func WithTelegramEndpoint(endpoint string) TelegramOption {
	return func(t *Telegram) {
		t.endpoint = endpoint
	}
}

// NewTelegram creates a dispatcher. The bot is contacted on first send.
func NewTelegram(token string, chatID int64, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		token:    token,
		chatID:   chatID,
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Telegram) Name() string { return "telegram" }

// botAPI returns the bot client, creating it on first use. Creation calls
// getMe to validate the token.
func (t *Telegram) botAPI() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
	if err != nil {
		return nil, fmt.Errorf("connecting telegram bot: %w", err)
	}
	t.bot = bot
	return bot, nil
}

// Send posts the rendered message. The bot library has no context support,
// so ctx is only checked before sending.
func (t *Telegram) Send(ctx context.Context, in Intent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bot, err := t.botAPI()
	if err != nil {
		return err
	}

	m := tgbotapi.NewMessage(t.chatID, telegramText(Render(in)))
	m.ParseMode = tgbotapi.ModeHTML
	m.DisableWebPagePreview = true

	if _, err := bot.Send(m); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

func telegramText(msg Message) string {
	var b strings.Builder
	b.WriteString("<b>" + htmlText(msg.Title) + "</b>\n\n")
	b.WriteString(htmlText(msg.Description) + "\n\n")
	for _, f := range msg.Fields {
		b.WriteString(htmlText(f.Name) + ": " + htmlText(f.Value) + "\n")
	}
	b.WriteString("\n<i>" + htmlText(msg.Footer) + "</i>")
	return b.String()
}
