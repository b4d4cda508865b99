package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/eminus-watch/internal/model"
)

func TestParseWebhookURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		id      string
		token   string
		wantErr bool
	}{
		{name: "discord.com", raw: "https://discord.com/api/webhooks/123/abc-DEF", id: "123", token: "abc-DEF"},
		{name: "versioned api", raw: "https://discordapp.com/api/v10/webhooks/9/tok/", id: "9", token: "tok"},
		{name: "missing token", raw: "https://discord.com/api/webhooks/123", wantErr: true},
		{name: "not a webhook", raw: "https://example.com/hook", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, token, err := parseWebhookURL(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.token, token)
		})
	}
}

// rewriteTransport sends every request to target, keeping the path.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestDiscordSend(t *testing.T) {
	var (
		gotPath string
		payload struct {
			Embeds []struct {
				Title       string `json:"title"`
				Description string `json:"description"`
				Color       int    `json:"color"`
				Fields      []struct {
					Name   string `json:"name"`
					Value  string `json:"value"`
					Inline bool   `json:"inline"`
				} `json:"fields"`
				Footer struct {
					Text string `json:"text"`
				} `json:"footer"`
			} `json:"embeds"`
		}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d, err := NewDiscord("https://discord.com/api/webhooks/123/abc")
	require.NoError(t, err)
	target, _ := url.Parse(srv.URL)
	d.session.Client = &http.Client{Transport: rewriteTransport{target: target}}

	require.NoError(t, d.Send(context.Background(), testIntent(model.CategoryReminder)))

	assert.True(t, strings.HasSuffix(gotPath, "/webhooks/123/abc"), gotPath)
	require.Len(t, payload.Embeds, 1)
	embed := payload.Embeds[0]
	assert.Equal(t, "⏰ RECORDATORIO: Actividad por Vencer", embed.Title)
	assert.Equal(t, ColorReminder, embed.Color)
	assert.Equal(t, "Bot de Monitoreo Eminus UV", embed.Footer.Text)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "Ensayo final", embed.Fields[0].Value)
	assert.False(t, embed.Fields[0].Inline)
}

func TestSlackSend(t *testing.T) {
	var payload struct {
		Text        string `json:"text"`
		Attachments []struct {
			Color  string `json:"color"`
			Title  string `json:"title"`
			Text   string `json:"text"`
			Footer string `json:"footer"`
			Fields []struct {
				Title string `json:"title"`
				Value string `json:"value"`
				Short bool   `json:"short"`
			} `json:"fields"`
		} `json:"attachments"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := NewSlack(srv.URL)
	require.NoError(t, s.Send(context.Background(), testIntent(model.CategoryNewItem)))

	require.Len(t, payload.Attachments, 1)
	att := payload.Attachments[0]
	assert.Equal(t, "#3498db", att.Color)
	assert.Equal(t, "🆕 Nueva Actividad en Eminus", att.Title)
	assert.Equal(t, "Se ha detectado una nueva tarea para el curso *Redes*", att.Text)
	require.Len(t, att.Fields, 2)
	assert.True(t, att.Fields[1].Short)
}

func TestSlackSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewSlack(srv.URL).Send(context.Background(), testIntent(model.CategoryNewItem))
	require.Error(t, err)
}

func TestTelegramSend(t *testing.T) {
	var form url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/bottok/getMe", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"eminus","username":"eminus_bot"}}`))
	})
	mux.HandleFunc("/bottok/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form = r.PostForm
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tg := NewTelegram("tok", 42, WithTelegramEndpoint(srv.URL+"/bot%s/%s"))
	require.NoError(t, tg.Send(context.Background(), testIntent(model.CategoryReminder)))

	assert.Equal(t, "42", form.Get("chat_id"))
	assert.Equal(t, "HTML", form.Get("parse_mode"))
	text := form.Get("text")
	assert.Contains(t, text, "<b>⏰ RECORDATORIO: Actividad por Vencer</b>")
	assert.Contains(t, text, "<b>Ensayo final</b>")
	assert.Contains(t, text, "<i>Bot de Monitoreo Eminus UV</i>")
}

func TestTelegramSendCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewTelegram("tok", 42).Send(ctx, testIntent(model.CategoryNewItem))
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmailSend(t *testing.T) {
	e, err := NewEmail(model.EmailConfig{
		Host: "smtp.example.com",
		From: "Eminus Bot <bot@example.com>",
		To:   "a@example.com, b@example.com",
	})
	require.NoError(t, err)

	var (
		gotCfg  model.EmailConfig
		gotFrom string
		gotTo   []string
		gotBody []byte
	)
	e.deliver = func(_ context.Context, cfg model.EmailConfig, from string, to []string, body []byte) error {
		gotCfg, gotFrom, gotTo, gotBody = cfg, from, to, body
		return nil
	}

	require.NoError(t, e.Send(context.Background(), testIntent(model.CategoryNewItem)))

	assert.Equal(t, "587", gotCfg.Port)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)

	mr, err := mail.CreateReader(strings.NewReader(string(gotBody)))
	require.NoError(t, err)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "🆕 Nueva Actividad en Eminus", subject)

	part, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Se ha detectado una nueva tarea para el curso Redes")
	assert.Contains(t, string(body), "📝 Tarea: Ensayo final")
}

func TestNewEmailRejectsBadAddresses(t *testing.T) {
	_, err := NewEmail(model.EmailConfig{Host: "h", From: "not an address", To: "a@example.com"})
	require.Error(t, err)
}
