package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/eminus-watch/internal/model"
)

const smtpDialTimeout = 30 * time.Second

// Email sends plain-text messages over SMTP.
type Email struct {
	cfg  model.EmailConfig
	from *mail.Address
	to   []*mail.Address

	// deliver is replaced in tests.
	deliver func(ctx context.Context, cfg model.EmailConfig, from string, to []string, body []byte) error
}

var _ Dispatcher = (*Email)(nil)

// NewEmail creates a dispatcher. cfg.To may hold a comma-separated list.
func NewEmail(cfg model.EmailConfig) (*Email, error) {
	if cfg.Port == "" {
		cfg.Port = "587"
	}

	fromRaw := cfg.From
	if fromRaw == "" {
		fromRaw = cfg.Username
	}
	from, err := mail.ParseAddress(fromRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid email sender %q: %w", fromRaw, err)
	}

	to, err := mail.ParseAddressList(cfg.To)
	if err != nil {
		return nil, fmt.Errorf("invalid email recipients %q: %w", cfg.To, err)
	}

	return &Email{cfg: cfg, from: from, to: to, deliver: sendSMTP}, nil
}

func (e *Email) Name() string { return "email" }

// Send composes and delivers the message.
func (e *Email) Send(ctx context.Context, in Intent) error {
	body, err := composeEmail(e.from, e.to, Render(in))
	if err != nil {
		return err
	}

	rcpts := make([]string, len(e.to))
	for i, a := range e.to {
		rcpts[i] = a.Address
	}

	return e.deliver(ctx, e.cfg, e.from.Address, rcpts, body)
}

// composeEmail renders msg as a single-part text/plain MIME message.
func composeEmail(from *mail.Address, to []*mail.Address, msg Message) ([]byte, error) {
	var h mail.Header
	h.SetDate(msg.Timestamp)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", to)
	h.SetSubject(msg.Title)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating mail writer: %w", err)
	}

	var text strings.Builder
	text.WriteString(plainText(msg.Description) + "\n\n")
	for _, f := range msg.Fields {
		text.WriteString(f.Name + ": " + plainText(f.Value) + "\n")
	}
	text.WriteString("\n-- \n" + msg.Footer + "\n")

	if _, err := w.Write([]byte(text.String())); err != nil {
		return nil, fmt.Errorf("writing email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing email body: %w", err)
	}

	return buf.Bytes(), nil
}

// sendSMTP delivers over implicit TLS when cfg.TLS is set, else STARTTLS.
func sendSMTP(ctx context.Context, cfg model.EmailConfig, from string, to []string, body []byte) error {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	tlsConfig := &tls.Config{ServerName: cfg.Host}

	var (
		conn net.Conn
		err  error
	)
	dialer := &net.Dialer{Timeout: smtpDialTimeout}
	if cfg.TLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if !cfg.TLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("SMTP STARTTLS: %w", err)
		}
	}

	if cfg.Username != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("SMTP RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}
