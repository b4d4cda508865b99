// Package notify delivers notification intents to the configured channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/eminus-watch/internal/logger"
	"github.com/nhle/eminus-watch/internal/model"
)

// Embed colors, matching the ones the bot has always used on Discord.
const (
	ColorNewItem  = 0x3498db
	ColorReminder = 0xff6b6b
)

// ErrSkipped is returned by dispatchers that deliberately did not deliver.
var ErrSkipped = errors.New("notification skipped")

// Intent is one notification computed by the engine.
type Intent struct {
	AssignmentID      string
	CourseName        string
	Title             string
	Deadline          time.Time
	FormattedDeadline string
	Category          model.Category
	Color             int
	RemainingMinutes  int
	WindowMinutes     int
	CreatedAt         time.Time
}

// Dispatcher delivers intents to one channel.
type Dispatcher interface {
	Name() string
	Send(ctx context.Context, in Intent) error
}

// Fanout sends every intent to all of its dispatchers concurrently. A failing
// channel does not stop the others.
type Fanout struct {
	dispatchers []Dispatcher
}

var _ Dispatcher = (*Fanout)(nil)

// NewFanout combines dispatchers.
func NewFanout(ds ...Dispatcher) *Fanout {
	return &Fanout{dispatchers: ds}
}

// Name lists the combined channel names.
func (f *Fanout) Name() string {
	names := make([]string, len(f.dispatchers))
	for i, d := range f.dispatchers {
		names[i] = d.Name()
	}
	return strings.Join(names, ",")
}

// Send delivers in to every channel and joins their errors.
func (f *Fanout) Send(ctx context.Context, in Intent) error {
	errs := make([]error, len(f.dispatchers))

	var g errgroup.Group
	for i, d := range f.dispatchers {
		g.Go(func() error {
			if err := d.Send(ctx, in); err != nil {
				errs[i] = fmt.Errorf("%s: %w", d.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// Options bounds a Dispatch call.
type Options struct {
	// Parallelism is the number of intents in flight. 1 keeps delivery
	// sequential and in order.
	Parallelism int

	// Timeout bounds each Send call. Zero means no extra bound.
	Timeout time.Duration
}

// Outcome is the delivery result of one intent.
type Outcome struct {
	Intent Intent
	Err    error
}

// Delivered reports whether the intent reached its channel.
func (o Outcome) Delivered() bool {
	return o.Err == nil
}

// Dispatch sends intents through d. Failures are logged and returned in the
// outcomes; they never abort the remaining deliveries.
func Dispatch(ctx context.Context, d Dispatcher, intents []Intent, opts Options) []Outcome {
	log := logger.FromContext(ctx)
	outcomes := make([]Outcome, len(intents))

	g := new(errgroup.Group)
	g.SetLimit(max(1, opts.Parallelism))

	for i, in := range intents {
		g.Go(func() error {
			sendCtx := ctx
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				sendCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}

			err := d.Send(sendCtx, in)
			outcomes[i] = Outcome{Intent: in, Err: err}

			switch {
			case err == nil:
				log.Info("Notification sent",
					"channel", d.Name(), "category", in.Category, "title", in.Title)
			case errors.Is(err, ErrSkipped):
				log.Debug("Notification not delivered", "category", in.Category, "title", in.Title)
			default:
				log.Error("Notification delivery failed",
					"channel", d.Name(), "category", in.Category, "title", in.Title, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// FromConfig builds a dispatcher for every configured channel. With none
// configured it returns a Log dispatcher that only records the skip.
func FromConfig(cfg model.NotifyConfig) (Dispatcher, error) {
	var ds []Dispatcher

	if cfg.DiscordWebhookURL != "" {
		d, err := NewDiscord(cfg.DiscordWebhookURL)
		if err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	if cfg.SlackWebhookURL != "" {
		ds = append(ds, NewSlack(cfg.SlackWebhookURL))
	}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		ds = append(ds, NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID))
	}
	if cfg.Email.Host != "" && cfg.Email.To != "" {
		e, err := NewEmail(cfg.Email)
		if err != nil {
			return nil, err
		}
		ds = append(ds, e)
	}

	switch len(ds) {
	case 0:
		return Log{}, nil
	case 1:
		return ds[0], nil
	default:
		return NewFanout(ds...), nil
	}
}
