package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/eminus-watch/internal/logger"
	"github.com/nhle/eminus-watch/internal/model"
	"github.com/nhle/eminus-watch/internal/notify"
	"github.com/nhle/eminus-watch/internal/source"
	"github.com/nhle/eminus-watch/internal/store"
)

// ErrMissingCredentials is returned when the portal username or password is
// not configured.
var ErrMissingCredentials = errors.New("missing portal credentials")

// RunnerConfig holds the tunables of a run.
type RunnerConfig struct {
	ReminderWindowMinutes int
	Parallelism           int
	NotifyTimeout         time.Duration
}

// RunOptions controls a single run.
type RunOptions struct {
	// DryRun computes the notifications without sending them or saving
	// state.
	DryRun bool
}

// Summary describes what a run did.
type Summary struct {
	RunID         string
	StartedAt     time.Time
	CoursesTotal  int
	CoursesRecent int
	Assignments   int
	Rejected      int
	Skipped       int
	NewItems      int
	Reminders     int
	Intents       []notify.Intent
	Outcomes      []notify.Outcome
	DryRun        bool
}

// Delivered counts the intents that reached a channel.
func (s *Summary) Delivered() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Delivered() {
			n++
		}
	}
	return n
}

// Runner performs one authenticate, fetch, reconcile, notify and persist
// cycle.
type Runner struct {
	portal     source.Portal
	store      store.SetStore
	dispatcher notify.Dispatcher
	formatter  *notify.Formatter
	creds      source.Credentials
	cfg        RunnerConfig
	now        func() time.Time
}

// RunnerOption configures NewRunner.
type RunnerOption func(*Runner)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// WithFormatter sets the deadline formatter used in notifications.
func WithFormatter(f *notify.Formatter) RunnerOption {
	return func(r *Runner) {
		r.formatter = f
	}
}

// NewRunner wires a runner from its collaborators.
func NewRunner(
	portal source.Portal,
	st store.SetStore,
	dispatcher notify.Dispatcher,
	creds source.Credentials,
	cfg RunnerConfig,
	opts ...RunnerOption,
) *Runner {
	r := &Runner{
		portal:     portal,
		store:      st,
		dispatcher: dispatcher,
		creds:      creds,
		cfg:        cfg,
		now:        time.Now,
		formatter:  notify.NewFormatter("es-MX", time.UTC),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one cycle. Any returned error is fatal for the run; per-item
// problems and notification failures are logged and reported in the summary.
// State is only written after a successful fetch.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	runID := uuid.New().String()
	ctx = logger.WithValues(ctx, "run_id", runID)
	log := logger.FromContext(ctx)

	now := r.now()
	summary := &Summary{RunID: runID, StartedAt: now, DryRun: opts.DryRun}

	if r.creds.Username == "" || r.creds.Password == "" {
		return summary, ErrMissingCredentials
	}

	if locker, ok := r.store.(store.Locker); ok {
		unlock, err := locker.Lock(ctx)
		if err != nil {
			return summary, fmt.Errorf("locking state: %w", err)
		}
		defer func() {
			if uerr := unlock(); uerr != nil {
				log.Warn("Failed to release state lock", "err", uerr)
			}
		}()
	}

	log.Info("Logging in to portal")
	token, err := r.portal.Authenticate(ctx, r.creds)
	if err != nil {
		return summary, fmt.Errorf("authenticating: %w", err)
	}

	snap, err := r.portal.FetchSnapshot(ctx, token, now)
	if err != nil {
		return summary, fmt.Errorf("fetching assignments: %w", err)
	}
	summary.CoursesTotal = snap.CoursesTotal
	summary.CoursesRecent = snap.CoursesRecent
	summary.Assignments = len(snap.Items)
	summary.Rejected = len(snap.Rejected)
	log.Info("Fetched assignments",
		"courses_recent", snap.CoursesRecent,
		"courses_total", snap.CoursesTotal,
		"assignments", len(snap.Items),
	)
	for _, rej := range snap.Rejected {
		log.Warn("Skipping assignment", "id", rej.ID, "title", rej.Title, "course_id", rej.CourseID, "reason", rej.Reason)
	}

	seen, err := r.store.Load(ctx, store.NamespaceSeen)
	if err != nil {
		return summary, fmt.Errorf("loading seen items: %w", err)
	}
	reminded, err := r.store.Load(ctx, store.NamespaceReminders)
	if err != nil {
		return summary, fmt.Errorf("loading sent reminders: %w", err)
	}
	log.Debug("Loaded state", "seen", seen.Len(), "reminded", reminded.Len())

	res := Reconcile(snap.Items, seen, reminded, Options{
		Now:                   now,
		ReminderWindowMinutes: r.cfg.ReminderWindowMinutes,
	})
	summary.Skipped = len(res.Skipped)
	summary.NewItems = len(res.NewlyNew)
	summary.Reminders = len(res.NewlyReminded)
	for _, sk := range res.Skipped {
		log.Warn("Skipping assignment", "id", sk.Item.ID, "title", sk.Item.Title, "reason", sk.Reason)
	}

	summary.Intents = BuildIntents(res, IntentOptions{
		Now:                   now,
		ReminderWindowMinutes: r.cfg.ReminderWindowMinutes,
		Formatter:             r.formatter,
	})

	if opts.DryRun {
		log.Info("Dry run: nothing sent, state unchanged", "intents", len(summary.Intents))
		return summary, nil
	}

	summary.Outcomes = notify.Dispatch(ctx, r.dispatcher, summary.Intents, notify.Options{
		Parallelism: r.cfg.Parallelism,
		Timeout:     r.cfg.NotifyTimeout,
	})

	if err := r.store.SaveAll(ctx, map[store.Namespace]*model.IDSet{
		store.NamespaceSeen:      res.UpdatedSeen,
		store.NamespaceReminders: res.UpdatedReminded,
	}); err != nil {
		return summary, fmt.Errorf("saving state: %w", err)
	}

	if history, ok := r.store.(store.NotificationLog); ok {
		if err := history.RecordNotifications(ctx, notifications(runID, summary.Outcomes)); err != nil {
			log.Warn("Failed to record notification history", "err", err)
		}
	}

	logSummary(log, summary)
	return summary, nil
}

func notifications(runID string, outcomes []notify.Outcome) []model.Notification {
	out := make([]model.Notification, len(outcomes))
	for i, o := range outcomes {
		out[i] = model.Notification{
			RunID:        runID,
			AssignmentID: o.Intent.AssignmentID,
			Category:     o.Intent.Category,
			CourseName:   o.Intent.CourseName,
			Title:        o.Intent.Title,
			Deadline:     o.Intent.Deadline,
			Delivered:    o.Delivered(),
			CreatedAt:    o.Intent.CreatedAt,
		}
	}
	return out
}

func logSummary(log logger.Logger, s *Summary) {
	if s.NewItems == 0 && s.Reminders == 0 {
		log.Info("No new activities or pending reminders")
		return
	}
	log.Info("Run completed",
		"new_items", s.NewItems,
		"reminders", s.Reminders,
		"delivered", s.Delivered(),
	)
}
