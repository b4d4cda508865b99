package sync

import (
	"time"

	"github.com/nhle/eminus-watch/internal/clock"
	"github.com/nhle/eminus-watch/internal/model"
	"github.com/nhle/eminus-watch/internal/notify"
)

// Options holds the inputs of Reconcile besides the snapshot and the sets.
type Options struct {
	Now                   time.Time
	ReminderWindowMinutes int
}

// SkippedItem is a snapshot item the engine could not evaluate.
type SkippedItem struct {
	Item   model.Assignment
	Reason string
}

// Result is the outcome of one reconciliation.
type Result struct {
	// NewlyNew holds the items seen for the first time, in snapshot order.
	NewlyNew []model.Assignment

	// NewlyReminded holds the items that get their one reminder this run.
	NewlyReminded []model.Assignment

	// UpdatedSeen and UpdatedReminded are the sets to persist. They are
	// fresh copies; the input sets are never modified.
	UpdatedSeen     *model.IDSet
	UpdatedReminded *model.IDSet

	Skipped []SkippedItem
}

// Empty reports whether the run produced nothing to notify.
func (r Result) Empty() bool {
	return len(r.NewlyNew) == 0 && len(r.NewlyReminded) == 0
}

// Reconcile classifies every snapshot item against the sets from previous
// runs. It performs no I/O.
//
// An item is new when its ID is in neither seenBefore nor the IDs added
// earlier in this run. An item is reminded when its submission is open, its
// deadline falls inside the reminder window, and its reminder key is in
// neither remindedBefore nor this run's additions. Both checks are
// independent, so one item can be new and reminded at once.
func Reconcile(snapshot []model.Assignment, seenBefore, remindedBefore *model.IDSet, opts Options) Result {
	res := Result{
		UpdatedSeen:     seenBefore.Clone(),
		UpdatedReminded: remindedBefore.Clone(),
	}

	for _, item := range snapshot {
		switch {
		case item.ID == "":
			res.Skipped = append(res.Skipped, SkippedItem{Item: item, Reason: "missing id"})
			continue
		case item.Deadline.IsZero():
			res.Skipped = append(res.Skipped, SkippedItem{Item: item, Reason: "missing deadline"})
			continue
		}

		// UpdatedSeen starts as seenBefore, so a single lookup covers both
		// the previous runs and duplicates within this snapshot.
		if res.UpdatedSeen.Add(item.ID) {
			res.NewlyNew = append(res.NewlyNew, item)
		}

		if !item.DeliveryState.Open() {
			continue
		}
		if !clock.WithinReminderWindow(item.Deadline, opts.Now, opts.ReminderWindowMinutes) {
			continue
		}
		if res.UpdatedReminded.Add(item.ReminderKey()) {
			res.NewlyReminded = append(res.NewlyReminded, item)
		}
	}

	return res
}

// IntentOptions controls how BuildIntents renders a result.
type IntentOptions struct {
	Now                   time.Time
	ReminderWindowMinutes int
	Formatter             *notify.Formatter
}

// BuildIntents turns a result into notifications: new items first, then
// reminders, each in snapshot order.
func BuildIntents(res Result, opts IntentOptions) []notify.Intent {
	intents := make([]notify.Intent, 0, len(res.NewlyNew)+len(res.NewlyReminded))

	for _, item := range res.NewlyNew {
		intents = append(intents, newIntent(item, model.CategoryNewItem, notify.ColorNewItem, opts))
	}
	for _, item := range res.NewlyReminded {
		intents = append(intents, newIntent(item, model.CategoryReminder, notify.ColorReminder, opts))
	}

	return intents
}

func newIntent(item model.Assignment, category model.Category, color int, opts IntentOptions) notify.Intent {
	formatted := item.Deadline.Format(time.RFC3339)
	if opts.Formatter != nil {
		formatted = opts.Formatter.Format(item.Deadline)
	}

	return notify.Intent{
		AssignmentID:      item.ID,
		CourseName:        item.CourseName,
		Title:             item.Title,
		Deadline:          item.Deadline,
		FormattedDeadline: formatted,
		Category:          category,
		Color:             color,
		RemainingMinutes:  clock.RemainingMinutes(item.Deadline, opts.Now),
		WindowMinutes:     opts.ReminderWindowMinutes,
		CreatedAt:         opts.Now,
	}
}
