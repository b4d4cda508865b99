package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/nhle/eminus-watch/internal/model"
)

// Namespace names one persisted set.
type Namespace string

// The two sets the engine keeps. Their values double as the file names the
// original bot used, so existing state files keep working.
const (
	NamespaceSeen      Namespace = "eminus_tasks"
	NamespaceReminders Namespace = "reminders_sent"
)

var (
	// ErrCorrupt is returned when persisted content cannot be decoded. It is
	// never silently treated as an empty set.
	ErrCorrupt = errors.New("persisted set is corrupt")

	// ErrLocked is returned when another run holds the state lock.
	ErrLocked = errors.New("state is locked by another run")
)

// SetStore persists sets of opaque identifiers, one per namespace.
type SetStore interface {
	// Load returns the set stored under ns. Absent state yields an empty set.
	Load(ctx context.Context, ns Namespace) (*model.IDSet, error)

	// Save replaces the whole content of ns with set, preserving order.
	Save(ctx context.Context, ns Namespace, set *model.IDSet) error

	// SaveAll replaces several namespaces as one unit. On error none of
	// them is changed, within the limits each backend documents.
	SaveAll(ctx context.Context, sets map[Namespace]*model.IDSet) error

	// Close releases resources held by the store.
	Close() error
}

// Locker is implemented by stores that can guard a load→save cycle against
// concurrent runs. The returned function releases the lock.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// NotificationLog is implemented by stores that keep a history of the
// notifications each run produced.
type NotificationLog interface {
	RecordNotifications(ctx context.Context, ns []model.Notification) error
	RecentNotifications(ctx context.Context, limit int) ([]model.Notification, error)
}

// saveOrder returns the namespaces of sets with NamespaceReminders first and
// the rest sorted. Backends without multi-key transactions commit in this
// order, so an interrupted save can repeat a new-item notice but never a
// reminder.
func saveOrder(sets map[Namespace]*model.IDSet) []Namespace {
	order := make([]Namespace, 0, len(sets))
	if _, ok := sets[NamespaceReminders]; ok {
		order = append(order, NamespaceReminders)
	}
	for _, ns := range slices.Sorted(maps.Keys(sets)) {
		if ns != NamespaceReminders {
			order = append(order, ns)
		}
	}
	return order
}

// encodeSet renders a set as an indented JSON array of strings.
func encodeSet(set *model.IDSet) ([]byte, error) {
	data, err := json.MarshalIndent(set.Items(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding set: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeSet parses a JSON array of strings. Anything else, including an
// empty document or null, is reported as ErrCorrupt.
func decodeSet(data []byte) (*model.IDSet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrCorrupt)
	}

	var items []string
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return model.NewIDSet(items...), nil
}
