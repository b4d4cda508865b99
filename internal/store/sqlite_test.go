package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/eminus-watch/internal/model"
	"github.com/nhle/eminus-watch/internal/store"
	"github.com/nhle/eminus-watch/tests/testutil"
)

func TestSQLiteStoreEmptyNamespace(t *testing.T) {
	s := testutil.NewTestStore(t)

	set, err := s.Load(context.Background(), store.NamespaceSeen)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.Save(ctx, store.NamespaceSeen, model.NewIDSet("b", "a", "c")))
	require.NoError(t, s.Save(ctx, store.NamespaceReminders, model.NewIDSet("a_reminder")))

	seen, err := s.Load(ctx, store.NamespaceSeen)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, seen.Items())

	require.NoError(t, s.Save(ctx, store.NamespaceSeen, model.NewIDSet("c")))
	seen, err = s.Load(ctx, store.NamespaceSeen)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, seen.Items())

	reminded, err := s.Load(ctx, store.NamespaceReminders)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_reminder"}, reminded.Items(), "namespaces are independent")
}

func TestSQLiteStoreSaveAll(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	require.NoError(t, s.Save(ctx, store.NamespaceSeen, model.NewIDSet("old")))

	require.NoError(t, s.SaveAll(ctx, map[store.Namespace]*model.IDSet{
		store.NamespaceSeen:      model.NewIDSet("A1", "A2"),
		store.NamespaceReminders: model.NewIDSet("A1_reminder"),
	}))

	seen, err := s.Load(ctx, store.NamespaceSeen)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, seen.Items())
	reminded, err := s.Load(ctx, store.NamespaceReminders)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1_reminder"}, reminded.Items())
}

func TestSQLiteStoreNotificationHistory(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	deadline := time.Date(2025, 2, 14, 23, 59, 0, 0, time.UTC)
	base := time.Date(2025, 2, 14, 23, 50, 0, 0, time.UTC)
	err := s.RecordNotifications(ctx, []model.Notification{
		{RunID: "r1", AssignmentID: "A1", Category: model.CategoryNewItem, Title: "Ensayo", Deadline: deadline, Delivered: true, CreatedAt: base},
		{RunID: "r1", AssignmentID: "A1", Category: model.CategoryReminder, Title: "Ensayo", Deadline: deadline, CreatedAt: base.Add(time.Second)},
	})
	require.NoError(t, err)

	got, err := s.RecentNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, model.CategoryReminder, got[0].Category)
	assert.False(t, got[0].Delivered)
	assert.Equal(t, model.CategoryNewItem, got[1].Category)
	assert.True(t, got[1].Delivered)
	assert.NotEmpty(t, got[1].ID)
	assert.True(t, got[1].Deadline.Equal(deadline))
}

func TestSQLiteStoreFileLock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	a, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer a.Close()

	b, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer b.Close()

	unlock, err := a.Lock(ctx)
	require.NoError(t, err)

	_, err = b.Lock(ctx)
	require.ErrorIs(t, err, store.ErrLocked)

	require.NoError(t, unlock())
}
