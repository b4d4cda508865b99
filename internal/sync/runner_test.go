package sync

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/eminus-watch/internal/model"
	"github.com/nhle/eminus-watch/internal/notify"
	"github.com/nhle/eminus-watch/internal/source"
	"github.com/nhle/eminus-watch/internal/store"
	"github.com/nhle/eminus-watch/tests/testutil"
)

type fakePortal struct {
	authErr  error
	fetchErr error
	snapshot *source.Snapshot

	authCalls  int
	fetchCalls int
}

func (p *fakePortal) Authenticate(_ context.Context, creds source.Credentials) (string, error) {
	p.authCalls++
	if p.authErr != nil {
		return "", p.authErr
	}
	return "token-" + creds.Username, nil
}

func (p *fakePortal) FetchSnapshot(_ context.Context, token string, _ time.Time) (*source.Snapshot, error) {
	p.fetchCalls++
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	if token != "token-zs123" {
		return nil, &source.FetchError{Op: "courses", Status: 401}
	}
	return p.snapshot, nil
}

type fakeDispatcher struct {
	err  error
	sent []notify.Intent
}

func (d *fakeDispatcher) Name() string { return "fake" }

func (d *fakeDispatcher) Send(_ context.Context, in notify.Intent) error {
	d.sent = append(d.sent, in)
	return d.err
}

var testCreds = source.Credentials{Username: "zs123", Password: "secret"}

func testSnapshot() *source.Snapshot {
	return &source.Snapshot{
		CoursesTotal:  3,
		CoursesRecent: 1,
		Items: []model.Assignment{
			item("A1", now.Add(5*time.Minute), model.DeliveryOpen),
			item("A2", now.Add(48*time.Hour), model.DeliveryOpen),
		},
		Rejected: []source.Rejected{{ID: "A3", Reason: "invalid deadline"}},
	}
}

func newTestRunner(portal source.Portal, st store.SetStore, d notify.Dispatcher) *Runner {
	return NewRunner(portal, st, d, testCreds,
		RunnerConfig{ReminderWindowMinutes: 10, Parallelism: 1, NotifyTimeout: time.Second},
		WithClock(func() time.Time { return now }),
	)
}

func TestRunnerFirstAndSecondRun(t *testing.T) {
	ctx := context.Background()
	st := store.NewFileStore(t.TempDir())
	d := &fakeDispatcher{}
	r := newTestRunner(&fakePortal{snapshot: testSnapshot()}, st, d)

	summary, err := r.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.NewItems)
	assert.Equal(t, 1, summary.Reminders)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, 3, summary.Delivered())

	require.Len(t, d.sent, 3)
	assert.Equal(t, model.CategoryNewItem, d.sent[0].Category)
	assert.Equal(t, model.CategoryNewItem, d.sent[1].Category)
	assert.Equal(t, model.CategoryReminder, d.sent[2].Category)

	seen, err := st.Load(ctx, store.NamespaceSeen)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, seen.Items())
	reminded, err := st.Load(ctx, store.NamespaceReminders)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1_reminder"}, reminded.Items())

	d.sent = nil
	summary, err = r.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, summary.NewItems)
	assert.Zero(t, summary.Reminders)
	assert.Empty(t, d.sent)
}

func TestRunnerFatalErrorsLeaveStateUntouched(t *testing.T) {
	tests := []struct {
		name   string
		portal *fakePortal
		check  func(t *testing.T, err error)
	}{
		{
			name:   "auth failure",
			portal: &fakePortal{authErr: &source.AuthError{Reason: source.ReasonInvalidCredentials, Status: 401}},
			check: func(t *testing.T, err error) {
				assert.True(t, source.IsAuthError(err))
				assert.Equal(t, source.ReasonInvalidCredentials, source.ReasonOf(err))
			},
		},
		{
			name:   "fetch failure",
			portal: &fakePortal{fetchErr: &source.FetchError{Op: "courses", Err: errors.New("connection reset")}},
			check: func(t *testing.T, err error) {
				assert.True(t, source.IsFetchError(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			st := store.NewFileStore(dir)
			d := &fakeDispatcher{}

			_, err := newTestRunner(tt.portal, st, d).Run(context.Background(), RunOptions{})
			require.Error(t, err)
			tt.check(t, err)

			assert.Empty(t, d.sent)
			_, statErr := os.Stat(st.Path(store.NamespaceSeen))
			assert.True(t, os.IsNotExist(statErr), "no state written")
		})
	}
}

func TestRunnerMissingCredentials(t *testing.T) {
	portal := &fakePortal{snapshot: testSnapshot()}
	r := NewRunner(portal, store.NewFileStore(t.TempDir()), &fakeDispatcher{},
		source.Credentials{Username: "zs123"}, RunnerConfig{ReminderWindowMinutes: 10})

	_, err := r.Run(context.Background(), RunOptions{})
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.Zero(t, portal.authCalls)
}

func TestRunnerCorruptStateIsFatal(t *testing.T) {
	dir := t.TempDir()
	st := store.NewFileStore(dir)
	require.NoError(t, os.WriteFile(st.Path(store.NamespaceReminders), []byte(`{"oops":`), 0o644))
	d := &fakeDispatcher{}

	_, err := newTestRunner(&fakePortal{snapshot: testSnapshot()}, st, d).Run(context.Background(), RunOptions{})
	require.ErrorIs(t, err, store.ErrCorrupt)
	assert.Empty(t, d.sent)

	_, statErr := os.Stat(st.Path(store.NamespaceSeen))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunnerDispatchFailureStillPersists(t *testing.T) {
	ctx := context.Background()
	st := store.NewFileStore(t.TempDir())
	d := &fakeDispatcher{err: errors.New("webhook down")}

	summary, err := newTestRunner(&fakePortal{snapshot: testSnapshot()}, st, d).Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, summary.Delivered())

	seen, err := st.Load(ctx, store.NamespaceSeen)
	require.NoError(t, err)
	assert.Equal(t, 2, seen.Len())
}

func TestRunnerDryRun(t *testing.T) {
	st := store.NewFileStore(t.TempDir())
	d := &fakeDispatcher{}

	summary, err := newTestRunner(&fakePortal{snapshot: testSnapshot()}, st, d).Run(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Len(t, summary.Intents, 3)
	assert.Empty(t, summary.Outcomes)
	assert.Empty(t, d.sent)

	_, statErr := os.Stat(st.Path(store.NamespaceSeen))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunnerLockHeld(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	holder := store.NewFileStore(dir)
	unlock, err := holder.Lock(ctx)
	require.NoError(t, err)
	defer unlock()

	portal := &fakePortal{snapshot: testSnapshot()}
	_, err = newTestRunner(portal, store.NewFileStore(dir), &fakeDispatcher{}).Run(ctx, RunOptions{})
	require.ErrorIs(t, err, store.ErrLocked)
	assert.Zero(t, portal.authCalls)
}

func TestRunnerRecordsHistory(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)
	d := &fakeDispatcher{}

	summary, err := newTestRunner(&fakePortal{snapshot: testSnapshot()}, st, d).Run(ctx, RunOptions{})
	require.NoError(t, err)

	history, err := st.RecentNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for _, n := range history {
		assert.Equal(t, summary.RunID, n.RunID)
		assert.True(t, n.Delivered)
	}
}

func TestRunnerSaveFailureKeepsSetsConsistent(t *testing.T) {
	ctx := context.Background()
	st := store.NewFileStore(t.TempDir())
	blocked := st.Path(store.NamespaceReminders) + ".tmp"
	require.NoError(t, os.MkdirAll(blocked, 0o755))

	d := &fakeDispatcher{}
	r := newTestRunner(&fakePortal{snapshot: testSnapshot()}, st, d)

	_, err := r.Run(ctx, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving state")
	require.Len(t, d.sent, 3)

	for _, ns := range []store.Namespace{store.NamespaceSeen, store.NamespaceReminders} {
		_, statErr := os.Stat(st.Path(ns))
		assert.True(t, os.IsNotExist(statErr), "%s left untouched", ns)
	}

	require.NoError(t, os.Remove(blocked))
	first := d.sent
	d.sent = nil

	_, err = r.Run(ctx, RunOptions{})
	require.NoError(t, err)
	require.Len(t, d.sent, len(first))
	for i := range first {
		assert.Equal(t, first[i].AssignmentID, d.sent[i].AssignmentID)
		assert.Equal(t, first[i].Category, d.sent[i].Category)
	}

	d.sent = nil
	_, err = r.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, d.sent)
}
