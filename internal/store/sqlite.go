package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/eminus-watch/internal/model"
)

// SQLiteStore keeps the sets, plus a notification history, in a local
// SQLite database.
type SQLiteStore struct {
	db   *sqlx.DB
	lock *FileLock
}

var (
	_ SetStore        = (*SQLiteStore)(nil)
	_ Locker          = (*SQLiteStore)(nil)
	_ NotificationLog = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection: the job is serial, and ":memory:" databases are
	// per-connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if dbPath != ":memory:" {
		s.lock = NewFileLock(dbPath + ".lock")
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Lock takes a file lock next to the database. In-memory databases need none.
func (s *SQLiteStore) Lock(ctx context.Context) (func() error, error) {
	if s.lock == nil {
		return func() error { return nil }, nil
	}
	return s.lock.Lock(ctx)
}

// Load returns the members of ns ordered by insertion position.
func (s *SQLiteStore) Load(ctx context.Context, ns Namespace) (*model.IDSet, error) {
	var members []string
	err := s.db.SelectContext(ctx, &members,
		"SELECT member FROM set_members WHERE namespace = ? ORDER BY position",
		string(ns),
	)
	if err != nil {
		return nil, fmt.Errorf("loading set %s: %w", ns, err)
	}
	return model.NewIDSet(members...), nil
}

// Save replaces the members of ns in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, ns Namespace, set *model.IDSet) error {
	return s.SaveAll(ctx, map[Namespace]*model.IDSet{ns: set})
}

// SaveAll replaces every namespace in sets inside one transaction.
func (s *SQLiteStore) SaveAll(ctx context.Context, sets map[Namespace]*model.IDSet) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		"INSERT INTO set_members (namespace, member, position) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, ns := range saveOrder(sets) {
		if _, err := tx.ExecContext(ctx, "DELETE FROM set_members WHERE namespace = ?", string(ns)); err != nil {
			return fmt.Errorf("clearing set %s: %w", ns, err)
		}
		for i, member := range sets[ns].Items() {
			if _, err := stmt.ExecContext(ctx, string(ns), member, i); err != nil {
				return fmt.Errorf("saving member %s of %s: %w", member, ns, err)
			}
		}
	}

	return tx.Commit()
}

// RecordNotifications appends notifications to the history table.
func (s *SQLiteStore) RecordNotifications(ctx context.Context, ns []model.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO notifications (
			id, run_id, assignment_id, category,
			course_name, title, deadline, delivered, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing notification insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range ns {
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		_, err := stmt.ExecContext(ctx,
			n.ID, n.RunID, n.AssignmentID, string(n.Category),
			n.CourseName, n.Title, n.Deadline.UTC(), boolToInt(n.Delivered), n.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("recording notification for %s: %w", n.AssignmentID, err)
		}
	}

	return tx.Commit()
}

// RecentNotifications returns up to limit notifications, newest first.
func (s *SQLiteStore) RecentNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, run_id, assignment_id, category, course_name, title,
		       deadline, delivered, created_at
		FROM notifications
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}

	return out, rows.Err()
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n         model.Notification
		category  string
		delivered int
	)

	err := rows.Scan(
		&n.ID, &n.RunID, &n.AssignmentID, &category,
		&n.CourseName, &n.Title, &n.Deadline, &delivered, &n.CreatedAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Category = model.Category(category)
	n.Delivered = delivered != 0

	return n, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
