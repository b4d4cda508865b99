package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS set_members (
	namespace TEXT    NOT NULL,
	member    TEXT    NOT NULL,
	position  INTEGER NOT NULL,
	PRIMARY KEY (namespace, member)
);

CREATE INDEX IF NOT EXISTS idx_set_members_position ON set_members(namespace, position);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS notifications (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL,
	assignment_id TEXT NOT NULL,
	category      TEXT NOT NULL CHECK(category IN ('new-item', 'reminder')),
	course_name   TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	deadline      DATETIME NOT NULL,
	delivered     INTEGER NOT NULL DEFAULT 0 CHECK(delivered IN (0, 1)),
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_assignment ON notifications(assignment_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
