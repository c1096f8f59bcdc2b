package store

// migration is one schema step applied by runMigrations.
type migration struct {
	version int
	sql     string
}

// migrations are applied in order; versions start at 1 with no gaps.
// Each collection is stored whole as a JSON document keyed by name.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS collections (
	name       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
