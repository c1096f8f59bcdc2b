package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nhle/mailhub/internal/model"
)

// SQLiteStore implements the Store interface on top of a local SQLite
// database. Each collection is kept in memory and persisted as a single
// JSON document; a mutation writes the whole collection and only becomes
// visible once that write has succeeded.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *zap.Logger

	accountsMu sync.Mutex
	accounts   []model.Account

	messagesMu sync.Mutex
	messages   []model.Message

	settingsMu sync.Mutex
	settings   model.Settings
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, runs any pending schema migrations and loads all
// collections. A collection that cannot be decoded is replaced by its
// default and logged.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:       db,
		logger:   logger,
		settings: model.DefaultSettings(),
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if err := s.loadAll(context.Background()); err != nil {
		db.Close()
		return nil, err
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

func (s *SQLiteStore) loadAll(ctx context.Context) error {
	var accounts []model.Account
	if err := s.load(ctx, collectionAccounts, &accounts); err != nil {
		return err
	}
	var messages []model.Message
	if err := s.load(ctx, collectionMessages, &messages); err != nil {
		return err
	}
	settings := model.DefaultSettings()
	if err := s.load(ctx, collectionSettings, &settings); err != nil {
		return err
	}

	s.accounts = accounts
	s.messages = messages
	s.settings = settings
	return nil
}

// load decodes the named collection into v. A missing row leaves v
// untouched. A row that fails to decode is logged and v is reset to
// its zero value, except for settings which fall back to defaults.
func (s *SQLiteStore) load(ctx context.Context, name string, v any) error {
	var data string
	err := s.db.GetContext(ctx, &data, "SELECT data FROM collections WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading collection %s: %w", name, err)
	}

	if err := json.Unmarshal([]byte(data), v); err != nil {
		s.logger.Warn("collection is corrupt, using defaults",
			zap.String("collection", name),
			zap.Error(err),
		)
		switch p := v.(type) {
		case *[]model.Account:
			*p = nil
		case *[]model.Message:
			*p = nil
		case *model.Settings:
			*p = model.DefaultSettings()
		}
	}
	return nil
}

// save writes the whole collection in one statement.
func (s *SQLiteStore) save(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling collection %s: %w", name, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO collections (name, data, updated_at)
		VALUES (?, ?, ?)`,
		name, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving collection %s: %w", name, err)
	}
	return nil
}
