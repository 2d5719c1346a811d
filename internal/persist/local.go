package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/weekplanner/internal/model"
)

// Document keys. They mirror the names the planner has always used for
// its saved state, so an upgraded install keeps its data.
const (
	keyTasks    = "weeklyPlannerTasks"
	keySettings = "timeSlotSettings"

	// FlagShowHowToUse controls the visibility of the usage banner.
	FlagShowHowToUse = "showHowToUse"
)

// Local is the on-disk document store backing anonymous sessions and
// the fallback path for failed cloud writes. Each document is a JSON
// value stored under a well-known key.
type Local struct {
	db *sqlx.DB
}

// NewLocal opens (or creates) a SQLite database at dbPath, enables WAL
// mode, and runs any pending schema migrations.
func NewLocal(dbPath string) (*Local, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Local{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Local) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Local) runMigrations() error {
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

// Name identifies the backend in status messages.
func (s *Local) Name() string {
	return "local"
}

// SaveTasks stores the full task list as a single JSON document. The
// uid is ignored; local storage is per machine, not per user.
func (s *Local) SaveTasks(ctx context.Context, _ string, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	return s.putDocument(ctx, keyTasks, tasks)
}

// LoadTasks reads the stored task list. A missing document yields
// Exists=false with no error.
func (s *Local) LoadTasks(ctx context.Context, _ string) (TasksResult, error) {
	var tasks []model.Task
	found, err := s.getDocument(ctx, keyTasks, &tasks)
	if err != nil {
		return TasksResult{}, err
	}
	if !found {
		return TasksResult{}, nil
	}
	return TasksResult{Exists: true, Tasks: tasks}, nil
}

// SaveSettings stores the slot settings as a single JSON document.
func (s *Local) SaveSettings(ctx context.Context, _ string, settings model.SlotSettings) error {
	return s.putDocument(ctx, keySettings, settings)
}

// LoadSettings reads the stored slot settings. A missing document
// yields Exists=false with no error.
func (s *Local) LoadSettings(ctx context.Context, _ string) (SettingsResult, error) {
	var settings model.SlotSettings
	found, err := s.getDocument(ctx, keySettings, &settings)
	if err != nil {
		return SettingsResult{}, err
	}
	if !found {
		return SettingsResult{}, nil
	}
	return SettingsResult{Exists: true, Settings: settings}, nil
}

// SaveFlag stores a named boolean preference.
func (s *Local) SaveFlag(ctx context.Context, name string, value bool) error {
	return s.putDocument(ctx, name, value)
}

// LoadFlag reads a named boolean preference, returning def when the
// flag has never been written or cannot be read.
func (s *Local) LoadFlag(ctx context.Context, name string, def bool) bool {
	var value bool
	found, err := s.getDocument(ctx, name, &value)
	if err != nil || !found {
		return def
	}
	return value
}

// putDocument marshals value and upserts it under key.
func (s *Local) putDocument(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling document %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (key, value, updated_at)
		VALUES (?, ?, ?)`,
		key, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing document %s: %w", key, err)
	}

	return nil
}

// getDocument reads the document under key into dest, reporting whether
// a document was found.
func (s *Local) getDocument(ctx context.Context, key string, dest interface{}) (bool, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, "SELECT value FROM documents WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading document %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("unmarshaling document %s: %w", key, err)
	}

	return true, nil
}
