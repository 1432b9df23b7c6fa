package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/waterfall/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a database created by an older schema.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations run in order for every version above the database's
// user_version. schema.sql always describes the latest layout, so a fresh
// database runs them as no-ops.
var migrations = []migration{
	{
		version: 1,
		name:    "pending offer deadline index",
		stmt: `CREATE INDEX IF NOT EXISTS idx_offers_pending_deadline
			ON offers(deadline) WHERE state = 'pending'`,
	},
}

// currentSchemaVersion is the version of the last migration.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store provides durable storage for waterfall executions and their log.
// Uses SQLite with WAL mode for concurrent read access.
//
// Store implements engine.Log, engine.SequencedLog and engine.Persistence.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically, and records the
// engine version that last opened the database.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement (offers cascade with their execution)
//
// Open is idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database %s: %w", path, err)
	}

	// One writer: executions for different loads are saved from parallel
	// sweeps, so they share a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	steps := []struct {
		name string
		fn   func(*sql.DB) error
	}{
		{"apply pragmas", applyPragmas},
		{"apply schema", applySchema},
		{"record engine version", recordEngineVersion},
	}
	for _, step := range steps {
		if err := step.fn(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EngineVersion returns the engine version that last opened the database.
func (s *Store) EngineVersion(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'engine_version'`).Scan(&v)
	if err != nil {
		return "", fmt.Errorf("read engine version: %w", err)
	}
	return v, nil
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates missing tables and runs pending migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func recordEngineVersion(db *sql.DB) error {
	_, err := db.Exec(`
		INSERT INTO meta (key, value) VALUES ('engine_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, domain.EngineVersion)
	return err
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
