package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterfall/internal/domain"
)

func TestOpen_CreatesSchema(t *testing.T) {
	s := createTestStore(t)

	for _, table := range []string{"waterfall_status", "executions", "offers", "log_entries", "meta"} {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestOpen_MigrationsSetVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	require.NoError(t, s.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var name string
	err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name='idx_offers_pending_deadline'`).Scan(&name)
	require.NoError(t, err)
}

func TestOpen_MigratesOlderDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec(`DROP INDEX idx_offers_pending_deadline`)
	require.NoError(t, err)
	_, err = s.DB().Exec(`PRAGMA user_version = 0`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var name string
	err = s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name='idx_offers_pending_deadline'`).Scan(&name)
	require.NoError(t, err, "migration recreates the index")
}

func TestOpen_RecordsEngineVersion(t *testing.T) {
	s := createTestStore(t)

	v, err := s.EngineVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.EngineVersion, v)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}
