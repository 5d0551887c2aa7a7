// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyIntegrity_HealthyThenCorrupted(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "corruptible.sqlite")

	db, err := Open(dbPath, DefaultConfig())
	require.NoError(t, err)

	_, err = db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, data TEXT);")
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		_, err = db.Exec("INSERT INTO test (data) VALUES (?)", string(make([]byte, 100)))
		require.NoError(t, err)
	}
	_, err = db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	issues, err := VerifyIntegrity(dbPath, ModeQuick)
	require.NoError(t, err)
	require.Nil(t, issues)

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0o644)
	require.NoError(t, err)
	garbage := make([]byte, 100)
	_, _ = rand.Read(garbage)
	_, err = f.WriteAt(garbage, 4096)
	require.NoError(t, f.Close())
	require.NoError(t, err)

	issues, err = VerifyIntegrity(dbPath, ModeFull)
	require.NoError(t, err)
	assert.NotNil(t, issues, "corruption should be detected")
}

func TestMigrate_AppliesOnceAndBumpsVersion(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "m.sqlite"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrations := []Migration{
		{Version: 1, SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY)"},
		{Version: 2, SQL: "ALTER TABLE a ADD COLUMN name TEXT"},
	}
	require.NoError(t, Migrate(db, migrations))

	v, err := SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// Second run is a no-op; re-running the ALTER would fail.
	require.NoError(t, Migrate(db, migrations))

	_, err = db.Exec("INSERT INTO a (id, name) VALUES (1, 'x')")
	require.NoError(t, err)
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "m.sqlite"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	err = Migrate(db, []Migration{
		{Version: 1, SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY)"},
		{Version: 2, SQL: "THIS IS NOT SQL"},
	})
	require.Error(t, err)

	v, err := SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}
