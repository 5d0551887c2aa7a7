// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"database/sql"
	"fmt"
)

// Migration upgrades the schema to Version. Steps run inside one transaction
// together with the PRAGMA user_version bump.
type Migration struct {
	Version int
	SQL     string
}

// SchemaVersion reports the PRAGMA user_version of db.
func SchemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("sqlite: read user_version: %w", err)
	}
	return v, nil
}

// Migrate applies every migration whose Version is above the current
// user_version, in the order given. Migrations must be sorted ascending.
func Migrate(db *sql.DB, migrations []Migration) error {
	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	target := current
	for _, m := range migrations {
		if m.Version > target {
			target = m.Version
		}
	}
	if target == current {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			return fmt.Errorf("sqlite: migration %d: %w", m.Version, err)
		}
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
		return err
	}
	return tx.Commit()
}
