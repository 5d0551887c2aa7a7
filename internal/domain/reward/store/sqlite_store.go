// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
	"github.com/ManuGH/playreward/internal/persistence/sqlite"
)

var schema = []sqlite.Migration{
	{Version: 1, SQL: `
	CREATE TABLE IF NOT EXISTS rewards (
		id INTEGER PRIMARY KEY,
		recurring INTEGER NOT NULL DEFAULT 0,
		seconds INTEGER NOT NULL,
		min_level INTEGER NOT NULL DEFAULT 1,
		items TEXT NOT NULL DEFAULT '',
		reputations TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS reward_history (
		session_id INTEGER NOT NULL,
		reward_id INTEGER NOT NULL,
		rewarded_seconds INTEGER NOT NULL,
		PRIMARY KEY (session_id, reward_id)
	);
	`},
	{Version: 2, SQL: `
	CREATE TABLE IF NOT EXISTS mail_external (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		receiver TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		item_id INTEGER NOT NULL,
		item_count INTEGER NOT NULL,
		sender_id INTEGER NOT NULL,
		created_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_mail_external_created ON mail_external(created_at_ms);
	`},
}

// SqliteStore implements ports.Store using SQLite.
type SqliteStore struct {
	DB  *sql.DB
	now func() time.Time
}

// NewSqliteStore opens (and migrates) the reward database at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	if err := sqlite.Migrate(db, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reward store: migration failed: %w", err)
	}

	return &SqliteStore{DB: db, now: time.Now}, nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

// --- Definitions ---

func (s *SqliteStore) ListDefinitions(ctx context.Context) ([]model.DefinitionRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, recurring, seconds, min_level, items, reputations FROM rewards ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DefinitionRecord
	for rows.Next() {
		var (
			rec       model.DefinitionRecord
			id        int64
			recurring int
		)
		if err := rows.Scan(&id, &recurring, &rec.ThresholdSeconds, &rec.MinLevel, &rec.Items, &rec.Reputations); err != nil {
			return nil, err
		}
		rec.ID = model.RewardID(id)
		rec.Recurring = recurring != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SqliteStore) InsertDefinition(ctx context.Context, rec model.DefinitionRecord) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO rewards (id, recurring, seconds, min_level, items, reputations) VALUES (?, ?, ?, ?, ?, ?)`,
		int64(rec.ID), boolToInt(rec.Recurring), rec.ThresholdSeconds, rec.MinLevel, rec.Items, rec.Reputations)
	return err
}

func (s *SqliteStore) DeleteDefinition(ctx context.Context, id model.RewardID) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM rewards WHERE id = ?`, int64(id))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// --- History ---

func (s *SqliteStore) LoadHistory(ctx context.Context, session model.SessionID) ([]model.HistoryEntry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT reward_id, rewarded_seconds FROM reward_history WHERE session_id = ?`, int64(session))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var rewardID, secs int64
		if err := rows.Scan(&rewardID, &secs); err != nil {
			return nil, err
		}
		out = append(out, model.HistoryEntry{RewardID: model.RewardID(rewardID), Seconds: time.Duration(secs) * time.Second})
	}
	return out, rows.Err()
}

// ReplaceHistory deletes and re-inserts the rows of every given session inside
// one transaction.
func (s *SqliteStore) ReplaceHistory(ctx context.Context, records map[model.SessionID][]model.HistoryEntry) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	del, err := tx.PrepareContext(ctx, `DELETE FROM reward_history WHERE session_id = ?`)
	if err != nil {
		return err
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx,
		`INSERT INTO reward_history (session_id, reward_id, rewarded_seconds) VALUES (?, ?, ?)
		 ON CONFLICT(session_id, reward_id) DO UPDATE SET rewarded_seconds = excluded.rewarded_seconds`)
	if err != nil {
		return err
	}
	defer ins.Close()

	for _, session := range sortedSessions(records) {
		if _, err := del.ExecContext(ctx, int64(session)); err != nil {
			return fmt.Errorf("delete history %d: %w", session, err)
		}
		for _, e := range records[session] {
			if _, err := ins.ExecContext(ctx, int64(session), int64(e.RewardID), int64(e.Seconds/time.Second)); err != nil {
				return fmt.Errorf("insert history %d/%d: %w", session, e.RewardID, err)
			}
		}
	}

	return tx.Commit()
}

// --- Offline mail ---

func (s *SqliteStore) EnqueueMail(ctx context.Context, m model.Mail) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO mail_external (receiver, subject, body, item_id, item_count, sender_id, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Receiver, m.Subject, m.Body, int64(m.ItemID), int64(m.Count), int64(m.SenderID), s.now().UnixMilli())
	return err
}

// PendingMail lists queued offline deliveries, oldest first.
func (s *SqliteStore) PendingMail(ctx context.Context) ([]model.Mail, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT receiver, subject, body, item_id, item_count, sender_id FROM mail_external ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Mail
	for rows.Next() {
		var (
			m                       model.Mail
			itemID, count, senderID int64
		)
		if err := rows.Scan(&m.Receiver, &m.Subject, &m.Body, &itemID, &count, &senderID); err != nil {
			return nil, err
		}
		m.ItemID, m.Count, m.SenderID = uint32(itemID), uint32(count), uint32(senderID)
		out = append(out, m)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sortedSessions(records map[model.SessionID][]model.HistoryEntry) []model.SessionID {
	ids := make([]model.SessionID, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
