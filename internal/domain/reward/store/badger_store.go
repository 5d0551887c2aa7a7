// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
	"github.com/dgraph-io/badger/v4"
)

// Key layout:
//   - def:<id>      JSON DefinitionRecord
//   - hist:<sess>   JSON []historyRow
//   - mail:<seq>    JSON mailRow
const (
	defPrefix  = "def:"
	histPrefix = "hist:"
	mailPrefix = "mail:"
)

type historyRow struct {
	RewardID uint32 `json:"r"`
	Seconds  int64  `json:"s"`
}

type mailRow struct {
	model.Mail
	CreatedAtMs int64 `json:"createdAtMs"`
}

// BadgerStore implements ports.Store on an embedded Badger database.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
	now func() time.Time
}

// OpenBadgerStore opens the Badger directory at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	seq, err := db.GetSequence([]byte("seq:mail"), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reward store: mail sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq, now: time.Now}, nil
}

func (s *BadgerStore) Close() error {
	_ = s.seq.Release()
	return s.db.Close()
}

func defKey(id model.RewardID) []byte { return []byte(fmt.Sprintf("%s%010d", defPrefix, id)) }

func histKey(id model.SessionID) []byte { return []byte(fmt.Sprintf("%s%020d", histPrefix, id)) }

func (s *BadgerStore) ListDefinitions(ctx context.Context) ([]model.DefinitionRecord, error) {
	var out []model.DefinitionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(defPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec model.DefinitionRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (s *BadgerStore) InsertDefinition(_ context.Context, rec model.DefinitionRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := defKey(rec.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("insert reward %d: %w", rec.ID, model.ErrDuplicateID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, buf)
	})
}

func (s *BadgerStore) DeleteDefinition(_ context.Context, id model.RewardID) (bool, error) {
	key := defKey(id)
	deleted := false
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		deleted = true
		return txn.Delete(key)
	})
	return deleted, err
}

func (s *BadgerStore) LoadHistory(_ context.Context, session model.SessionID) ([]model.HistoryEntry, error) {
	var rows []historyRow
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(histKey(session))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rows)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]model.HistoryEntry, len(rows))
	for i, r := range rows {
		out[i] = model.HistoryEntry{RewardID: model.RewardID(r.RewardID), Seconds: time.Duration(r.Seconds) * time.Second}
	}
	return out, nil
}

// ReplaceHistory overwrites every session's value in one Badger transaction.
func (s *BadgerStore) ReplaceHistory(_ context.Context, records map[model.SessionID][]model.HistoryEntry) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for session, entries := range records {
			if len(entries) == 0 {
				if err := txn.Delete(histKey(session)); err != nil {
					return err
				}
				continue
			}
			rows := make([]historyRow, len(entries))
			for i, e := range entries {
				rows[i] = historyRow{RewardID: uint32(e.RewardID), Seconds: int64(e.Seconds / time.Second)}
			}
			buf, err := json.Marshal(rows)
			if err != nil {
				return err
			}
			if err := txn.Set(histKey(session), buf); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) EnqueueMail(_ context.Context, m model.Mail) error {
	n, err := s.seq.Next()
	if err != nil {
		return err
	}
	buf, err := json.Marshal(mailRow{Mail: m, CreatedAtMs: s.now().UnixMilli()})
	if err != nil {
		return err
	}
	key := []byte(fmt.Sprintf("%s%020d", mailPrefix, n))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

// PendingMail lists queued offline deliveries, oldest first.
func (s *BadgerStore) PendingMail(_ context.Context) ([]model.Mail, error) {
	var out []model.Mail
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(mailPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var row mailRow
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			}); err != nil {
				return err
			}
			out = append(out, row.Mail)
		}
		return nil
	})
	return out, err
}
