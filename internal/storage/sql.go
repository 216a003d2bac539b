package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"naturequest/internal/database"
)

// SQL stores collections as rows of the collections table
type SQL struct {
	db database.DBTX
}

func NewSQL(db database.DBTX) *SQL {
	return &SQL{db: db}
}

func (s *SQL) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM collections WHERE name = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

func (s *SQL) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, s.db.GetDialect().UpsertCollection(), key, string(data), time.Now().UTC())
	return err
}

// SaveAll upserts every entry inside one transaction. When the adapter
// already runs on a transaction the entries join it.
func (s *SQL) SaveAll(ctx context.Context, entries map[string][]byte) error {
	db, ok := s.db.(*database.DB)
	if !ok {
		return s.saveEach(ctx, entries)
	}
	return db.WithTx(ctx, func(tx *database.Tx) error {
		return NewSQL(tx).saveEach(ctx, entries)
	})
}

func (s *SQL) saveEach(ctx context.Context, entries map[string][]byte) error {
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		if err := s.Save(ctx, key, entries[key]); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}
	return nil
}

// Close is a no-op; the connection belongs to the caller
func (s *SQL) Close() error { return nil }
