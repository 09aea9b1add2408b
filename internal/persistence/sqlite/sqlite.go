// Package sqlite stores the collection slots in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/eventform/internal/persistence"
)

// Storage is a persistence.SlotStore backed by a single slots table.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

var _ persistence.SlotStore = (*Storage)(nil)

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg Config) (*Storage, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate applies every pending schema migration.
func (s *Storage) Migrate(ctx context.Context) error {
	return migrate(ctx, s.db, s.now)
}

// LoadSlots implements persistence.SlotStore.
func (s *Storage) LoadSlots(ctx context.Context, names ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(names))
	if len(names) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, len(names))
	for i, name := range names {
		args[i] = name
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, payload FROM slots WHERE name IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name    string
			payload []byte
		)
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, fmt.Errorf("sqlite: scan slot: %w", err)
		}
		out[name] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate slots: %w", err)
	}
	return out, nil
}

// SaveSlots implements persistence.SlotStore. Every slot is upserted in one
// transaction.
func (s *Storage) SaveSlots(ctx context.Context, slots map[string][]byte) error {
	if len(slots) == 0 {
		return nil
	}
	updatedAt := s.now().UTC().Format(time.RFC3339Nano)
	return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO slots (name, payload, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`)
		if err != nil {
			return fmt.Errorf("sqlite: prepare upsert: %w", err)
		}
		defer stmt.Close()

		for name, payload := range slots {
			if _, err := stmt.ExecContext(ctx, name, payload, updatedAt); err != nil {
				return fmt.Errorf("sqlite: upsert slot %s: %w", name, err)
			}
		}
		return nil
	})
}
