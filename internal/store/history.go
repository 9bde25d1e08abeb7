package store

import (
	"context"
	"fmt"
	"time"
)

// HistoryStore persists used-DJ names in the same database as the token
// record. The set grows until Reset; membership is exact string match.
type HistoryStore struct {
	store *SQLiteStore
}

// NewHistoryStore creates a HistoryStore sharing the SQLiteStore's database.
func NewHistoryStore(s *SQLiteStore) *HistoryStore {
	return &HistoryStore{store: s}
}

// Add marks a name as used with the current timestamp. Re-adding an already
// used name only bumps the timestamp.
func (h *HistoryStore) Add(ctx context.Context, name string) error {
	_, err := h.store.db.ExecContext(ctx, `
		INSERT INTO used_djs (name, used_at) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET used_at = excluded.used_at
	`, name, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark DJ used: %w", err)
	}
	return nil
}

// Names returns every used name, oldest first.
func (h *HistoryStore) Names(ctx context.Context) ([]string, error) {
	rows, err := h.store.db.QueryContext(ctx, "SELECT name FROM used_djs ORDER BY used_at")
	if err != nil {
		return nil, fmt.Errorf("failed to list used DJs: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Reset clears the used set entirely.
func (h *HistoryStore) Reset(ctx context.Context) error {
	if _, err := h.store.db.ExecContext(ctx, "DELETE FROM used_djs"); err != nil {
		return fmt.Errorf("failed to reset history: %w", err)
	}
	return nil
}
