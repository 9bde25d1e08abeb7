// package store implements the persistence backends for the bot's token
// record and the guess-the-DJ history.
//
// A token blob is an opaque JSON document; the stores do not interpret it.
// Three backends exist: a durable sqlite-backed keyed store, a read-only
// environment blob, and a local file cache. Callers hold them as a ranked
// list and fall back down it when a backend reports absence or
// unavailability.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auxcord/internal/shared"
)

// TokenKey is the single logical key the bot's credential lives under.
const TokenKey = "main_token"

// ErrAbsent reports that a backend holds no token. It is a normal condition,
// not a failure; shared.ErrStoreUnavailable signals the backend itself is
// unreachable.
var ErrAbsent = errors.New("token not present")

// TokenStore abstracts where the OAuth token blob lives.
type TokenStore interface {
	// Name identifies the backend in logs.
	Name() string
	// Get returns the stored blob, ErrAbsent when none exists, or an
	// error wrapping shared.ErrStoreUnavailable when the backend cannot
	// be reached.
	Get(ctx context.Context) ([]byte, error)
	// Put persists the blob. Read-only backends return nil without
	// storing anything.
	Put(ctx context.Context, blob []byte) error
}

// SQLiteStore is the durable keyed token store.
type SQLiteStore struct {
	db  *sql.DB
	key string
}

// NewSQLiteStore creates a SQLiteStore over an already-migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, key: TokenKey}
}

func (s *SQLiteStore) Name() string { return "sqlite" }

// Get retrieves the token blob for the store's key.
func (s *SQLiteStore) Get(ctx context.Context) ([]byte, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, "SELECT blob FROM tokens WHERE key = ?", s.key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return []byte(blob), nil
}

// Put upserts the token blob under the store's key.
func (s *SQLiteStore) Put(ctx context.Context, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (key, blob, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at
	`, s.key, string(blob), time.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}
