package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"auxcord/internal/shared"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Get Absent", func(t *testing.T) {
		s := NewSQLiteStore(testDB(t))
		if _, err := s.Get(ctx); !errors.Is(err, ErrAbsent) {
			t.Errorf("expected ErrAbsent, got %v", err)
		}
	})

	t.Run("Put Then Get", func(t *testing.T) {
		s := NewSQLiteStore(testDB(t))
		blob := []byte(`{"access_token":"a","refresh_token":"r"}`)
		if err := s.Put(ctx, blob); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := s.Get(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(got) != string(blob) {
			t.Errorf("expected %s, got %s", blob, got)
		}
	})

	t.Run("Put Overwrites", func(t *testing.T) {
		s := NewSQLiteStore(testDB(t))
		if err := s.Put(ctx, []byte("one")); err != nil {
			t.Fatal(err)
		}
		if err := s.Put(ctx, []byte("two")); err != nil {
			t.Fatal(err)
		}

		got, err := s.Get(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "two" {
			t.Errorf("expected latest blob, got %s", got)
		}
	})

	t.Run("Unavailable Backend", func(t *testing.T) {
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatal(err)
		}
		db.Close()

		s := NewSQLiteStore(db)
		if _, err := s.Get(ctx); !errors.Is(err, shared.ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable, got %v", err)
		}
		if err := s.Put(ctx, []byte("x")); !errors.Is(err, shared.ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable, got %v", err)
		}
	})
}

func TestEnvStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty Blob Is Absent", func(t *testing.T) {
		s := NewEnvStore("")
		if _, err := s.Get(ctx); !errors.Is(err, ErrAbsent) {
			t.Errorf("expected ErrAbsent, got %v", err)
		}
	})

	t.Run("Present Blob", func(t *testing.T) {
		s := NewEnvStore(`{"refresh_token":"r"}`)
		got, err := s.Get(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(got) != `{"refresh_token":"r"}` {
			t.Errorf("unexpected blob: %s", got)
		}
	})

	t.Run("Put Is A NoOp", func(t *testing.T) {
		s := NewEnvStore("original")
		if err := s.Put(ctx, []byte("replaced")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, _ := s.Get(ctx)
		if string(got) != "original" {
			t.Errorf("env store must not change, got %s", got)
		}
	})
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing File Is Absent", func(t *testing.T) {
		s := NewFileStore(filepath.Join(t.TempDir(), "cache"))
		if _, err := s.Get(ctx); !errors.Is(err, ErrAbsent) {
			t.Errorf("expected ErrAbsent, got %v", err)
		}
	})

	t.Run("Round Trip", func(t *testing.T) {
		s := NewFileStore(filepath.Join(t.TempDir(), "cache"))
		if err := s.Put(ctx, []byte("blob")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, err := s.Get(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(got) != "blob" {
			t.Errorf("expected blob, got %s", got)
		}
	})
}

func TestHistoryStore(t *testing.T) {
	ctx := context.Background()
	h := NewHistoryStore(NewSQLiteStore(testDB(t)))

	t.Run("Empty", func(t *testing.T) {
		names, err := h.Names(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(names) != 0 {
			t.Errorf("expected no names, got %v", names)
		}
	})

	t.Run("Add And List", func(t *testing.T) {
		for _, name := range []string{"ana", "bruno", "ana"} {
			if err := h.Add(ctx, name); err != nil {
				t.Fatal(err)
			}
		}

		names, err := h.Names(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(names) != 2 {
			t.Errorf("expected 2 names after duplicate add, got %v", names)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		if err := h.Reset(ctx); err != nil {
			t.Fatal(err)
		}
		names, err := h.Names(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(names) != 0 {
			t.Errorf("expected empty history after reset, got %v", names)
		}
	})
}
