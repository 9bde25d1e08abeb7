package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"auxcord/internal/shared"
)

const sampleCSV = `Name,Song 1,Song 2,Song 3
alice,Holiday,Basket Case,
bob,Creep,,
,Orphan Song,,
carol,,,
dave,Song A,Song B,Song C
`

func TestParseRoster(t *testing.T) {
	t.Run("parses rows and tolerates short song lists", func(t *testing.T) {
		records, err := parseRoster(strings.NewReader(sampleCSV))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}

		if records[0].Name != "alice" || len(records[0].Songs) != 2 {
			t.Errorf("unexpected first record %+v", records[0])
		}
		if records[1].Name != "bob" || len(records[1].Songs) != 1 {
			t.Errorf("unexpected second record %+v", records[1])
		}
		if records[2].Name != "dave" || len(records[2].Songs) != 3 {
			t.Errorf("unexpected third record %+v", records[2])
		}
	})

	t.Run("header only yields no records", func(t *testing.T) {
		records, err := parseRoster(strings.NewReader("Name,Song 1\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
	})

	t.Run("ragged rows are accepted", func(t *testing.T) {
		records, err := parseRoster(strings.NewReader("Name,Song 1\nalice,Holiday,Basket Case,Longview\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 || len(records[0].Songs) != 3 {
			t.Errorf("unexpected records %+v", records)
		}
	})
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("downloads and parses the roster", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(sampleCSV))
		}))
		t.Cleanup(srv.Close)

		records, err := NewFetcher(srv.URL, nil).Fetch(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 3 {
			t.Errorf("expected 3 records, got %d", len(records))
		}
	})

	t.Run("non-200 is a remote error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		t.Cleanup(srv.Close)

		_, err := NewFetcher(srv.URL, nil).Fetch(ctx)
		if !errors.Is(err, shared.ErrRemote) {
			t.Fatalf("expected ErrRemote, got %v", err)
		}
	})
}
