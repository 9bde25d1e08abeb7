// package sheets fetches the DJ roster from a published spreadsheet's CSV
// export.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"auxcord/internal/game"
	"auxcord/internal/shared"

	"github.com/charmbracelet/log"
)

// Fetcher downloads and parses the roster CSV. Rows are one DJ each: the
// first column is the DJ's name, every following non-empty column a song.
// The first row is treated as a header and skipped.
type Fetcher struct {
	url        string
	httpClient *http.Client
	logger     *log.Logger
}

// NewFetcher creates a Fetcher for the published CSV URL.
func NewFetcher(url string, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Fetcher{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Fetch downloads the roster. Rows without a name or without any songs are
// dropped; duplicate names are left for the game engine to collapse.
func (f *Fetcher) Fetch(ctx context.Context) ([]game.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create roster request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: roster fetch: %v", shared.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: roster fetch returned status %d", shared.ErrRemote, resp.StatusCode)
	}

	return parseRoster(resp.Body)
}

func parseRoster(r io.Reader) ([]game.Record, error) {
	reader := csv.NewReader(r)
	// Song counts vary per DJ.
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster csv: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	var records []game.Record
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}

		var songs []string
		for _, cell := range row[1:] {
			if song := strings.TrimSpace(cell); song != "" {
				songs = append(songs, song)
			}
		}
		if len(songs) == 0 {
			continue
		}
		records = append(records, game.Record{Name: name, Songs: songs})
	}
	return records, nil
}
