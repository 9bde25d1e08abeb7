// package playlist implements duplicate-safe mutation of the shared playlist.
package playlist

import (
	"context"
	"fmt"
	"strings"

	"auxcord/internal/shared"
	"auxcord/internal/spotify"

	"github.com/charmbracelet/log"
)

// searchLimit bounds the search used to resolve a song request; the first
// ranked result wins.
const searchLimit = 5

// Catalog is the slice of the Spotify gateway the mutator needs. Satisfied
// by [spotify.Gateway].
type Catalog interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]spotify.Track, error)
	Playlist(ctx context.Context, playlistID string) (*spotify.Playlist, error)
	PlaylistItems(ctx context.Context, playlistID string) ([]spotify.PlaylistTrack, error)
	AddItems(ctx context.Context, playlistID string, uris []string) error
	RemoveItems(ctx context.Context, playlistID string, uris []string) error
}

// AddStatus describes how an add request resolved.
type AddStatus int

const (
	// StatusAdded means the track was appended to the playlist.
	StatusAdded AddStatus = iota
	// StatusAlreadyPresent means the track was already on the playlist and
	// nothing was appended.
	StatusAlreadyPresent
)

// Mutator mediates writes to one shared playlist. Membership is checked by
// track URI before every append, so repeat requests do not pile up
// duplicates. Two concurrent adds of the same track can still both land; the
// window is accepted rather than locked.
type Mutator struct {
	catalog    Catalog
	playlistID string
	logger     *log.Logger
}

// NewMutator creates a Mutator for the given playlist.
func NewMutator(catalog Catalog, playlistID string, logger *log.Logger) *Mutator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Mutator{catalog: catalog, playlistID: playlistID, logger: logger}
}

// searchQuery builds the catalog query, appending an artist filter clause
// when one was given.
func searchQuery(song, artist string) string {
	if artist == "" {
		return song
	}
	return fmt.Sprintf("%s artist:%s", song, artist)
}

// AddTopMatch resolves a song (and optional artist) to the top search result
// and appends it unless it is already on the playlist. Returns
// [shared.ErrNotFound] when the search comes back empty.
func (m *Mutator) AddTopMatch(ctx context.Context, song, artist string) (*spotify.Track, AddStatus, error) {
	tracks, err := m.catalog.SearchTracks(ctx, searchQuery(song, artist), searchLimit)
	if err != nil {
		return nil, 0, err
	}
	if len(tracks) == 0 {
		return nil, 0, fmt.Errorf("%w: no results for %q by %q", shared.ErrNotFound, song, artist)
	}
	track := tracks[0]

	items, err := m.catalog.PlaylistItems(ctx, m.playlistID)
	if err != nil {
		return nil, 0, err
	}
	for _, item := range items {
		if item.Track.URI == track.URI {
			m.logger.Info("track already on playlist", "track", track.Name, "uri", track.URI)
			return &track, StatusAlreadyPresent, nil
		}
	}

	if err := m.catalog.AddItems(ctx, m.playlistID, []string{track.URI}); err != nil {
		return nil, 0, err
	}
	m.logger.Info("track added to playlist", "track", track.Name, "uri", track.URI)
	return &track, StatusAdded, nil
}

// RemoveFirstMatch removes the first track whose name contains song and,
// when an artist is given, whose artist list contains a name containing it.
// Matching is case-insensitive substring; song titles are typed by humans.
// Every playlist occurrence of the matched track goes with it. Returns
// [shared.ErrNotFound] when nothing matches.
func (m *Mutator) RemoveFirstMatch(ctx context.Context, song, artist string) (*spotify.Track, error) {
	items, err := m.catalog.PlaylistItems(ctx, m.playlistID)
	if err != nil {
		return nil, err
	}

	songNeedle := strings.ToLower(song)
	artistNeedle := strings.ToLower(artist)
	for _, item := range items {
		if !strings.Contains(strings.ToLower(item.Track.Name), songNeedle) {
			continue
		}
		if artistNeedle != "" && !matchesArtist(item.Track, artistNeedle) {
			continue
		}
		track := item.Track
		if err := m.catalog.RemoveItems(ctx, m.playlistID, []string{track.URI}); err != nil {
			return nil, err
		}
		m.logger.Info("track removed from playlist", "track", track.Name, "uri", track.URI)
		return &track, nil
	}

	return nil, fmt.Errorf("%w: no track matching %q", shared.ErrNotFound, song)
}

func matchesArtist(t spotify.Track, needle string) bool {
	for _, a := range t.Artists {
		if strings.Contains(strings.ToLower(a.Name), needle) {
			return true
		}
	}
	return false
}

// Link returns the playlist's public URL along with its current header.
func (m *Mutator) Link(ctx context.Context) (*spotify.Playlist, error) {
	return m.catalog.Playlist(ctx, m.playlistID)
}

// FindTrack searches the catalog for a song by one artist and returns the top
// result, without touching the playlist. The game uses it to resolve song
// links for round prompts.
func (m *Mutator) FindTrack(ctx context.Context, song, artist string) (*spotify.Track, error) {
	tracks, err := m.catalog.SearchTracks(ctx, searchQuery(song, artist), searchLimit)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no results for %q by %q", shared.ErrNotFound, song, artist)
	}
	return &tracks[0], nil
}
