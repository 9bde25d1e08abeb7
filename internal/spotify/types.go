// package spotify implements the resilient Spotify Web API gateway.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package spotify

import "fmt"

// ExternalURLs carries the public open.spotify.com link for a resource.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// Artist represents a Spotify artist.
type Artist struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album represents a Spotify album.
type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Track represents a Spotify track. Identity is the URI; everything else is
// display-only.
type Track struct {
	URI          string       `json:"uri"`
	Name         string       `json:"name"`
	Artists      []Artist     `json:"artists"`
	Album        Album        `json:"album"`
	DurationMS   int          `json:"duration_ms"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// ArtistNames returns the track's artist names in order.
func (t Track) ArtistNames() []string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return names
}

// Playlist represents a Spotify playlist header.
type Playlist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	ExternalURLs ExternalURLs `json:"external_urls"`
	Images       []Image      `json:"images"`
	Tracks       struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

// PlaylistTrack represents a track within a playlist context.
type PlaylistTrack struct {
	AddedAt string `json:"added_at"`
	Track   Track  `json:"track"`
}

// playlistItemsPage is one page of a playlist's items.
type playlistItemsPage struct {
	Items  []PlaylistTrack `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
	Next   *string         `json:"next"`
}

// searchResponse is the track search envelope.
type searchResponse struct {
	Tracks struct {
		Items []Track `json:"items"`
	} `json:"tracks"`
}

// User represents the authenticated Spotify user, used by the startup probe.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// APIError is a structured non-2xx response from the Spotify API.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
}
