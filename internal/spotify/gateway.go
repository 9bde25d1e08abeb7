package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"auxcord/internal/auth"
	"auxcord/internal/shared"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.spotify.com/v1"

// pageLimit is the playlist items page size; 100 is the API maximum.
const pageLimit = 100

// TokenSource supplies and refreshes the bearer credential. Implemented by
// [auth.Manager].
type TokenSource interface {
	Access(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (*auth.Token, error)
}

// Gateway wraps every outbound Spotify call with the bot's retry policy:
// one forced refresh and retry on an expired token, one immediate retry on a
// transient network failure, everything else surfaced as a remote error.
type Gateway struct {
	tokens     TokenSource
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *log.Logger
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithBaseURL overrides the API base URL (tests point it at a local server).
func WithBaseURL(u string) GatewayOption {
	return func(g *Gateway) { g.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) { g.httpClient = c }
}

// WithLogger overrides the logger.
func WithLogger(l *log.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// NewGateway creates a Gateway over the given token source. Requests are
// rate limited client-side to stay under the API's burst limits.
func NewGateway(tokens TokenSource, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
		logger:     shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SearchTracks searches for tracks, returning the API's ranked results.
func (g *Gateway) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 5
	}
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)

	var result searchResponse
	if err := g.call(ctx, "GET", endpoint, nil, &result); err != nil {
		return nil, err
	}
	return result.Tracks.Items, nil
}

// Playlist fetches a playlist header.
func (g *Gateway) Playlist(ctx context.Context, playlistID string) (*Playlist, error) {
	var playlist Playlist
	if err := g.call(ctx, "GET", "/playlists/"+playlistID, nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// PlaylistItems fetches every item of a playlist, following the next-page
// cursor until exhausted. Callers never see a partial page.
func (g *Gateway) PlaylistItems(ctx context.Context, playlistID string) ([]PlaylistTrack, error) {
	var all []PlaylistTrack
	offset := 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, pageLimit, offset)

		var page playlistItemsPage
		if err := g.call(ctx, "GET", endpoint, nil, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Items...)
		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return all, nil
}

// AddItems appends track URIs to the playlist.
func (g *Gateway) AddItems(ctx context.Context, playlistID string, uris []string) error {
	body := map[string]any{"uris": uris}
	return g.call(ctx, "POST", "/playlists/"+playlistID+"/tracks", body, nil)
}

// RemoveItems removes all occurrences of the given track URIs from the
// playlist.
func (g *Gateway) RemoveItems(ctx context.Context, playlistID string, uris []string) error {
	tracks := make([]map[string]string, len(uris))
	for i, uri := range uris {
		tracks[i] = map[string]string{"uri": uri}
	}
	body := map[string]any{"tracks": tracks}
	return g.call(ctx, "DELETE", "/playlists/"+playlistID+"/tracks", body, nil)
}

// CurrentUser fetches the authenticated user's profile. Used as a startup
// connectivity probe and by the keep-alive ping.
func (g *Gateway) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := g.call(ctx, "GET", "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// call runs one logical API call under the retry policy and maps the final
// failure into the bot's error taxonomy. No raw transport error escapes.
func (g *Gateway) call(ctx context.Context, method, endpoint string, body, result any) error {
	op := func(ctx context.Context) error {
		token, err := g.tokens.Access(ctx)
		if err != nil {
			// Absent or terminally invalid credential: fail the
			// call without touching the network or retrying.
			return err
		}
		return g.doRequest(ctx, token, method, endpoint, body, result)
	}

	err := shared.Retry(ctx, op,
		shared.RetryPolicy{
			Match:   isUnauthorized,
			Retries: 1,
			Before: func(ctx context.Context, cause error) error {
				g.logger.Info("access token rejected, forcing refresh", "endpoint", endpoint)
				_, err := g.tokens.Refresh(ctx)
				return err
			},
		},
		shared.RetryPolicy{Match: isTransient, Retries: 1},
	)

	return g.mapError(err)
}

// doRequest performs a single authenticated HTTP request.
func (g *Gateway) doRequest(ctx context.Context, token, method, endpoint string, body, result any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeAPIError parses Spotify's structured error envelope, falling back to
// the bare status when the body is not the expected shape.
func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Status != 0 {
		return &APIError{Status: envelope.Error.Status, Message: envelope.Error.Message}
	}
	return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
}

// isUnauthorized reports an HTTP 401 from the API.
func isUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// isTransient reports a network-level failure worth a single immediate
// retry: connection reset or aborted, or a connection dropped mid-body.
func isTransient(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// mapError converts the final failure of a call into the error taxonomy.
func (g *Gateway) mapError(err error) error {
	var apiErr *APIError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shared.ErrAuthRequired), errors.Is(err, shared.ErrRefreshFailed):
		return err
	case isUnauthorized(err):
		return fmt.Errorf("%w: access token rejected after refresh", shared.ErrAuthRequired)
	case isTransient(err):
		return fmt.Errorf("%w: %v", shared.ErrTransient, err)
	case errors.As(err, &apiErr):
		return fmt.Errorf("%w: %s", shared.ErrRemote, apiErr.Message)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", shared.ErrRemote, err)
	}
}
