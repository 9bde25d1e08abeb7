package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"auxcord/internal/shared"
	"auxcord/internal/store"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Playlist mutation is the only Spotify surface the bot touches.
var spotifyScopes = []string{"playlist-modify-public", "playlist-modify-private"}

// refreshRetries and refreshPause bound the refresh exchange: 3 attempts
// total with a fixed pause between them.
const refreshRetries = 2

var refreshPause = 2 * time.Second

// State describes where the credential sits in its lifecycle.
type State int

const (
	// StateAbsent means no credential exists anywhere.
	StateAbsent State = iota
	// StatePending means a refresh token exists but the access token is
	// expired.
	StatePending
	// StateValid means the access token is usable.
	StateValid
	// StateInvalid means refresh was exhausted; terminal until an
	// operator re-authorizes.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePending:
		return "pending"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Provider is the external OAuth collaborator.
type Provider interface {
	// AuthCodeURL builds the interactive consent URL.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string) (*Token, error)
	// Refresh trades a refresh token for a fresh access token.
	Refresh(ctx context.Context, t *Token) (*Token, error)
}

// OAuthProvider implements Provider against the Spotify accounts service
// using [oauth2].
type OAuthProvider struct {
	config *oauth2.Config
}

// NewOAuthProvider builds the Spotify OAuth2 config.
func NewOAuthProvider(clientID, clientSecret, redirectURI string) *OAuthProvider {
	return &OAuthProvider{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}}
}

func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*Token, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return fromOAuth2(tok, nil), nil
}

func (p *OAuthProvider) Refresh(ctx context.Context, t *Token) (*Token, error) {
	// The token is handed over with a zero expiry so the oauth2 token
	// source always performs the refresh exchange instead of returning
	// the cached access token.
	src := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: t.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh exchange failed: %w", err)
	}
	return fromOAuth2(tok, t), nil
}

// Manager owns the in-process credential: it reconciles the storage backends
// on startup, caches the current token, refreshes it on expiry, and persists
// every mutation.
type Manager struct {
	provider Provider
	sources  []store.TokenStore
	logger   *log.Logger
	headless bool
	reset    bool
	now      func() time.Time

	mu      sync.Mutex
	token   *Token
	loaded  bool
	invalid bool
}

// ManagerConfig collects the Manager's dependencies.
type ManagerConfig struct {
	Provider Provider
	// Sources is the ranked list of token backends. The first entry is
	// the durable store reconciliation writes to; an entry named "env"
	// is the operator-supplied blob that can overwrite it.
	Sources []store.TokenStore
	Logger  *log.Logger
	// Headless disables any interactive hinting: a missing credential
	// fails fast with ErrAuthRequired.
	Headless bool
	// ForceReset makes the environment blob overwrite the durable store
	// even when the refresh tokens match.
	ForceReset bool
	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewManager creates a Manager. Logger defaults to a stderr logger; Now to
// time.Now.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		provider: cfg.Provider,
		sources:  cfg.Sources,
		logger:   logger,
		headless: cfg.Headless,
		reset:    cfg.ForceReset,
		now:      now,
	}
}

// AuthorizeURL builds the interactive consent URL. Pure, no side effects.
func (m *Manager) AuthorizeURL(state string) string {
	return m.provider.AuthCodeURL(state)
}

// ExchangeCode completes the authorization flow: trades the code for a
// token, persists it everywhere writable, and clears the invalid state.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	tok, err := m.provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.token = tok
	m.loaded = true
	m.invalid = false
	m.mu.Unlock()

	m.persist(ctx, tok)
	return tok, nil
}

// Cached returns the current best-known token per the reconciliation rule,
// or ErrAuthRequired when none exists anywhere.
func (m *Manager) Cached(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(ctx); err != nil {
		return nil, err
	}
	if m.token == nil {
		return nil, shared.ErrAuthRequired
	}
	tok := *m.token
	return &tok, nil
}

// State reports the credential lifecycle state.
func (m *Manager) State(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	_ = m.loadLocked(ctx)
	switch {
	case m.invalid:
		return StateInvalid
	case m.token == nil:
		return StateAbsent
	case m.token.Expired(m.now()):
		return StatePending
	default:
		return StateValid
	}
}

// Access returns a usable access token, refreshing first when the cached one
// is expired. Returns ErrAuthRequired when the credential is absent or the
// lifecycle is in its terminal invalid state.
func (m *Manager) Access(ctx context.Context) (string, error) {
	m.mu.Lock()
	if err := m.loadLocked(ctx); err != nil {
		m.mu.Unlock()
		return "", err
	}
	if m.invalid {
		m.mu.Unlock()
		return "", shared.ErrAuthRequired
	}
	if m.token == nil {
		m.mu.Unlock()
		if !m.headless {
			m.logger.Warn("no credential found; authorize with 'auxcord auth login'")
		}
		return "", shared.ErrAuthRequired
	}
	if !m.token.Expired(m.now()) {
		access := m.token.AccessToken
		m.mu.Unlock()
		return access, nil
	}
	m.mu.Unlock()

	tok, err := m.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// Refresh forces a refresh exchange with up to 3 attempts and a fixed pause
// between them. Success persists the new token; exhaustion transitions the
// lifecycle to its terminal invalid state and returns ErrRefreshFailed.
func (m *Manager) Refresh(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	if err := m.loadLocked(ctx); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if m.invalid {
		m.mu.Unlock()
		return nil, shared.ErrAuthRequired
	}
	if m.token == nil {
		m.mu.Unlock()
		return nil, shared.ErrAuthRequired
	}
	if m.token.RefreshToken == "" {
		m.invalid = true
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, shared.ErrNoRefreshToken)
	}
	prev := *m.token
	m.mu.Unlock()

	var fresh *Token
	err := shared.Retry(ctx, func(ctx context.Context) error {
		tok, err := m.provider.Refresh(ctx, &prev)
		if err != nil {
			m.logger.Warn("token refresh attempt failed", "error", err)
			return err
		}
		fresh = tok
		return nil
	}, shared.RetryPolicy{Retries: refreshRetries, Pause: refreshPause})

	if err != nil {
		m.mu.Lock()
		m.invalid = true
		m.mu.Unlock()
		m.logger.Error("token refresh exhausted", "attempts", refreshRetries+1, "error", err)
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	m.mu.Lock()
	m.token = fresh
	m.mu.Unlock()

	m.persist(ctx, fresh)
	m.logger.Info("access token refreshed", "expires_at", time.Unix(fresh.ExpiresAt, 0))

	tok := *fresh
	return &tok, nil
}

// loadLocked performs the one-time startup load and reconciliation. Callers
// hold m.mu.
func (m *Manager) loadLocked(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	m.loaded = true

	if len(m.sources) == 0 {
		return nil
	}

	stored := m.readSource(ctx, m.sources[0])
	var envTok *Token
	for _, src := range m.sources[1:] {
		if src.Name() == "env" {
			envTok = m.readSource(ctx, src)
			break
		}
	}

	winner, overwrite := reconcile(stored, envTok, m.reset)
	if overwrite {
		m.logger.Info("seeding durable store from environment blob", "force_reset", m.reset)
		m.persist(ctx, winner)
	}

	if winner == nil {
		// Nothing durable and nothing in the environment; walk the
		// remaining fallbacks in rank order.
		for _, src := range m.sources[1:] {
			if src.Name() == "env" {
				continue
			}
			if tok := m.readSource(ctx, src); tok != nil {
				m.logger.Info("loaded token from fallback source", "source", src.Name())
				winner = tok
				break
			}
		}
	}

	m.token = winner
	if winner != nil {
		m.logger.Debug("credential loaded", "expires_at", time.Unix(winner.ExpiresAt, 0))
	}
	return nil
}

// reconcile applies the startup rule between the durable store and the
// operator-supplied environment blob: an empty store is seeded from the
// environment, a force reset always takes the environment, and a differing
// refresh token means the environment blob is newer (manual rotation).
func reconcile(stored, env *Token, forceReset bool) (winner *Token, overwrite bool) {
	switch {
	case env == nil:
		return stored, false
	case stored == nil:
		return env, true
	case forceReset:
		return env, true
	case env.RefreshToken != stored.RefreshToken:
		return env, true
	default:
		return stored, false
	}
}

// readSource fetches and parses a source's blob, treating absence and
// unavailability as "no token" (unavailable backends must not crash the
// process).
func (m *Manager) readSource(ctx context.Context, src store.TokenStore) *Token {
	blob, err := src.Get(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrStoreUnavailable) {
			m.logger.Warn("token source unavailable", "source", src.Name(), "error", err)
		}
		return nil
	}
	tok, err := ParseToken(blob)
	if err != nil {
		m.logger.Warn("discarding malformed token blob", "source", src.Name(), "error", err)
		return nil
	}
	return tok
}

// persist writes the token to every source; read-only sources ignore the
// write and a failing durable backend is logged, not fatal.
func (m *Manager) persist(ctx context.Context, tok *Token) {
	blob, err := tok.Marshal()
	if err != nil {
		m.logger.Error("failed to encode token for persistence", "error", err)
		return
	}
	for _, src := range m.sources {
		if err := src.Put(ctx, blob); err != nil {
			m.logger.Warn("failed to persist token", "source", src.Name(), "error", err)
		}
	}
}
