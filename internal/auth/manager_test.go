package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"auxcord/internal/shared"
	"auxcord/internal/store"
)

// memStore is an in-memory store.TokenStore test double.
type memStore struct {
	mu          sync.Mutex
	name        string
	blob        []byte
	readOnly    bool
	unavailable bool
	puts        int
}

func (s *memStore) Name() string { return s.name }

func (s *memStore) Get(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, fmt.Errorf("%w: connection refused", shared.ErrStoreUnavailable)
	}
	if s.blob == nil {
		return nil, store.ErrAbsent
	}
	return s.blob, nil
}

func (s *memStore) Put(ctx context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return fmt.Errorf("%w: connection refused", shared.ErrStoreUnavailable)
	}
	if s.readOnly {
		return nil
	}
	s.puts++
	s.blob = blob
	return nil
}

// fakeProvider is a Provider test double with scripted refresh results.
type fakeProvider struct {
	refreshCalls  int
	refreshErrs   []error // error per call; past the end means success
	refreshResult *Token
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example/authorize?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*Token, error) {
	if code == "bad" {
		return nil, errors.New("invalid_grant")
	}
	return &Token{AccessToken: "exchanged", RefreshToken: "RT", ExpiresAt: time.Now().Add(time.Hour).Unix()}, nil
}

func (p *fakeProvider) Refresh(ctx context.Context, t *Token) (*Token, error) {
	call := p.refreshCalls
	p.refreshCalls++
	if call < len(p.refreshErrs) && p.refreshErrs[call] != nil {
		return nil, p.refreshErrs[call]
	}
	if p.refreshResult != nil {
		return p.refreshResult, nil
	}
	return &Token{AccessToken: "refreshed", RefreshToken: t.RefreshToken, ExpiresAt: time.Now().Add(time.Hour).Unix()}, nil
}

func blobFor(t *testing.T, tok *Token) []byte {
	t.Helper()
	blob, err := tok.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	return blob
}

func newTestManager(t *testing.T, provider Provider, forceReset bool, sources ...store.TokenStore) *Manager {
	t.Helper()
	return NewManager(ManagerConfig{
		Provider:   provider,
		Sources:    sources,
		Headless:   true,
		ForceReset: forceReset,
	})
}

func TestManagerReconciliation(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty Store Seeded From Env", func(t *testing.T) {
		envTok := &Token{AccessToken: "A", RefreshToken: "R", ExpiresAt: time.Now().Add(time.Hour).Unix()}
		durable := &memStore{name: "sqlite"}
		env := &memStore{name: "env", blob: blobFor(t, envTok), readOnly: true}

		m := newTestManager(t, &fakeProvider{}, false, durable, env)
		tok, err := m.Cached(ctx)
		if err != nil {
			t.Fatalf("expected token, got %v", err)
		}
		if tok.RefreshToken != "R" {
			t.Errorf("expected env token, got %+v", tok)
		}
		if durable.blob == nil {
			t.Error("expected durable store to be seeded")
		}
	})

	t.Run("Differing Refresh Token Means Env Wins", func(t *testing.T) {
		storedTok := &Token{AccessToken: "old", RefreshToken: "A"}
		envTok := &Token{AccessToken: "new", RefreshToken: "B", ExpiresAt: time.Now().Add(time.Hour).Unix()}
		durable := &memStore{name: "sqlite", blob: blobFor(t, storedTok)}
		env := &memStore{name: "env", blob: blobFor(t, envTok), readOnly: true}

		m := newTestManager(t, &fakeProvider{}, false, durable, env)
		tok, err := m.Cached(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if tok.RefreshToken != "B" {
			t.Errorf("expected env blob to win, got refresh token %q", tok.RefreshToken)
		}

		overwritten, err := ParseToken(durable.blob)
		if err != nil {
			t.Fatal(err)
		}
		if overwritten.RefreshToken != "B" {
			t.Errorf("expected store overwritten with env blob, got %q", overwritten.RefreshToken)
		}
	})

	t.Run("Matching Tokens Keep Store", func(t *testing.T) {
		storedTok := &Token{AccessToken: "stored", RefreshToken: "same"}
		envTok := &Token{AccessToken: "env", RefreshToken: "same"}
		durable := &memStore{name: "sqlite", blob: blobFor(t, storedTok)}
		env := &memStore{name: "env", blob: blobFor(t, envTok), readOnly: true}

		m := newTestManager(t, &fakeProvider{}, false, durable, env)
		tok, err := m.Cached(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if tok.AccessToken != "stored" {
			t.Errorf("expected stored token to win, got %q", tok.AccessToken)
		}
		if durable.puts != 0 {
			t.Errorf("expected no store write, got %d", durable.puts)
		}
	})

	t.Run("Force Reset Overwrites Matching Tokens", func(t *testing.T) {
		storedTok := &Token{AccessToken: "stored", RefreshToken: "same"}
		envTok := &Token{AccessToken: "env", RefreshToken: "same"}
		durable := &memStore{name: "sqlite", blob: blobFor(t, storedTok)}
		env := &memStore{name: "env", blob: blobFor(t, envTok), readOnly: true}

		m := newTestManager(t, &fakeProvider{}, true, durable, env)
		tok, err := m.Cached(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if tok.AccessToken != "env" {
			t.Errorf("expected env token under force reset, got %q", tok.AccessToken)
		}
		if durable.puts != 1 {
			t.Errorf("expected store overwrite, got %d puts", durable.puts)
		}
	})

	t.Run("Unavailable Store Falls Back To Env", func(t *testing.T) {
		envTok := &Token{AccessToken: "A", RefreshToken: "R", ExpiresAt: time.Now().Add(time.Hour).Unix()}
		durable := &memStore{name: "sqlite", unavailable: true}
		env := &memStore{name: "env", blob: blobFor(t, envTok), readOnly: true}

		m := newTestManager(t, &fakeProvider{}, false, durable, env)
		tok, err := m.Cached(ctx)
		if err != nil {
			t.Fatalf("store outage must not surface, got %v", err)
		}
		if tok.AccessToken != "A" {
			t.Errorf("expected env token, got %q", tok.AccessToken)
		}
	})

	t.Run("File Fallback When Store And Env Empty", func(t *testing.T) {
		fileTok := &Token{AccessToken: "cached", RefreshToken: "R"}
		durable := &memStore{name: "sqlite"}
		env := &memStore{name: "env", readOnly: true}
		file := &memStore{name: "file", blob: blobFor(t, fileTok)}

		m := newTestManager(t, &fakeProvider{}, false, durable, env, file)
		tok, err := m.Cached(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if tok.AccessToken != "cached" {
			t.Errorf("expected file token, got %q", tok.AccessToken)
		}
	})

	t.Run("Absent Everywhere", func(t *testing.T) {
		m := newTestManager(t, &fakeProvider{}, false, &memStore{name: "sqlite"}, &memStore{name: "env", readOnly: true})
		if _, err := m.Cached(ctx); !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
	})
}

func TestManagerRefresh(t *testing.T) {
	ctx := context.Background()

	restore := refreshPause
	refreshPause = 0
	t.Cleanup(func() { refreshPause = restore })

	freshIn := func(d time.Duration) int64 { return time.Now().Add(d).Unix() }

	t.Run("Access Returns Valid Token Without Refresh", func(t *testing.T) {
		provider := &fakeProvider{}
		durable := &memStore{name: "sqlite", blob: blobFor(t, &Token{AccessToken: "AT", RefreshToken: "RT", ExpiresAt: freshIn(time.Hour)})}

		m := newTestManager(t, provider, false, durable)
		access, err := m.Access(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if access != "AT" {
			t.Errorf("expected cached access token, got %q", access)
		}
		if provider.refreshCalls != 0 {
			t.Errorf("expected no refresh, got %d", provider.refreshCalls)
		}
	})

	t.Run("Access Refreshes Expired Token", func(t *testing.T) {
		provider := &fakeProvider{}
		durable := &memStore{name: "sqlite", blob: blobFor(t, &Token{AccessToken: "old", RefreshToken: "RT", ExpiresAt: freshIn(-time.Hour)})}

		m := newTestManager(t, provider, false, durable)
		access, err := m.Access(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if access != "refreshed" {
			t.Errorf("expected refreshed token, got %q", access)
		}
		if provider.refreshCalls != 1 {
			t.Errorf("expected 1 refresh, got %d", provider.refreshCalls)
		}

		// new token persisted
		persisted, err := ParseToken(durable.blob)
		if err != nil {
			t.Fatal(err)
		}
		if persisted.AccessToken != "refreshed" {
			t.Errorf("expected refreshed token persisted, got %q", persisted.AccessToken)
		}
	})

	t.Run("Refresh Retries Then Succeeds", func(t *testing.T) {
		provider := &fakeProvider{refreshErrs: []error{errors.New("reset"), errors.New("reset")}}
		durable := &memStore{name: "sqlite", blob: blobFor(t, &Token{AccessToken: "old", RefreshToken: "RT", ExpiresAt: freshIn(-time.Hour)})}

		m := newTestManager(t, provider, false, durable)
		tok, err := m.Refresh(ctx)
		if err != nil {
			t.Fatalf("expected third attempt to succeed, got %v", err)
		}
		if tok.AccessToken != "refreshed" {
			t.Errorf("unexpected token %+v", tok)
		}
		if provider.refreshCalls != 3 {
			t.Errorf("expected 3 attempts, got %d", provider.refreshCalls)
		}
	})

	t.Run("Refresh Exhaustion Is Terminal", func(t *testing.T) {
		provider := &fakeProvider{refreshErrs: []error{
			errors.New("x"), errors.New("x"), errors.New("x"), errors.New("x"),
		}}
		durable := &memStore{name: "sqlite", blob: blobFor(t, &Token{AccessToken: "old", RefreshToken: "RT", ExpiresAt: freshIn(-time.Hour)})}

		m := newTestManager(t, provider, false, durable)
		if _, err := m.Refresh(ctx); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
		if provider.refreshCalls != 3 {
			t.Errorf("expected exactly 3 attempts, got %d", provider.refreshCalls)
		}

		if got := m.State(ctx); got != StateInvalid {
			t.Errorf("expected invalid state, got %s", got)
		}

		// invalid is terminal: no further provider calls
		if _, err := m.Access(ctx); !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
		if provider.refreshCalls != 3 {
			t.Errorf("invalid state must not trigger refreshes, got %d", provider.refreshCalls)
		}
	})

	t.Run("Missing Refresh Token", func(t *testing.T) {
		durable := &memStore{name: "sqlite", blob: blobFor(t, &Token{AccessToken: "old", ExpiresAt: freshIn(-time.Hour)})}
		m := newTestManager(t, &fakeProvider{}, false, durable)
		if _, err := m.Refresh(ctx); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("ExchangeCode Clears Invalid State", func(t *testing.T) {
		provider := &fakeProvider{refreshErrs: []error{errors.New("x"), errors.New("x"), errors.New("x")}}
		durable := &memStore{name: "sqlite", blob: blobFor(t, &Token{AccessToken: "old", RefreshToken: "RT", ExpiresAt: freshIn(-time.Hour)})}

		m := newTestManager(t, provider, false, durable)
		if _, err := m.Refresh(ctx); err == nil {
			t.Fatal("expected refresh to fail")
		}

		if _, err := m.ExchangeCode(ctx, "good"); err != nil {
			t.Fatal(err)
		}
		if got := m.State(ctx); got != StateValid {
			t.Errorf("expected valid state after re-authorization, got %s", got)
		}

		access, err := m.Access(ctx)
		if err != nil || access != "exchanged" {
			t.Errorf("expected exchanged token, got %q, %v", access, err)
		}
	})
}

func TestManagerStates(t *testing.T) {
	ctx := context.Background()

	tc := []struct {
		name string
		tok  *Token
		want State
	}{
		{"absent", nil, StateAbsent},
		{"pending when expired", &Token{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Hour).Unix()}, StatePending},
		{"valid", &Token{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour).Unix()}, StateValid},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			durable := &memStore{name: "sqlite"}
			if tt.tok != nil {
				durable.blob = blobFor(t, tt.tok)
			}
			m := newTestManager(t, &fakeProvider{}, false, durable)
			if got := m.State(ctx); got != tt.want {
				t.Errorf("State() = %s, want %s", got, tt.want)
			}
		})
	}
}
