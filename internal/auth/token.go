// package auth owns the OAuth credential lifecycle: acquiring, persisting,
// reconciling, and refreshing the Spotify token across storage backends.
package auth

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// expiryMargin pads the expiry check so a token is refreshed slightly before
// the provider would reject it. The original cache format carries no margin;
// 60s matches what spotipy applies internally.
const expiryMargin = 60 * time.Second

// Token is the persisted credential record. The JSON layout matches the
// spotipy cache file so blobs produced by the original deployment keep
// working as SPOTIFY_TOKEN_CACHE values.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresAt is an absolute unix timestamp in seconds.
	ExpiresAt int64 `json:"expires_at"`
	// Scope is the space-separated granted scope set.
	Scope string `json:"scope,omitempty"`
}

// ParseToken decodes a persisted token blob.
func ParseToken(blob []byte) (*Token, error) {
	var t Token
	if err := json.Unmarshal(blob, &t); err != nil {
		return nil, fmt.Errorf("failed to parse token blob: %w", err)
	}
	if t.AccessToken == "" && t.RefreshToken == "" {
		return nil, fmt.Errorf("token blob carries no credentials")
	}
	return &t, nil
}

// Marshal encodes the token in the persisted blob layout.
func (t *Token) Marshal() ([]byte, error) {
	blob, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token: %w", err)
	}
	return blob, nil
}

// Expired reports whether the token is expired at now, applying the safety
// margin.
func (t *Token) Expired(now time.Time) bool {
	if t.ExpiresAt == 0 {
		return true
	}
	return !now.Add(expiryMargin).Before(time.Unix(t.ExpiresAt, 0))
}

// Scopes returns the granted scopes as a slice.
func (t *Token) Scopes() []string {
	return strings.Fields(t.Scope)
}

// toOAuth2 converts to the x/oauth2 token used for refresh exchanges.
func (t *Token) toOAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       time.Unix(t.ExpiresAt, 0),
	}
}

// fromOAuth2 converts an x/oauth2 token, holding on to prev's refresh token
// when the provider omits one. A refresh token is never discarded except by
// explicit replacement.
func fromOAuth2(tok *oauth2.Token, prev *Token) *Token {
	t := &Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.Unix(),
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		t.Scope = scope
	}
	if prev != nil {
		if t.RefreshToken == "" {
			t.RefreshToken = prev.RefreshToken
		}
		if t.Scope == "" {
			t.Scope = prev.Scope
		}
	}
	return t
}
