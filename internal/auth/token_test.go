package auth

import (
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Expired", func(t *testing.T) {
		tc := []struct {
			name      string
			expiresAt time.Time
			want      bool
		}{
			{"past", now.Add(-time.Hour), true},
			{"now", now, true},
			{"inside safety margin", now.Add(30 * time.Second), true},
			{"beyond safety margin", now.Add(10 * time.Minute), false},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				tok := &Token{AccessToken: "a", ExpiresAt: tt.expiresAt.Unix()}
				if got := tok.Expired(now); got != tt.want {
					t.Errorf("Expired() = %v, want %v", got, tt.want)
				}
			})
		}

		t.Run("zero expiry", func(t *testing.T) {
			tok := &Token{AccessToken: "a"}
			if !tok.Expired(now) {
				t.Error("token without expiry should count as expired")
			}
		})
	})

	t.Run("ParseToken", func(t *testing.T) {
		t.Run("spotipy cache layout", func(t *testing.T) {
			blob := []byte(`{"access_token":"AT","token_type":"Bearer","refresh_token":"RT","expires_at":1717243200,"scope":"playlist-modify-public playlist-modify-private"}`)
			tok, err := ParseToken(blob)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tok.AccessToken != "AT" || tok.RefreshToken != "RT" {
				t.Errorf("unexpected token: %+v", tok)
			}
			if len(tok.Scopes()) != 2 {
				t.Errorf("expected 2 scopes, got %v", tok.Scopes())
			}
		})

		t.Run("malformed json", func(t *testing.T) {
			if _, err := ParseToken([]byte("{nope")); err == nil {
				t.Error("expected error for malformed blob")
			}
		})

		t.Run("empty credentials", func(t *testing.T) {
			if _, err := ParseToken([]byte(`{"scope":"x"}`)); err == nil {
				t.Error("expected error for blob without credentials")
			}
		})
	})

	t.Run("Marshal Round Trip", func(t *testing.T) {
		tok := &Token{AccessToken: "AT", RefreshToken: "RT", ExpiresAt: now.Unix(), Scope: "s"}
		blob, err := tok.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		got, err := ParseToken(blob)
		if err != nil {
			t.Fatal(err)
		}
		if *got != *tok {
			t.Errorf("round trip mismatch: %+v != %+v", got, tok)
		}
	})

	t.Run("fromOAuth2 Keeps Refresh Token", func(t *testing.T) {
		prev := &Token{AccessToken: "old", RefreshToken: "RT", Scope: "s"}
		fresh := fromOAuth2(&oauth2.Token{AccessToken: "new", Expiry: now}, prev)
		if fresh.RefreshToken != "RT" {
			t.Errorf("refresh token must survive a refresh response without one, got %q", fresh.RefreshToken)
		}
		if fresh.Scope != "s" {
			t.Errorf("scope must carry over, got %q", fresh.Scope)
		}

		replaced := fromOAuth2(&oauth2.Token{AccessToken: "new", RefreshToken: "RT2", Expiry: now}, prev)
		if replaced.RefreshToken != "RT2" {
			t.Errorf("explicit replacement must win, got %q", replaced.RefreshToken)
		}
	})
}
