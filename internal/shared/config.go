package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Deploy platforms (Render, Railway, Replit) configure the bot through
// environment variables instead of a file; ApplyEnv layers those on top.
type Config struct {
	Discord  DiscordConfig  `toml:"discord"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	Game     GameConfig     `toml:"game"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// DiscordConfig contains the Discord bot credentials.
type DiscordConfig struct {
	Token   string `toml:"token"`
	GuildID string `toml:"guild_id"`
}

// SpotifyConfig contains Spotify API credentials and the target playlist.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	PlaylistID   string `toml:"playlist_id"`
	// TokenBlob is the JSON token record normally supplied via the
	// SPOTIFY_TOKEN_CACHE environment variable on headless hosts.
	TokenBlob string `toml:"token_blob"`
	// ForceTokenReset makes the environment blob overwrite the stored
	// token unconditionally on startup.
	ForceTokenReset bool `toml:"force_token_reset"`
	// CachePath is the local fallback token cache file.
	CachePath string `toml:"cache_path"`
}

// GameConfig configures the guess-the-DJ game.
type GameConfig struct {
	// SheetCSVURL is the published spreadsheet CSV with one row per
	// participant: name followed by their submitted songs.
	SheetCSVURL string `toml:"sheet_csv_url"`
	VoteSeconds int    `toml:"vote_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings for the health endpoint and
// OAuth callback.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// envOverrides maps environment variables to config fields. The names match
// what the original deployment documented for its Render dashboard.
func (c *Config) ApplyEnv() {
	set := func(target *string, key string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}

	set(&c.Discord.Token, "DISCORD_TOKEN")
	set(&c.Discord.GuildID, "DISCORD_GUILD_ID")
	set(&c.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	set(&c.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	set(&c.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	set(&c.Spotify.PlaylistID, "SPOTIFY_PLAYLIST_ID")
	set(&c.Spotify.TokenBlob, "SPOTIFY_TOKEN_CACHE")
	set(&c.Spotify.CachePath, "SPOTIFY_CACHE_PATH")
	set(&c.Database.Path, "DATABASE_PATH")
	set(&c.Game.SheetCSVURL, "SHEET_CSV_URL")

	if v := os.Getenv("SPOTIFY_FORCE_TOKEN_RESET"); v == "1" || v == "true" {
		c.Spotify.ForceTokenReset = true
	}
}

// Validate checks that the config carries enough to talk to both platforms.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("%w: discord token", ErrMissingCredentials)
	}
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client id/secret", ErrMissingCredentials)
	}
	if c.Spotify.PlaylistID == "" {
		return fmt.Errorf("%w: spotify playlist id", ErrMissingConfig)
	}
	return nil
}
