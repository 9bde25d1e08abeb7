// package discord wires the bot's slash commands to the playlist mutator and
// the game engine.
package discord

import (
	"context"
	"fmt"
	"sync"

	"auxcord/internal/auth"
	"auxcord/internal/game"
	"auxcord/internal/playlist"
	"auxcord/internal/shared"
	"auxcord/internal/sheets"
	"auxcord/internal/tasks"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
)

// Credentials is the slice of the token lifecycle the bot surfaces to users:
// the consent URL for /spotifyauth and the credential state for /botstatus.
// Satisfied by [auth.Manager].
type Credentials interface {
	AuthorizeURL(state string) string
	State(ctx context.Context) auth.State
}

// Bot owns the Discord session and dispatches slash commands.
type Bot struct {
	session *discordgo.Session
	guildID string

	mutator *playlist.Mutator
	engine  *game.Engine
	roster  *sheets.Fetcher
	creds   Credentials
	logger  *log.Logger

	mu         sync.Mutex
	polls      map[string]*game.Poll // poll ID -> open poll
	guildPolls map[string]string     // guild ID -> open poll ID
	registered []*discordgo.ApplicationCommand
}

// Config carries the Bot's dependencies.
type Config struct {
	Token   string
	GuildID string
	Mutator *playlist.Mutator
	Engine  *game.Engine
	Roster  *sheets.Fetcher
	Creds   Credentials
	Logger  *log.Logger
}

// New creates a Bot. The session is not opened until Start.
func New(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: discord token", shared.ErrMissingCredentials)
	}
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(nil)
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	return &Bot{
		session:    session,
		guildID:    cfg.GuildID,
		mutator:    cfg.Mutator,
		engine:     cfg.Engine,
		roster:     cfg.Roster,
		creds:      cfg.Creds,
		logger:     cfg.Logger,
		polls:      make(map[string]*game.Poll),
		guildPolls: make(map[string]string),
	}, nil
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.Info("discord session ready", "user", r.User.Username)
	})
	b.session.AddHandler(b.handleInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	for _, cmd := range commandDefinitions() {
		created, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.guildID, cmd)
		if err != nil {
			return fmt.Errorf("failed to register command %q: %w", cmd.Name, err)
		}
		b.registered = append(b.registered, created)
	}
	b.logger.Info("slash commands registered", "count", len(b.registered), "guild", b.guildID)
	return nil
}

// Stop unregisters the commands and closes the session.
func (b *Bot) Stop() {
	for _, cmd := range b.registered {
		if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.guildID, cmd.ID); err != nil {
			b.logger.Warn("failed to delete command", "command", cmd.Name, "error", err)
		}
	}
	if err := b.session.Close(); err != nil {
		b.logger.Warn("error closing discord session", "error", err)
	}
}

// trackPoll registers an open poll and spawns the watcher that announces the
// tally in the channel when the window closes.
func (b *Bot) trackPoll(ctx context.Context, poll *game.Poll, guildID, channelID string) {
	b.mu.Lock()
	b.polls[poll.ID] = poll
	b.guildPolls[guildID] = poll.ID
	b.mu.Unlock()

	go func() {
		result := <-tasks.WatchPoll(ctx, poll)

		b.mu.Lock()
		delete(b.polls, poll.ID)
		if b.guildPolls[guildID] == poll.ID {
			delete(b.guildPolls, guildID)
		}
		b.mu.Unlock()

		b.announceResult(channelID, result)
	}()
}

// lookupPoll finds an open poll by ID.
func (b *Bot) lookupPoll(id string) (*game.Poll, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	poll, ok := b.polls[id]
	return poll, ok
}

// guildPoll finds the open poll for a guild, if any.
func (b *Bot) guildPoll(guildID string) (*game.Poll, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.guildPolls[guildID]
	if !ok {
		return nil, false
	}
	poll, ok := b.polls[id]
	return poll, ok
}
