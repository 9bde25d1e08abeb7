package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"auxcord/internal/formatter"
	"auxcord/internal/playlist"
	"auxcord/internal/shared"
	"auxcord/internal/tasks"

	"github.com/bwmarrin/discordgo"
)

// handleInteraction routes slash commands and vote button presses.
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i)
	}
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	b.logger.Info("command received", "command", name, "guild", i.GuildID)

	switch name {
	case "addsong":
		b.handleAddSong(s, i)
	case "deletesong":
		b.handleDeleteSong(s, i)
	case "spotifylink":
		b.handleSpotifyLink(s, i)
	case "spotifyauth":
		b.handleSpotifyAuth(s, i)
	case "botstatus":
		b.handleBotStatus(s, i)
	case "commands":
		b.respondText(s, i, commandHelp(), true)
	case "newround":
		b.handleNewRound(s, i)
	case "startvote":
		b.handleStartVote(s, i)
	case "vote":
		b.handleVote(s, i)
	case "resetdjs":
		b.handleResetDJs(s, i)
	default:
		b.respondText(s, i, "Unknown command.", true)
	}
}

func (b *Bot) handleAddSong(s *discordgo.Session, i *discordgo.InteractionCreate) {
	song, artist := songOptions(i)
	b.acknowledge(s, i)

	track, status, err := b.mutator.AddTopMatch(context.Background(), song, artist)
	if err != nil {
		b.editError(s, i, err)
		return
	}

	title := "Added to the playlist"
	if status == playlist.StatusAlreadyPresent {
		title = "Already on the playlist"
	}
	b.editEmbed(s, i, formatter.TrackEmbed(title, track))
}

func (b *Bot) handleDeleteSong(s *discordgo.Session, i *discordgo.InteractionCreate) {
	song, artist := songOptions(i)
	b.acknowledge(s, i)

	track, err := b.mutator.RemoveFirstMatch(context.Background(), song, artist)
	if err != nil {
		b.editError(s, i, err)
		return
	}
	b.editEmbed(s, i, formatter.TrackEmbed("Removed from the playlist", track))
}

func (b *Bot) handleSpotifyLink(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.acknowledge(s, i)

	pl, err := b.mutator.Link(context.Background())
	if err != nil {
		b.editError(s, i, err)
		return
	}
	b.editEmbed(s, i, formatter.PlaylistEmbed(pl))
}

func (b *Bot) handleSpotifyAuth(s *discordgo.Session, i *discordgo.InteractionCreate) {
	url := b.creds.AuthorizeURL(shared.GenerateID())
	b.respondText(s, i, fmt.Sprintf("Authorize the bot here, then run the auth command on the host:\n%s", url), true)
}

func (b *Bot) handleBotStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	state := b.creds.State(context.Background())
	b.respondText(s, i, fmt.Sprintf("Spotify credential: **%s**", state), true)
}

func (b *Bot) handleNewRound(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.acknowledge(s, i)

	records, err := b.roster.Fetch(context.Background())
	if err != nil {
		b.editError(s, i, err)
		return
	}

	round, err := b.engine.StartRound(context.Background(), i.GuildID, records)
	if err != nil {
		b.editError(s, i, err)
		return
	}
	b.editEmbed(s, i, formatter.RoundEmbed(round.Songs, round.Candidates))
}

func (b *Bot) handleStartVote(s *discordgo.Session, i *discordgo.InteractionCreate) {
	poll, err := b.engine.StartVote(i.GuildID)
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	b.trackPoll(context.Background(), poll, i.GuildID, i.ChannelID)

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    fmt.Sprintf("Who is the DJ? You have %.0f seconds!", b.engine.VoteWindow().Seconds()),
			Components: voteButtons(poll.ID, poll.Options),
		},
	})
	if err != nil {
		b.logger.Error("failed to respond to startvote", "error", err)
	}
}

// handleVote records a vote typed as a command, for anyone who'd rather
// not use the buttons.
func (b *Bot) handleVote(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var name string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "dj" {
			name = opt.StringValue()
		}
	}

	poll, found := b.guildPoll(i.GuildID)
	if !found {
		b.respondText(s, i, "No vote is open right now.", true)
		return
	}

	candidate := name
	for _, option := range poll.Options {
		if strings.EqualFold(option, name) {
			candidate = option
			break
		}
	}

	if err := poll.CastVote(i.Member.User.ID, candidate); err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondText(s, i, fmt.Sprintf("Vote recorded for **%s**. You can change it until time runs out.", candidate), true)
}

func (b *Bot) handleResetDJs(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := b.engine.ResetHistory(context.Background()); err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondText(s, i, "DJ pool reset. Everyone is back in the running.", false)
}

// handleComponent records a vote button press.
func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	pollID, candidate, ok := parseVoteCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}

	poll, found := b.lookupPoll(pollID)
	if !found {
		b.respondText(s, i, "That vote is over.", true)
		return
	}

	voterID := i.Member.User.ID
	if err := poll.CastVote(voterID, candidate); err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondText(s, i, fmt.Sprintf("Vote recorded for **%s**. You can change it until time runs out.", candidate), true)
}

// announceResult posts the tally embed once a poll closes.
func (b *Bot) announceResult(channelID string, result tasks.PollResult) {
	embed := formatter.TallyEmbed(result.Counts, result.Poll.Options, result.Target, result.WinnerIDs)
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Error("failed to announce poll result", "channel", channelID, "error", err)
	}
}

// songOptions pulls the song and optional artist options off an interaction.
func songOptions(i *discordgo.InteractionCreate) (song, artist string) {
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "song":
			song = opt.StringValue()
		case "artist":
			artist = opt.StringValue()
		}
	}
	return song, artist
}

// userMessage translates an error into the text shown to the channel. Raw
// transport detail stays in the logs.
func userMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return "I couldn't find that one. Check the spelling?"
	case errors.Is(err, shared.ErrAuthRequired), errors.Is(err, shared.ErrRefreshFailed):
		return "Spotify needs to be re-authorized. Try `/spotifyauth`."
	case errors.Is(err, shared.ErrInsufficientData):
		return "Not enough DJs on the roster for a round (need at least 4)."
	case errors.Is(err, shared.ErrInsufficientDecoys):
		return "Not enough unused DJs left. `/resetdjs` starts the pool over."
	case errors.Is(err, shared.ErrNoActiveRound):
		return "No round is waiting. Start one with `/newround`."
	case errors.Is(err, shared.ErrPollClosed):
		return "Voting is closed for that round."
	case errors.Is(err, shared.ErrInvalidInput):
		return "That's not one of the choices."
	case errors.Is(err, shared.ErrTransient):
		return "Spotify hiccuped. Give it a second and try again."
	default:
		return "Something went wrong talking to Spotify."
	}
}

// acknowledge defers the interaction so slow Spotify calls don't hit the
// three second reply deadline.
func (b *Bot) acknowledge(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		b.logger.Error("failed to defer interaction", "error", err)
	}
}

func (b *Bot) respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Error("failed to respond to interaction", "error", err)
	}
}

func (b *Bot) respondError(s *discordgo.Session, i *discordgo.InteractionCreate, cause error) {
	b.logger.Error("command failed", "error", cause)
	b.respondText(s, i, userMessage(cause), true)
}

func (b *Bot) editEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		b.logger.Error("failed to edit interaction response", "error", err)
	}
}

func (b *Bot) editError(s *discordgo.Session, i *discordgo.InteractionCreate, cause error) {
	b.logger.Error("command failed", "error", cause)
	content := userMessage(cause)
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	if err != nil {
		b.logger.Error("failed to edit interaction response", "error", err)
	}
}
