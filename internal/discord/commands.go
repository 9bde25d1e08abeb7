package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// votePrefix namespaces the vote button custom IDs: vote:<pollID>:<candidate>.
const votePrefix = "vote"

// commandDefinitions declares the guild's slash commands.
func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "addsong",
			Description: "Add a song to the shared playlist",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "song",
					Description: "Song title",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "artist",
					Description: "Artist name",
					Required:    false,
				},
			},
		},
		{
			Name:        "deletesong",
			Description: "Remove a song from the shared playlist",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "song",
					Description: "Song title (substring match)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "artist",
					Description: "Artist name (substring match)",
					Required:    false,
				},
			},
		},
		{
			Name:        "spotifylink",
			Description: "Get the link to the shared playlist",
		},
		{
			Name:        "spotifyauth",
			Description: "Get the Spotify authorization link for the bot operator",
		},
		{
			Name:        "botstatus",
			Description: "Show the bot's Spotify credential state",
		},
		{
			Name:        "commands",
			Description: "List what the bot can do",
		},
		{
			Name:        "newround",
			Description: "Start a new guess-the-DJ round",
		},
		{
			Name:        "startvote",
			Description: "Open voting on the current round",
		},
		{
			Name:        "vote",
			Description: "Vote for who you think the DJ is",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "dj",
					Description: "Name of the DJ you're guessing",
					Required:    true,
				},
			},
		},
		{
			Name:        "resetdjs",
			Description: "Return every DJ to the selection pool",
		},
	}
}

// commandHelp is the /commands reply body.
func commandHelp() string {
	lines := []string{
		"`/addsong song [artist]` — add a song to the shared playlist",
		"`/deletesong song [artist]` — remove a song from the playlist",
		"`/spotifylink` — link to the playlist",
		"`/newround` — start a guess-the-DJ round",
		"`/startvote` — open voting on the current round",
		"`/vote dj` — cast your guess by name instead of the buttons",
		"`/resetdjs` — reset the DJ pool",
		"`/botstatus` — credential state",
		"`/spotifyauth` — operator re-authorization link",
	}
	return strings.Join(lines, "\n")
}

// voteCustomID encodes a vote button's poll and candidate.
func voteCustomID(pollID, candidate string) string {
	return fmt.Sprintf("%s:%s:%s", votePrefix, pollID, candidate)
}

// parseVoteCustomID splits a vote button ID back into poll and candidate.
// The candidate may itself contain colons, so only the first two separators
// split.
func parseVoteCustomID(id string) (pollID, candidate string, ok bool) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] != votePrefix {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// voteButtons renders one button row per candidate batch; Discord caps a row
// at five buttons.
func voteButtons(pollID string, candidates []string) []discordgo.MessageComponent {
	const perRow = 5

	var rows []discordgo.MessageComponent
	for start := 0; start < len(candidates); start += perRow {
		end := start + perRow
		if end > len(candidates) {
			end = len(candidates)
		}

		var row discordgo.ActionsRow
		for _, candidate := range candidates[start:end] {
			row.Components = append(row.Components, discordgo.Button{
				Label:    candidate,
				Style:    discordgo.PrimaryButton,
				CustomID: voteCustomID(pollID, candidate),
			})
		}
		rows = append(rows, row)
	}
	return rows
}
