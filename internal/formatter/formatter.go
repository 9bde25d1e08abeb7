// package formatter renders playlist and game state for Discord messages and
// CLI output.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"auxcord/internal/spotify"

	"github.com/bwmarrin/discordgo"
)

// spotifyGreen is the accent color used on embeds.
const spotifyGreen = 0x1DB954

// Artists joins a track's artist names for display.
func Artists(t *spotify.Track) string {
	return strings.Join(t.ArtistNames(), ", ")
}

// TrackEmbed renders a track as a Discord embed with the given title line.
func TrackEmbed(title string, t *spotify.Track) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("**%s**\n%s", t.Name, Artists(t)),
		URL:         t.ExternalURLs.Spotify,
		Color:       spotifyGreen,
	}
	if len(t.Album.Images) > 0 {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.Album.Images[0].URL}
	}
	return embed
}

// PlaylistEmbed renders the shared playlist's header and link.
func PlaylistEmbed(p *spotify.Playlist) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       p.Name,
		Description: p.Description,
		URL:         p.ExternalURLs.Spotify,
		Color:       spotifyGreen,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d tracks", p.Tracks.Total)},
	}
	if len(p.Images) > 0 {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: p.Images[0].URL}
	}
	return embed
}

// RoundEmbed renders a round prompt: the mystery DJ's songs and the
// candidate list players will vote on.
func RoundEmbed(songs, candidates []string) *discordgo.MessageEmbed {
	var body strings.Builder
	body.WriteString("**This DJ would play:**\n")
	for i, song := range songs {
		fmt.Fprintf(&body, "%d. %s\n", i+1, song)
	}
	body.WriteString("\n**Who is it?**\n")
	for _, name := range candidates {
		fmt.Fprintf(&body, "• %s\n", name)
	}

	return &discordgo.MessageEmbed{
		Title:       "Guess the DJ",
		Description: body.String(),
		Color:       spotifyGreen,
	}
}

// TallyEmbed renders the poll outcome: per-candidate counts, the revealed
// target, and the winning voters as mentions.
func TallyEmbed(counts map[string]int, options []string, target string, winnerIDs []string) *discordgo.MessageEmbed {
	var body strings.Builder
	body.WriteString("**Votes:**\n")
	for _, option := range sortedByCount(counts, options) {
		fmt.Fprintf(&body, "%s — %d\n", option, counts[option])
	}

	fmt.Fprintf(&body, "\nThe DJ was **%s**!\n", target)
	if len(winnerIDs) == 0 {
		body.WriteString("Nobody guessed right.")
	} else {
		mentions := make([]string, len(winnerIDs))
		for i, id := range winnerIDs {
			mentions[i] = "<@" + id + ">"
		}
		fmt.Fprintf(&body, "Correct: %s", strings.Join(mentions, " "))
	}

	return &discordgo.MessageEmbed{
		Title:       "Round Over",
		Description: body.String(),
		Color:       spotifyGreen,
	}
}

// sortedByCount orders options by descending vote count, preserving the
// original order among ties.
func sortedByCount(counts map[string]int, options []string) []string {
	ordered := make([]string, len(options))
	copy(ordered, options)
	sort.SliceStable(ordered, func(i, j int) bool {
		return counts[ordered[i]] > counts[ordered[j]]
	})
	return ordered
}

// PlaylistToCSV exports playlist items as CSV with columns: Title, Artists,
// Album, Duration (ms), URI.
func PlaylistToCSV(items []spotify.PlaylistTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Title", "Artists", "Album", "Duration", "URI"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		record := []string{
			item.Track.Name,
			Artists(&item.Track),
			item.Track.Album.Name,
			strconv.Itoa(item.Track.DurationMS),
			item.Track.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// PlaylistToText exports playlist items as a plain numbered list.
func PlaylistToText(p *spotify.Playlist, items []spotify.PlaylistTrack) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Playlist: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(items))

	for i, item := range items {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, Artists(&item.Track), item.Track.Name)
	}
	return buf.Bytes()
}
