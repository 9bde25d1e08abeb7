package main

import (
	"context"
	"fmt"
	"os"

	"auxcord/internal/formatter"
	"auxcord/internal/game"
	"auxcord/internal/sheets"
	"auxcord/internal/spotify"

	"github.com/urfave/cli/v3"
)

func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Inspect and export the shared playlist",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the playlist's tracks",
				Action: r.PlaylistShow,
			},
			{
				Name:  "export",
				Usage: "Export the playlist as CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (stdout when omitted)",
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

func rosterCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "roster",
		Usage: "Inspect the DJ roster spreadsheet",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.RosterShow,
	}
}

// playlistGateway builds a gateway plus the configured playlist ID for the
// read-only CLI commands.
func (r *Runner) playlistGateway(ctx context.Context) (*spotify.Gateway, string, func(), error) {
	db, err := r.openDatabase()
	if err != nil {
		return nil, "", nil, err
	}

	manager, _, err := r.tokenManager(db, true)
	if err != nil {
		db.Close()
		return nil, "", nil, err
	}

	if r.config.Spotify.PlaylistID == "" {
		db.Close()
		return nil, "", nil, fmt.Errorf("no playlist configured")
	}

	gateway := spotify.NewGateway(manager, spotify.WithLogger(r.logger))
	return gateway, r.config.Spotify.PlaylistID, func() { db.Close() }, nil
}

// PlaylistShow prints the playlist as a plain numbered list.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	gateway, playlistID, cleanup, err := r.playlistGateway(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	pl, err := gateway.Playlist(ctx, playlistID)
	if err != nil {
		return err
	}
	items, err := gateway.PlaylistItems(ctx, playlistID)
	if err != nil {
		return err
	}

	return r.writePlain("%s", formatter.PlaylistToText(pl, items))
}

// PlaylistExport writes the playlist as CSV to a file or stdout.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	gateway, playlistID, cleanup, err := r.playlistGateway(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	items, err := gateway.PlaylistItems(ctx, playlistID)
	if err != nil {
		return err
	}

	data, err := formatter.PlaylistToCSV(items)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		r.logger.Info("playlist exported", "path", path, "tracks", len(items))
		return nil
	}
	return r.writePlain("%s", data)
}

// RosterShow fetches and prints the deduplicated DJ roster.
func (r *Runner) RosterShow(ctx context.Context, cmd *cli.Command) error {
	if r.config.Game.SheetCSVURL == "" {
		return fmt.Errorf("no roster sheet configured")
	}

	records, err := sheets.NewFetcher(r.config.Game.SheetCSVURL, r.logger).Fetch(ctx)
	if err != nil {
		return err
	}
	records = game.Dedupe(records)

	if cmd.Bool("json") {
		return r.writeJSON(records, true)
	}

	r.writePlain("DJs: %d\n\n", len(records))
	for i, record := range records {
		r.writePlain("%d. %s (%d songs)\n", i+1, record.Name, len(record.Songs))
	}
	return nil
}
