package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auxcord/internal/discord"
	"auxcord/internal/game"
	"auxcord/internal/playlist"
	"auxcord/internal/server"
	"auxcord/internal/shared"
	"auxcord/internal/sheets"
	"auxcord/internal/spotify"
	"auxcord/internal/store"
	"auxcord/internal/tasks"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the Discord bot",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ping-interval",
				Usage: "Keep-alive ping interval",
				Value: 30 * time.Minute,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: r.Run,
	}
}

// gatewayPinger adapts the gateway's profile call to the keep-alive loop.
type gatewayPinger struct {
	gateway *spotify.Gateway
}

func (p *gatewayPinger) Ping(ctx context.Context) error {
	_, err := p.gateway.CurrentUser(ctx)
	return err
}

// Run starts the bot: token manager, gateway, game engine, slash commands,
// health endpoint, and the keep-alive loop. Blocks until SIGINT/SIGTERM.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	manager, durable, err := r.tokenManager(db, true)
	if err != nil {
		return err
	}

	gateway := spotify.NewGateway(manager, spotify.WithLogger(r.logger))
	mutator := playlist.NewMutator(gateway, r.config.Spotify.PlaylistID, r.logger)

	engine := game.NewEngine(store.NewHistoryStore(durable), mutator, game.EngineConfig{
		VoteWindow: time.Duration(r.config.Game.VoteSeconds) * time.Second,
		Logger:     r.logger,
	})
	roster := sheets.NewFetcher(r.config.Game.SheetCSVURL, r.logger)

	// Connectivity probe. A dead credential is worth knowing about at
	// startup rather than on the first /addsong.
	probeCtx, cancelProbe := context.WithTimeout(ctx, 15*time.Second)
	if user, err := gateway.CurrentUser(probeCtx); err != nil {
		r.logger.Warn("spotify probe failed, commands will error until re-auth", "error", err)
	} else {
		r.logger.Info("spotify connected", "user", user.ID)
	}
	cancelProbe()

	bot, err := discord.New(discord.Config{
		Token:   r.config.Discord.Token,
		GuildID: r.config.Discord.GuildID,
		Mutator: mutator,
		Engine:  engine,
		Roster:  roster,
		Creds:   manager,
		Logger:  r.logger,
	})
	if err != nil {
		return err
	}
	if err := bot.Start(ctx); err != nil {
		return err
	}
	defer bot.Stop()

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(server.NewStatusHandler(manager))
	httpServer := server.New(fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port), router, r.logger)

	serverErrors := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			serverErrors <- err
		}
	}()

	bgCtx, cancelBg := context.WithCancel(ctx)
	defer cancelBg()
	keepAlive := tasks.NewKeepAlive(&gatewayPinger{gateway: gateway}, cmd.Duration("ping-interval"), r.logger)
	go keepAlive.Run(bgCtx)

	r.logger.Info("bot running", "guild", r.config.Discord.GuildID, "playlist", r.config.Spotify.PlaylistID)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		r.logger.Info("shutting down", "signal", sig)
	case err := <-serverErrors:
		r.logger.Error("http server failed", "error", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down http server", "error", err)
	}

	return nil
}
