package main

import (
	"context"
	"os"

	"auxcord/internal/shared"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	// Local development keeps secrets in .env; deploy hosts inject real
	// environment variables, so a missing file is fine.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env")
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}
	config.ApplyEnv()

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "auxcord",
		Usage:    "Discord bot for a shared Spotify playlist and the guess-the-DJ game",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
