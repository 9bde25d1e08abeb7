package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"auxcord/internal/auth"
	"auxcord/internal/shared"
	"auxcord/internal/store"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Runner holds the dependencies for CLI commands and provides a method per
// command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, setupCommand, authCommand, playlistCommand, rosterCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// openDatabase opens the configured SQLite database and runs migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// tokenManager assembles the credential sources and lifecycle manager shared
// by the bot and the auth commands.
func (r *Runner) tokenManager(db *sql.DB, headless bool) (*auth.Manager, *store.SQLiteStore, error) {
	spotify := r.config.Spotify
	if spotify.ClientID == "" || spotify.ClientSecret == "" {
		return nil, nil, fmt.Errorf("%w: spotify client id and secret", shared.ErrMissingCredentials)
	}

	durable := store.NewSQLiteStore(db)
	sources := []store.TokenStore{durable, store.NewEnvStore(spotify.TokenBlob)}
	if spotify.CachePath != "" {
		sources = append(sources, store.NewFileStore(spotify.CachePath))
	}

	manager := auth.NewManager(auth.ManagerConfig{
		Provider:   auth.NewOAuthProvider(spotify.ClientID, spotify.ClientSecret, spotify.RedirectURI),
		Sources:    sources,
		Logger:     r.logger,
		Headless:   headless,
		ForceReset: spotify.ForceTokenReset,
	})
	return manager, durable, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
