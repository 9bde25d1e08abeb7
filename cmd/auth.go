package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"auxcord/internal/auth"
	"auxcord/internal/server"
	"auxcord/internal/shared"

	"github.com/urfave/cli/v3"
)

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify credential management",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify interactively via the browser",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the current credential state",
				Action: r.AuthStatus,
			},
			{
				Name:   "export",
				Usage:  "Print the stored token blob for the SPOTIFY_TOKEN_CACHE variable",
				Action: r.AuthExport,
			},
		},
	}
}

// AuthLogin runs the OAuth2 authorization code flow with a local callback
// server, persists the credential, and prints the blob for headless hosts.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	manager, _, err := r.tokenManager(db, false)
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, manager)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Spotify authorized")
	blob, err := token.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	r.writePlain("For headless deploys, set this as SPOTIFY_TOKEN_CACHE:\n%s\n", string(blob))
	return nil
}

// AuthStatus reports the reconciled credential state.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	manager, _, err := r.tokenManager(db, true)
	if err != nil {
		return err
	}

	state := manager.State(ctx)
	r.writePlain("Credential state: %s\n", state)

	if token, err := manager.Cached(ctx); err == nil && token != nil {
		expires := time.Unix(token.ExpiresAt, 0)
		r.writePlain("Access token expires: %s\n", expires.Format(time.RFC3339))
		r.writePlain("Scopes: %v\n", token.Scopes())
	}
	return nil
}

// AuthExport prints the stored token blob so an operator can rotate the
// environment variable on a deploy host.
func (r *Runner) AuthExport(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	manager, _, err := r.tokenManager(db, true)
	if err != nil {
		return err
	}

	token, err := manager.Cached(ctx)
	if err != nil {
		return fmt.Errorf("no stored credential: %w", err)
	}

	blob, err := token.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return r.writePlain("%s\n", string(blob))
}

// doOAuth executes the authorization code flow with a temporary local HTTP
// server receiving the callback.
func (r *Runner) doOAuth(ctx context.Context, manager *auth.Manager) (*auth.Token, error) {
	state := shared.GenerateID()
	authURL := manager.AuthorizeURL(state)

	oauthHandler := server.NewOAuthHandler(manager, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("waiting for OAuth callback", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("authorization timed out after 2 minutes")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down callback server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}
	return result.Token, nil
}
