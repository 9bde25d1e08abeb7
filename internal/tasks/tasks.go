// package tasks implements the bot's background jobs: the periodic
// keep-alive ping that exercises the token refresh path, and the poll
// watcher that closes votes when their window expires.
package tasks

import (
	"context"
	"time"

	"auxcord/internal/game"
	"auxcord/internal/shared"

	"github.com/charmbracelet/log"
)

// defaultPingInterval keeps the access token warm well inside its one-hour
// lifetime.
const defaultPingInterval = 30 * time.Minute

// Pinger is the connectivity probe the keep-alive loop exercises. Satisfied
// by [spotify.Gateway.CurrentUser] via a wrapper, or any cheap
// authenticated call.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KeepAlive periodically pings the catalog so the credential is refreshed
// during idle stretches instead of on a player's command.
type KeepAlive struct {
	pinger   Pinger
	interval time.Duration
	logger   *log.Logger
}

// NewKeepAlive creates a keep-alive loop; a non-positive interval gets the
// default.
func NewKeepAlive(pinger Pinger, interval time.Duration, logger *log.Logger) *KeepAlive {
	if interval <= 0 {
		interval = defaultPingInterval
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &KeepAlive{pinger: pinger, interval: interval, logger: logger}
}

// Run pings on the interval until the context is cancelled. Failures are
// logged and the loop keeps going; the next command surfaces any real
// problem to the user.
func (k *KeepAlive) Run(ctx context.Context) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := k.pinger.Ping(ctx); err != nil {
				k.logger.Warn("keep-alive ping failed", "error", err)
				continue
			}
			k.logger.Debug("keep-alive ping ok")
		}
	}
}

// PollResult is the outcome of a finished vote, delivered to the chat layer
// for display.
type PollResult struct {
	Poll      *game.Poll
	Target    string
	Counts    map[string]int
	WinnerIDs []string
}

// WatchPoll closes the poll at its deadline and delivers the tally on the
// returned channel. Cancelling the context closes the poll early. The
// channel receives exactly one result and is then closed.
func WatchPoll(ctx context.Context, poll *game.Poll) <-chan PollResult {
	results := make(chan PollResult, 1)

	go func() {
		defer close(results)

		timer := time.NewTimer(time.Until(poll.Deadline))
		defer timer.Stop()

		select {
		case <-ctx.Done():
		case <-timer.C:
		}

		poll.Close()
		results <- PollResult{
			Poll:      poll,
			Target:    poll.Target,
			Counts:    poll.Tally(),
			WinnerIDs: poll.Winners(),
		}
	}()

	return results
}
