// package game implements the guess-the-DJ party game: rounds pick a target
// DJ and decoys, then a timed poll collects guesses.
package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"auxcord/internal/shared"
	"auxcord/internal/spotify"

	"github.com/charmbracelet/log"
)

// decoyCount is the number of wrong answers presented beside the target.
const decoyCount = 3

// minRecords is the smallest roster a round can be built from: one target
// plus decoyCount decoys.
const minRecords = decoyCount + 1

// Record is one DJ's roster entry: their name and the songs they submitted.
type Record struct {
	Name  string
	Songs []string
}

// Dedupe collapses records sharing a name, keeping the latest occurrence.
// Roster spreadsheets accumulate re-submissions; the newest row wins.
func Dedupe(records []Record) []Record {
	latest := make(map[string]Record, len(records))
	order := make([]string, 0, len(records))
	for _, r := range records {
		if _, seen := latest[r.Name]; !seen {
			order = append(order, r.Name)
		}
		latest[r.Name] = r
	}

	out := make([]Record, 0, len(order))
	for _, name := range order {
		out = append(out, latest[name])
	}
	return out
}

// Tracker records which DJs have already been a round's target. Satisfied by
// [store.HistoryStore].
type Tracker interface {
	Add(ctx context.Context, name string) error
	Names(ctx context.Context) ([]string, error)
	Reset(ctx context.Context) error
}

// Lookup resolves a song string to a catalog track for display links.
// Satisfied by [playlist.Mutator].
type Lookup interface {
	FindTrack(ctx context.Context, song, artist string) (*spotify.Track, error)
}

// Round is one instance of the game before voting starts: a secret target,
// the target's songs rendered as display strings, and a shuffled candidate
// list. Rounds are ephemeral and lost on restart.
type Round struct {
	Target     string
	Songs      []string
	Candidates []string
	CreatedAt  time.Time
}

// Engine owns the per-guild active rounds. Starting a round marks the target
// as used immediately, so an abandoned round still spends its DJ.
type Engine struct {
	tracker    Tracker
	lookup     Lookup
	voteWindow time.Duration
	rng        *rand.Rand
	logger     *log.Logger
	now        func() time.Time

	mu     sync.Mutex
	rounds map[string]*Round
}

// EngineConfig carries the Engine's optional knobs; zero values get
// sensible defaults.
type EngineConfig struct {
	// VoteWindow is how long polls accept votes. Defaults to 30 seconds.
	VoteWindow time.Duration
	// Rand drives target and decoy selection. Defaults to a time-seeded
	// source; tests inject a fixed seed.
	Rand *rand.Rand
	// Logger defaults to the package logger.
	Logger *log.Logger
}

// NewEngine creates an Engine over the given history tracker and song lookup.
func NewEngine(tracker Tracker, lookup Lookup, cfg EngineConfig) *Engine {
	if cfg.VoteWindow <= 0 {
		cfg.VoteWindow = 30 * time.Second
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(nil)
	}
	return &Engine{
		tracker:    tracker,
		lookup:     lookup,
		voteWindow: cfg.VoteWindow,
		rng:        cfg.Rand,
		logger:     cfg.Logger,
		now:        time.Now,
		rounds:     make(map[string]*Round),
	}
}

// StartRound builds a new round for the guild from the roster, replacing any
// round already pending there. The roster is deduplicated keep-latest, DJs
// already used as targets are excluded, and the target is marked used before
// the round is returned. Fails with [shared.ErrInsufficientData] when the
// roster itself is too small and [shared.ErrInsufficientDecoys] when too few
// unused DJs remain.
func (e *Engine) StartRound(ctx context.Context, guildID string, records []Record) (*Round, error) {
	records = Dedupe(records)
	if len(records) < minRecords {
		return nil, fmt.Errorf("%w: need at least %d DJs, have %d", shared.ErrInsufficientData, minRecords, len(records))
	}

	used, err := e.tracker.Names(ctx)
	if err != nil {
		return nil, err
	}
	usedSet := make(map[string]struct{}, len(used))
	for _, name := range used {
		usedSet[name] = struct{}{}
	}

	available := make([]Record, 0, len(records))
	for _, r := range records {
		if _, spent := usedSet[r.Name]; !spent {
			available = append(available, r)
		}
	}
	if len(available) < minRecords {
		return nil, fmt.Errorf("%w: %d unused DJs left, need %d", shared.ErrInsufficientDecoys, len(available), minRecords)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	targetIdx := e.rng.Intn(len(available))
	target := available[targetIdx]

	// Spend the target before anything else; an abandoned round must not
	// put its DJ back in the pool.
	if err := e.tracker.Add(ctx, target.Name); err != nil {
		return nil, err
	}

	pool := make([]Record, 0, len(available)-1)
	pool = append(pool, available[:targetIdx]...)
	pool = append(pool, available[targetIdx+1:]...)
	e.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	candidates := make([]string, 0, minRecords)
	candidates = append(candidates, target.Name)
	for _, decoy := range pool[:decoyCount] {
		candidates = append(candidates, decoy.Name)
	}
	e.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	round := &Round{
		Target:     target.Name,
		Songs:      e.renderSongs(ctx, target.Songs),
		Candidates: candidates,
		CreatedAt:  e.now(),
	}
	e.rounds[guildID] = round

	e.logger.Info("round started", "guild", guildID, "candidates", len(candidates), "songs", len(round.Songs))
	return round, nil
}

// renderSongs resolves each song to a markdown link, falling back to the raw
// string when the lookup fails.
func (e *Engine) renderSongs(ctx context.Context, songs []string) []string {
	out := make([]string, len(songs))
	for i, song := range songs {
		out[i] = song
		if e.lookup == nil {
			continue
		}
		track, err := e.lookup.FindTrack(ctx, song, "")
		if err != nil {
			e.logger.Debug("song lookup failed, using raw string", "song", song, "error", err)
			continue
		}
		if track.ExternalURLs.Spotify != "" {
			out[i] = fmt.Sprintf("[%s](%s)", song, track.ExternalURLs.Spotify)
		}
	}
	return out
}

// ActiveRound returns the guild's pending round, if any.
func (e *Engine) ActiveRound(guildID string) (*Round, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	round, ok := e.rounds[guildID]
	return round, ok
}

// StartVote consumes the guild's pending round and opens a poll over its
// candidates. Fails with [shared.ErrNoActiveRound] when no round is pending.
func (e *Engine) StartVote(guildID string) (*Poll, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round, ok := e.rounds[guildID]
	if !ok {
		return nil, shared.ErrNoActiveRound
	}
	delete(e.rounds, guildID)

	poll := newPoll(round.Target, round.Candidates, e.now().Add(e.voteWindow), e.now)
	e.logger.Info("vote started", "guild", guildID, "poll", poll.ID, "closes", poll.Deadline)
	return poll, nil
}

// VoteWindow is the configured poll duration.
func (e *Engine) VoteWindow() time.Duration {
	return e.voteWindow
}

// ResetHistory clears the used-DJ set, returning every DJ to the pool.
func (e *Engine) ResetHistory(ctx context.Context) error {
	return e.tracker.Reset(ctx)
}
