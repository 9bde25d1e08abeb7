package game

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"auxcord/internal/shared"
)

// Poll is the timed voting phase of a round. Votes are last-write-wins per
// voter and accepted only until the deadline; once closed, the poll stays
// closed.
type Poll struct {
	ID       string
	Target   string
	Options  []string
	Deadline time.Time

	now func() time.Time

	mu     sync.Mutex
	votes  map[string]string
	closed bool
}

func newPoll(target string, options []string, deadline time.Time, now func() time.Time) *Poll {
	return &Poll{
		ID:       shared.GenerateID(),
		Target:   target,
		Options:  options,
		Deadline: deadline,
		now:      now,
		votes:    make(map[string]string),
	}
}

// CastVote records the voter's choice, replacing any earlier vote from the
// same voter. Fails with [shared.ErrPollClosed] after the deadline and
// [shared.ErrInvalidInput] for a choice outside the candidate list.
func (p *Poll) CastVote(voterID, choice string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.now().Before(p.Deadline) {
		p.closed = true
		return shared.ErrPollClosed
	}

	valid := false
	for _, option := range p.Options {
		if option == choice {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %q is not a candidate", shared.ErrInvalidInput, choice)
	}

	p.votes[voterID] = choice
	return nil
}

// Close ends the poll. Closing is terminal and idempotent.
func (p *Poll) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Closed reports whether the poll no longer accepts votes.
func (p *Poll) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed || !p.now().Before(p.Deadline)
}

// Tally returns the vote count per candidate. Every candidate appears, also
// those with zero votes; ties get no special handling.
func (p *Poll) Tally() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	counts := make(map[string]int, len(p.Options))
	for _, option := range p.Options {
		counts[option] = 0
	}
	for _, choice := range p.votes {
		counts[choice]++
	}
	return counts
}

// Winners returns the voters whose final choice names the target, sorted for
// stable output.
func (p *Poll) Winners() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var winners []string
	for voter, choice := range p.votes {
		if choice == p.Target {
			winners = append(winners, voter)
		}
	}
	sort.Strings(winners)
	return winners
}
