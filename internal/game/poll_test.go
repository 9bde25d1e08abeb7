package game

import (
	"errors"
	"testing"
	"time"

	"auxcord/internal/shared"
)

// clock is a settable time source for deadline tests.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testPoll(window time.Duration) (*Poll, *clock) {
	c := &clock{t: time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)}
	p := newPoll("alice", []string{"alice", "bob", "carol", "dave"}, c.t.Add(window), c.now)
	return p, c
}

func TestCastVote(t *testing.T) {
	t.Run("revote keeps only the latest choice", func(t *testing.T) {
		p, _ := testPoll(30 * time.Second)

		if err := p.CastVote("v1", "bob"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := p.CastVote("v1", "alice"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		counts := p.Tally()
		if counts["alice"] != 1 || counts["bob"] != 0 {
			t.Errorf("unexpected tally %v", counts)
		}
	})

	t.Run("unknown candidate is rejected", func(t *testing.T) {
		p, _ := testPoll(30 * time.Second)

		err := p.CastVote("v1", "mallory")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("votes after the deadline are rejected", func(t *testing.T) {
		p, c := testPoll(30 * time.Second)

		if err := p.CastVote("v1", "alice"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		c.advance(31 * time.Second)
		if err := p.CastVote("v2", "alice"); !errors.Is(err, shared.ErrPollClosed) {
			t.Fatalf("expected ErrPollClosed, got %v", err)
		}
		if !p.Closed() {
			t.Error("expected poll closed after deadline")
		}

		// Early votes survive the close.
		if got := p.Tally()["alice"]; got != 1 {
			t.Errorf("expected 1 vote for alice, got %d", got)
		}
	})

	t.Run("close is terminal", func(t *testing.T) {
		p, _ := testPoll(30 * time.Second)
		p.Close()

		if err := p.CastVote("v1", "alice"); !errors.Is(err, shared.ErrPollClosed) {
			t.Fatalf("expected ErrPollClosed, got %v", err)
		}
	})
}

func TestTallyAndWinners(t *testing.T) {
	t.Run("tally counts final choices and lists every candidate", func(t *testing.T) {
		p, _ := testPoll(30 * time.Second)

		p.CastVote("v1", "alice")
		p.CastVote("v2", "alice")
		p.CastVote("v3", "bob")
		p.CastVote("v4", "bob")
		p.CastVote("v4", "carol")
		p.Close()

		counts := p.Tally()
		want := map[string]int{"alice": 2, "bob": 1, "carol": 1, "dave": 0}
		for name, n := range want {
			if counts[name] != n {
				t.Errorf("tally[%s] = %d, want %d", name, counts[name], n)
			}
		}
	})

	t.Run("winners are the voters who named the target", func(t *testing.T) {
		p, _ := testPoll(30 * time.Second)

		p.CastVote("v2", "alice")
		p.CastVote("v1", "alice")
		p.CastVote("v3", "bob")
		p.Close()

		winners := p.Winners()
		if len(winners) != 2 || winners[0] != "v1" || winners[1] != "v2" {
			t.Errorf("unexpected winners %v", winners)
		}
	})

	t.Run("no winners when nobody guessed", func(t *testing.T) {
		p, _ := testPoll(30 * time.Second)

		p.CastVote("v1", "bob")
		p.Close()

		if winners := p.Winners(); len(winners) != 0 {
			t.Errorf("expected no winners, got %v", winners)
		}
	})
}
