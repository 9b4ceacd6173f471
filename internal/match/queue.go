// Package match holds the FIFO matchmaking queue. A scheduler tick pairs the
// two oldest still-eligible entries and assigns colors with a fair coin.
package match

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"
)

type entry struct {
	playerID   string
	enqueuedAt time.Time
}

// Pair is a matched pairing with colors already assigned.
type Pair struct {
	WhiteID string
	BlackID string
}

// Eligibility reports whether a queued player is still connected and not
// bound to a game; stale entries are dropped silently on tick.
type Eligibility func(playerID string) bool

type Queue struct {
	mu      sync.Mutex
	entries []entry
	maxWait time.Duration
}

// NewQueue builds a queue; entries older than maxWait are dropped on tick
// (maxWait <= 0 disables the age limit).
func NewQueue(maxWait time.Duration) *Queue {
	return &Queue{maxWait: maxWait}
}

// Enqueue appends the player, refusing duplicates.
func (q *Queue) Enqueue(playerID string, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.playerID == playerID {
			return false
		}
	}
	q.entries = append(q.entries, entry{playerID: playerID, enqueuedAt: now})
	return true
}

// Remove drops the player's entry, if any.
func (q *Queue) Remove(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.playerID == playerID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) Contains(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.playerID == playerID {
			return true
		}
	}
	return false
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Tick prunes ineligible and over-age entries, then pairs the oldest
// remaining players two at a time. A single leftover player stays queued.
func (q *Queue) Tick(now time.Time, eligible Eligibility) []Pair {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.entries[:0]
	for _, e := range q.entries {
		if q.maxWait > 0 && now.Sub(e.enqueuedAt) > q.maxWait {
			continue
		}
		if eligible != nil && !eligible(e.playerID) {
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept

	var pairs []Pair
	for len(q.entries) >= 2 {
		first, second := q.entries[0], q.entries[1]
		q.entries = q.entries[2:]
		if fairCoin() {
			pairs = append(pairs, Pair{WhiteID: first.playerID, BlackID: second.playerID})
		} else {
			pairs = append(pairs, Pair{WhiteID: second.playerID, BlackID: first.playerID})
		}
	}
	return pairs
}

// fairCoin draws a uniform bit from crypto/rand; on failure it falls back to
// first-come-white, which only skews colors if the entropy source is broken.
func fairCoin() bool {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return true
	}
	return n.Int64() == 0
}
