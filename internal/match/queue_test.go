package match

import (
	"testing"
	"time"
)

func allEligible(string) bool { return true }

func TestEnqueueDedupes(t *testing.T) {
	q := NewQueue(0)
	now := time.Unix(1000, 0)
	if !q.Enqueue("alice", now) {
		t.Fatalf("first enqueue should succeed")
	}
	if q.Enqueue("alice", now) {
		t.Fatalf("duplicate enqueue should be refused")
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d", q.Len())
	}
}

func TestTickPairsOldestFirst(t *testing.T) {
	q := NewQueue(0)
	now := time.Unix(1000, 0)
	q.Enqueue("alice", now)
	q.Enqueue("bob", now.Add(time.Second))
	q.Enqueue("carol", now.Add(2*time.Second))

	pairs := q.Tick(now.Add(3*time.Second), allEligible)
	if len(pairs) != 1 {
		t.Fatalf("expected one pair, got %d", len(pairs))
	}
	p := pairs[0]
	got := map[string]bool{p.WhiteID: true, p.BlackID: true}
	if !got["alice"] || !got["bob"] {
		t.Fatalf("oldest two should pair, got %+v", p)
	}
	if p.WhiteID == p.BlackID {
		t.Fatalf("colors must go to distinct players")
	}
	if !q.Contains("carol") || q.Len() != 1 {
		t.Fatalf("leftover player stays queued")
	}
}

func TestTickDropsIneligible(t *testing.T) {
	q := NewQueue(0)
	now := time.Unix(1000, 0)
	q.Enqueue("alice", now)
	q.Enqueue("bob", now)

	pairs := q.Tick(now, func(id string) bool { return id != "alice" })
	if len(pairs) != 0 {
		t.Fatalf("no pair should form with one eligible player")
	}
	if q.Contains("alice") {
		t.Fatalf("disconnected entry must be dropped")
	}
	if !q.Contains("bob") {
		t.Fatalf("eligible entry must remain")
	}
}

func TestTickDropsStaleEntries(t *testing.T) {
	q := NewQueue(time.Minute)
	now := time.Unix(1000, 0)
	q.Enqueue("alice", now)
	q.Enqueue("bob", now.Add(59*time.Second))

	pairs := q.Tick(now.Add(2*time.Minute), allEligible)
	if len(pairs) != 0 || q.Len() != 0 {
		t.Fatalf("over-age entries must be dropped: pairs=%d len=%d", len(pairs), q.Len())
	}
}

func TestColorAssignmentIsFair(t *testing.T) {
	const runs = 2000
	white := 0
	for i := 0; i < runs; i++ {
		q := NewQueue(0)
		now := time.Unix(1000, 0)
		q.Enqueue("alice", now)
		q.Enqueue("bob", now)
		pairs := q.Tick(now, allEligible)
		if len(pairs) != 1 {
			t.Fatalf("expected a pair")
		}
		if pairs[0].WhiteID == "alice" {
			white++
		}
	}
	// binomial(2000, 0.5): mean 1000, sd ~22; a 5-sigma band keeps the test
	// deterministic in practice
	if white < 888 || white > 1112 {
		t.Fatalf("alice drew white %d/%d times, outside fairness band", white, runs)
	}
}

func TestRemove(t *testing.T) {
	q := NewQueue(0)
	now := time.Unix(1000, 0)
	q.Enqueue("alice", now)
	if !q.Remove("alice") {
		t.Fatalf("remove should find the entry")
	}
	if q.Remove("alice") {
		t.Fatalf("second remove should report absence")
	}
}
