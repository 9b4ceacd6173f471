package game

import (
	"testing"
	"time"
)

func TestRegistryIndexes(t *testing.T) {
	f := newFixture(t, 0, 0)
	if f.reg.ActiveCount() != 1 {
		t.Fatalf("active = %d", f.reg.ActiveCount())
	}
	if s, ok := f.reg.Get(f.s.ID()); !ok || s != f.s {
		t.Fatalf("Get by game id failed")
	}
	for _, pid := range []string{"alice", "bob"} {
		if s, ok := f.reg.ByPlayer(pid); !ok || s != f.s {
			t.Fatalf("ByPlayer(%s) failed", pid)
		}
	}
	if _, ok := f.reg.ByPlayer("carol"); ok {
		t.Fatalf("unknown player must not resolve")
	}
}

func TestRegistryOnDestroy(t *testing.T) {
	destroyed := make(chan string, 1)
	f := &fixture{
		white:   newCollector(),
		black:   newCollector(),
		clock:   newFakeClock(),
		archive: &memArchive{},
	}
	f.reg = NewRegistry(Options{
		Archiver: f.archive,
		Now:      f.clock.Now,
		OnDestroy: func(gameID string, playerIDs []string) {
			if len(playerIDs) == 2 {
				destroyed <- gameID
			}
		},
	})
	f.s = f.reg.Create(f.white.binding("alice"), f.black.binding("bob"))

	f.s.LeaveGame("alice")
	select {
	case id := <-destroyed:
		if id != f.s.ID() {
			t.Fatalf("destroyed %q, want %q", id, f.s.ID())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("OnDestroy never fired")
	}
	if f.reg.ActiveCount() != 0 {
		t.Fatalf("registry should be empty")
	}
}

func TestRegistryTickClocksReachesSessions(t *testing.T) {
	f := newFixture(t, 30*time.Second, 0)
	f.s.SubmitAction("alice", move("e2", "e4"))
	f.white.expectType(t, "GameStateUpdate")

	f.clock.Advance(31 * time.Second)
	f.reg.TickClocks()

	waitDone(t, f.s)
}
