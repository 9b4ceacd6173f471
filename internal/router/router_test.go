package router

import (
	"testing"
	"time"

	"github.com/jwpark-dev/chess-arena/internal/game"
	"github.com/jwpark-dev/chess-arena/internal/match"
	"github.com/jwpark-dev/chess-arena/internal/msgcat"
	"github.com/jwpark-dev/chess-arena/internal/proto"
)

type client struct {
	playerID string
	epoch    uint64
	out      chan proto.ServerMessage
	closed   chan string
}

func (c *client) next(t *testing.T) proto.ServerMessage {
	t.Helper()
	select {
	case m := <-c.out:
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("%s: timed out waiting for a message", c.playerID)
		return proto.ServerMessage{}
	}
}

func (c *client) expectType(t *testing.T, typ string) proto.ServerMessage {
	t.Helper()
	m := c.next(t)
	if m.Type != typ {
		t.Fatalf("%s: expected %s, got %s (%+v)", c.playerID, typ, m.Type, m)
	}
	return m
}

func (c *client) waitFor(t *testing.T, typ string) proto.ServerMessage {
	t.Helper()
	for {
		m := c.next(t)
		if m.Type == typ {
			return m
		}
	}
}

type rig struct {
	r   *Router
	reg *game.Registry
	q   *match.Queue
	now time.Time
}

func newRig(t *testing.T) *rig {
	t.Helper()
	reasons, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	g := &rig{q: match.NewQueue(5 * time.Minute), now: time.Unix(1700000000, 0)}
	var r *Router
	g.reg = game.NewRegistry(game.Options{
		Reasons: reasons,
		OnDestroy: func(gameID string, playerIDs []string) {
			r.Unbind(gameID, playerIDs)
		},
		Now: func() time.Time { return g.now },
	})
	r = New(g.q, g.reg, reasons, func() time.Time { return g.now })
	g.r = r
	return g
}

func (g *rig) connect(playerID string) *client {
	c := &client{
		playerID: playerID,
		out:      make(chan proto.ServerMessage, 64),
		closed:   make(chan string, 1),
	}
	c.epoch = g.r.Attach(playerID, c.out, func(reason string) {
		select {
		case c.closed <- reason:
		default:
		}
	})
	return c
}

func (g *rig) join(c *client) {
	g.r.Deliver(c.playerID, c.epoch, &proto.ClientMessage{Type: proto.TypeJoinMatchmaking, PlayerID: c.playerID})
}

func pairUp(t *testing.T, g *rig) (*client, *client, string) {
	t.Helper()
	alice := g.connect("alice")
	bob := g.connect("bob")
	g.join(alice)
	g.join(bob)
	alice.expectType(t, proto.TypeMatchmakingJoined)
	bob.expectType(t, proto.TypeMatchmakingJoined)

	g.r.TickMatchmaking(g.now)

	mfA := alice.expectType(t, proto.TypeMatchFound)
	mfB := bob.expectType(t, proto.TypeMatchFound)
	if mfA.GameID == "" || mfA.GameID != mfB.GameID {
		t.Fatalf("game ids differ: %q vs %q", mfA.GameID, mfB.GameID)
	}
	if mfA.OpponentID != "bob" || mfB.OpponentID != "alice" {
		t.Fatalf("opponent ids wrong: %+v %+v", mfA, mfB)
	}
	if mfA.YourColor == mfB.YourColor {
		t.Fatalf("colors must be distinct, both %q", mfA.YourColor)
	}
	stA := alice.expectType(t, proto.TypeGameStateUpdate)
	bob.expectType(t, proto.TypeGameStateUpdate)
	if len(stA.State.BoardState) != 32 || stA.LastAction != nil {
		t.Fatalf("initial state wrong: %d pieces, last=%v", len(stA.State.BoardState), stA.LastAction)
	}
	if mfA.YourColor == "white" {
		return alice, bob, mfA.GameID
	}
	return bob, alice, mfA.GameID
}

func TestTwoPlayerPairing(t *testing.T) {
	g := newRig(t)
	white, _, _ := pairUp(t, g)
	if white == nil {
		t.Fatalf("no white assigned")
	}
	conns, queued, games := g.r.Counts()
	if conns != 2 || queued != 0 || games != 1 {
		t.Fatalf("counts = %d/%d/%d", conns, queued, games)
	}
}

func TestJoinTwiceRejected(t *testing.T) {
	g := newRig(t)
	alice := g.connect("alice")
	g.join(alice)
	alice.expectType(t, proto.TypeMatchmakingJoined)
	g.join(alice)
	m := alice.expectType(t, proto.TypeError)
	if m.Message != "already in matchmaking queue" {
		t.Fatalf("message = %q", m.Message)
	}
}

func TestJoinWhileBoundRejected(t *testing.T) {
	g := newRig(t)
	white, _, _ := pairUp(t, g)
	g.join(white)
	m := white.expectType(t, proto.TypeError)
	if m.Message != "already bound to a game" {
		t.Fatalf("message = %q", m.Message)
	}
}

func TestSubmitWithoutGame(t *testing.T) {
	g := newRig(t)
	alice := g.connect("alice")
	g.r.Deliver("alice", alice.epoch, &proto.ClientMessage{
		Type:   proto.TypeSubmitAction,
		GameID: "nope",
		Action: &proto.GameAction{ActionType: proto.ActionResign},
	})
	m := alice.expectType(t, proto.TypeError)
	if m.Message != "no such game" {
		t.Fatalf("message = %q", m.Message)
	}
}

func TestSubmitWrongGameID(t *testing.T) {
	g := newRig(t)
	white, _, _ := pairUp(t, g)
	g.r.Deliver(white.playerID, white.epoch, &proto.ClientMessage{
		Type:   proto.TypeSubmitAction,
		GameID: "other-game",
		Action: &proto.GameAction{ActionType: proto.ActionResign},
	})
	m := white.expectType(t, proto.TypeError)
	if m.Message != "message game_id does not match your game" {
		t.Fatalf("message = %q", m.Message)
	}
}

func TestMoveFlowsThroughRouter(t *testing.T) {
	g := newRig(t)
	white, black, gameID := pairUp(t, g)
	g.r.Deliver(white.playerID, white.epoch, &proto.ClientMessage{
		Type:   proto.TypeSubmitAction,
		GameID: gameID,
		Action: &proto.GameAction{
			ActionType: proto.ActionMovePiece,
			From:       &proto.Square{Row: 1, Col: 4},
			To:         &proto.Square{Row: 3, Col: 4},
		},
	})
	white.expectType(t, proto.TypeGameStateUpdate)
	black.expectType(t, proto.TypeOpponentAction)
	black.expectType(t, proto.TypeGameStateUpdate)
}

func TestDuplicateConnectionReplaced(t *testing.T) {
	g := newRig(t)
	first := g.connect("alice")
	second := g.connect("alice")

	select {
	case reason := <-first.closed:
		if reason != "replaced" {
			t.Fatalf("close reason = %q", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("prior connection must be closed")
	}

	// the stale epoch can no longer act
	g.r.Deliver("alice", first.epoch, &proto.ClientMessage{Type: proto.TypeJoinMatchmaking, PlayerID: "alice"})
	select {
	case m := <-first.out:
		t.Fatalf("stale connection received %+v", m)
	case <-time.After(100 * time.Millisecond):
	}

	g.join(second)
	second.expectType(t, proto.TypeMatchmakingJoined)
}

func TestQueuedPlayerDroppedOnDetach(t *testing.T) {
	g := newRig(t)
	alice := g.connect("alice")
	bob := g.connect("bob")
	g.join(alice)
	g.join(bob)
	alice.expectType(t, proto.TypeMatchmakingJoined)
	bob.expectType(t, proto.TypeMatchmakingJoined)

	g.r.Detach("alice", alice.epoch)
	g.r.TickMatchmaking(g.now)

	select {
	case m := <-bob.out:
		t.Fatalf("bob should stay queued, got %+v", m)
	case <-time.After(100 * time.Millisecond):
	}
	if _, queued, _ := counts2(g); queued != 1 {
		t.Fatalf("bob should remain queued")
	}
}

func counts2(g *rig) (int, int, int) { return g.r.Counts() }

func TestAbruptDisconnectMidGame(t *testing.T) {
	g := newRig(t)
	white, black, gameID := pairUp(t, g)
	s, ok := g.reg.Get(gameID)
	if !ok {
		t.Fatalf("session missing")
	}

	g.r.Detach(white.playerID, white.epoch)

	sawResigned := false
	var over proto.ServerMessage
	for {
		m := black.next(t)
		if m.Type == proto.TypeGameStateUpdate && m.State.Status.Kind == "resigned" {
			sawResigned = true
		}
		if m.Type == proto.TypeGameOver {
			over = m
			break
		}
	}
	if !sawResigned {
		t.Fatalf("final state update must show the resignation")
	}
	if over.Winner != "black" || over.Reason != "opponent disconnected" {
		t.Fatalf("GameOver = %+v", over)
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session should be destroyed")
	}

	// the game is gone; a state request now fails
	g.r.Deliver(black.playerID, black.epoch, &proto.ClientMessage{
		Type:   proto.TypeRequestState,
		GameID: gameID,
	})
	m := black.waitFor(t, proto.TypeError)
	if m.Message != "no such game" {
		t.Fatalf("message = %q", m.Message)
	}
}
