// Package router owns the live connections. It binds a connection to at most
// one game, routes inbound client messages to matchmaking or the bound
// session, and cleans up on disconnect. The router never mutates game state
// directly; its only observable side effects are messages pushed onto
// outbound channels.
package router

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jwpark-dev/chess-arena/internal/game"
	"github.com/jwpark-dev/chess-arena/internal/match"
	"github.com/jwpark-dev/chess-arena/internal/msgcat"
	"github.com/jwpark-dev/chess-arena/internal/obslog"
	"github.com/jwpark-dev/chess-arena/internal/proto"
)

type conn struct {
	playerID  string
	epoch     uint64
	out       chan proto.ServerMessage
	closeFn   func(reason string)
	boundGame string
}

type Router struct {
	mu       sync.RWMutex
	conns    map[string]*conn
	epochSeq uint64

	queue    *match.Queue
	registry *game.Registry
	reasons  *msgcat.Catalog
	now      func() time.Time
	log      *zap.Logger
}

func New(queue *match.Queue, registry *game.Registry, reasons *msgcat.Catalog, now func() time.Time) *Router {
	if now == nil {
		now = time.Now
	}
	return &Router{
		conns:    make(map[string]*conn),
		queue:    queue,
		registry: registry,
		reasons:  reasons,
		now:      now,
		log:      obslog.L(),
	}
}

// Attach registers a connection for playerID and returns its epoch, which
// the transport passes back on Deliver/Detach so a replaced connection can
// no longer act. A duplicate player_id replaces the prior binding; the prior
// connection is closed with reason "replaced".
func (r *Router) Attach(playerID string, out chan proto.ServerMessage, closeFn func(reason string)) uint64 {
	r.mu.Lock()
	prior := r.conns[playerID]
	r.epochSeq++
	epoch := r.epochSeq
	r.conns[playerID] = &conn{playerID: playerID, epoch: epoch, out: out, closeFn: closeFn}
	r.mu.Unlock()

	if prior != nil {
		r.log.Info("conn_replaced", zap.String("player_id", playerID))
		if prior.closeFn != nil {
			prior.closeFn(r.reasons.Text("error.replaced"))
		}
		if prior.boundGame != "" {
			if s, ok := r.registry.Get(prior.boundGame); ok {
				s.PlayerDetached(playerID)
			}
		}
	}
	r.log.Info("conn_attach", zap.String("player_id", playerID))
	return epoch
}

// Detach forgets the connection, drops any queued matchmaking entry, and
// notifies the bound session that this side went absent. Stale epochs are
// ignored so a replaced connection cannot detach its successor.
func (r *Router) Detach(playerID string, epoch uint64) {
	r.mu.Lock()
	c := r.conns[playerID]
	if c == nil || c.epoch != epoch {
		r.mu.Unlock()
		return
	}
	delete(r.conns, playerID)
	bound := c.boundGame
	r.mu.Unlock()

	r.queue.Remove(playerID)
	if bound != "" {
		if s, ok := r.registry.Get(bound); ok {
			s.PlayerDetached(playerID)
		}
	}
	r.log.Info("conn_detach", zap.String("player_id", playerID))
}

// Deliver dispatches one decoded client message.
func (r *Router) Deliver(playerID string, epoch uint64, msg *proto.ClientMessage) {
	r.mu.RLock()
	c := r.conns[playerID]
	if c == nil || c.epoch != epoch {
		r.mu.RUnlock()
		return
	}
	bound := c.boundGame
	r.mu.RUnlock()

	switch msg.Type {
	case proto.TypeJoinMatchmaking:
		if msg.PlayerID != playerID {
			r.sendEpoch(playerID, epoch, proto.Error(r.reasons.Text("error.identity_mismatch")))
			return
		}
		if bound != "" {
			r.sendEpoch(playerID, epoch, proto.Error(r.reasons.Text("error.already_in_game")))
			return
		}
		if !r.queue.Enqueue(playerID, r.now()) {
			r.sendEpoch(playerID, epoch, proto.Error(r.reasons.Text("error.already_queued")))
			return
		}
		r.log.Info("matchmaking_join", zap.String("player_id", playerID))
		r.sendEpoch(playerID, epoch, proto.MatchmakingJoined())

	case proto.TypeSubmitAction, proto.TypeLeaveGame, proto.TypeRequestState:
		if bound == "" || msg.GameID != bound {
			key := "error.no_such_game"
			if bound != "" {
				key = "error.wrong_game"
			}
			r.sendEpoch(playerID, epoch, proto.Error(r.reasons.Text(key)))
			return
		}
		s, ok := r.registry.Get(bound)
		if !ok {
			r.sendEpoch(playerID, epoch, proto.Error(r.reasons.Text("error.no_such_game")))
			return
		}
		switch msg.Type {
		case proto.TypeSubmitAction:
			s.SubmitAction(playerID, msg.Action)
		case proto.TypeLeaveGame:
			s.LeaveGame(playerID)
		case proto.TypeRequestState:
			s.RequestState(playerID)
		}
	}
}

// sendEpoch pushes msg onto playerID's outbound channel if the epoch still
// matches. A full channel closes the connection (unresponsive writer).
func (r *Router) sendEpoch(playerID string, epoch uint64, msg proto.ServerMessage) bool {
	r.mu.RLock()
	c := r.conns[playerID]
	if c == nil || c.epoch != epoch {
		r.mu.RUnlock()
		return false
	}
	out, closeFn := c.out, c.closeFn
	r.mu.RUnlock()

	select {
	case out <- msg:
		return true
	default:
	}
	r.log.Warn("conn_outbound_full", zap.String("player_id", playerID))
	if closeFn != nil {
		closeFn("slow consumer")
	}
	go r.Detach(playerID, epoch)
	return false
}

// eligible reports whether a queued player is still connected and unbound.
func (r *Router) eligible(playerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.conns[playerID]
	return c != nil && c.boundGame == ""
}

// TickMatchmaking runs one pairing pass. Exposed for tests; RunMatchmaking
// drives it on the configured cadence.
func (r *Router) TickMatchmaking(now time.Time) {
	for _, pair := range r.queue.Tick(now, r.eligible) {
		r.startGame(pair)
	}
}

// RunMatchmaking ticks the queue until ctx is canceled.
func (r *Router) RunMatchmaking(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			r.TickMatchmaking(now)
		}
	}
}

// RunClocks fans clock ticks out to every live session until ctx is
// canceled.
func (r *Router) RunClocks(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.registry.TickClocks()
		}
	}
}

func (r *Router) startGame(pair match.Pair) {
	r.mu.RLock()
	wc := r.conns[pair.WhiteID]
	bc := r.conns[pair.BlackID]
	r.mu.RUnlock()
	if wc == nil || wc.boundGame != "" || bc == nil || bc.boundGame != "" {
		// a side vanished between tick and pairing; requeue whoever is left
		for _, c := range []*conn{wc, bc} {
			if c != nil && c.boundGame == "" {
				r.queue.Enqueue(c.playerID, r.now())
			}
		}
		return
	}

	s := r.registry.Create(r.bindingFor(wc), r.bindingFor(bc))

	r.mu.Lock()
	if cur := r.conns[pair.WhiteID]; cur != nil && cur.epoch == wc.epoch {
		cur.boundGame = s.ID()
	}
	if cur := r.conns[pair.BlackID]; cur != nil && cur.epoch == bc.epoch {
		cur.boundGame = s.ID()
	}
	r.mu.Unlock()

	r.log.Info("match_found",
		zap.String("game_id", s.ID()),
		zap.String("white_id", pair.WhiteID),
		zap.String("black_id", pair.BlackID),
	)
	r.sendEpoch(pair.WhiteID, wc.epoch, proto.MatchFound(s.ID(), pair.BlackID, "white"))
	r.sendEpoch(pair.BlackID, bc.epoch, proto.MatchFound(s.ID(), pair.WhiteID, "black"))
	s.BroadcastState()
}

func (r *Router) bindingFor(c *conn) game.Binding {
	playerID, epoch := c.playerID, c.epoch
	return game.Binding{
		PlayerID: playerID,
		Send: func(msg proto.ServerMessage) bool {
			return r.sendEpoch(playerID, epoch, msg)
		},
		Kick: func(reason string) {
			r.closeEpoch(playerID, epoch, reason)
		},
	}
}

// closeEpoch closes and forgets a specific connection instance.
func (r *Router) closeEpoch(playerID string, epoch uint64, reason string) {
	r.mu.Lock()
	c := r.conns[playerID]
	if c == nil || c.epoch != epoch {
		r.mu.Unlock()
		return
	}
	delete(r.conns, playerID)
	r.mu.Unlock()
	r.queue.Remove(playerID)
	if c.closeFn != nil {
		c.closeFn(reason)
	}
}

// Unbind clears the game binding after the registry destroyed a session.
func (r *Router) Unbind(gameID string, playerIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pid := range playerIDs {
		if c := r.conns[pid]; c != nil && c.boundGame == gameID {
			c.boundGame = ""
		}
	}
}

// Counts reports connections, queued players, and live games for /stats.
func (r *Router) Counts() (connections, queued, games int) {
	r.mu.RLock()
	connections = len(r.conns)
	r.mu.RUnlock()
	return connections, r.queue.Len(), r.registry.ActiveCount()
}
