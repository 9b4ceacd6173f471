package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jwpark-dev/chess-arena/internal/chess"
	"github.com/jwpark-dev/chess-arena/internal/msgcat"
	"github.com/jwpark-dev/chess-arena/internal/obslog"
)

// Options configures the registry.
type Options struct {
	// per-game clock; ClockInitial == 0 means games carry no clock
	ClockInitial   time.Duration
	ClockIncrement time.Duration

	Reasons  *msgcat.Catalog
	Archiver Archiver

	// OnDestroy runs after a session closed and was removed from the index;
	// the router uses it to unbind the players' connections.
	OnDestroy func(gameID string, playerIDs []string)

	// Now is injected by tests; defaults to time.Now.
	Now func() time.Time
}

// Registry owns every live GameSession and the player → game reverse index.
type Registry struct {
	mu       sync.RWMutex
	games    map[string]*Session
	byPlayer map[string]string

	opts Options
}

func NewRegistry(opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Reasons == nil {
		c, err := msgcat.New("")
		if err != nil {
			panic("msgcat embedded catalog: " + err.Error())
		}
		opts.Reasons = c
	}
	return &Registry{
		games:    make(map[string]*Session),
		byPlayer: make(map[string]string),
		opts:     opts,
	}
}

// Create builds a session for the paired players, indexes it, and starts its
// task. The caller broadcasts MatchFound before asking the session for the
// initial state update.
func (r *Registry) Create(white, black Binding) *Session {
	id := uuid.NewString()
	var clock *chess.Clock
	if r.opts.ClockInitial > 0 {
		clock = chess.NewClock(r.opts.ClockInitial, r.opts.ClockIncrement)
	}
	s := newSession(id, white, black, clock, r.opts.Reasons, r.opts.Archiver, r.sessionClosed, r.opts.Now)

	r.mu.Lock()
	r.games[id] = s
	r.byPlayer[white.PlayerID] = id
	r.byPlayer[black.PlayerID] = id
	r.mu.Unlock()

	go s.run()

	obslog.L().Info("game_create",
		zap.String("game_id", id),
		zap.String("white_id", white.PlayerID),
		zap.String("black_id", black.PlayerID),
		zap.Bool("clock", clock != nil),
	)
	return s
}

// Get looks a session up by game ID.
func (r *Registry) Get(gameID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.games[gameID]
	return s, ok
}

// ByPlayer resolves the session a player is bound to.
func (r *Registry) ByPlayer(playerID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	s, ok := r.games[id]
	return s, ok
}

// ActiveCount reports the number of live games.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// TickClocks fans one clock tick out to every live session.
func (r *Registry) TickClocks() {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.games))
	for _, s := range r.games {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()
	for _, s := range sessions {
		s.ClockTick()
	}
}

// sessionClosed removes a finished session from the indexes. Runs on the
// session task right after the terminal messages were enqueued.
func (r *Registry) sessionClosed(s *Session) {
	r.mu.Lock()
	delete(r.games, s.id)
	if r.byPlayer[s.whiteID] == s.id {
		delete(r.byPlayer, s.whiteID)
	}
	if r.byPlayer[s.blackID] == s.id {
		delete(r.byPlayer, s.blackID)
	}
	r.mu.Unlock()

	obslog.L().Info("game_destroy", zap.String("game_id", s.id))
	if r.opts.OnDestroy != nil {
		r.opts.OnDestroy(s.id, []string{s.whiteID, s.blackID})
	}
}
