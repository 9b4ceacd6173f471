// Package game owns the live games: the registry and the per-game session
// task. A session is the single writer for its board, clock, and outbound
// broadcasting; everything else reaches it through the inbox mailbox.
package game

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jwpark-dev/chess-arena/internal/chess"
	"github.com/jwpark-dev/chess-arena/internal/msgcat"
	"github.com/jwpark-dev/chess-arena/internal/obslog"
	"github.com/jwpark-dev/chess-arena/internal/proto"
)

// Binding is the session's handle to one player's connection. Send must not
// block: it reports false when the peer's outbound channel is full, which the
// session treats as an unresponsive connection.
type Binding struct {
	PlayerID string
	Send     func(proto.ServerMessage) bool
	Kick     func(reason string)
}

// Record is the completed-match record emitted to the archiver on terminal
// status.
type Record struct {
	GameID    string    `json:"game_id"`
	WhiteID   string    `json:"white_id"`
	BlackID   string    `json:"black_id"`
	Winner    string    `json:"winner,omitempty"` // empty on draws
	Reason    string    `json:"reason"`
	MovesUCI  []string  `json:"moves_uci"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Archiver receives completed-match records. Implementations must not block
// the caller.
type Archiver interface {
	Archive(rec Record)
}

type cmdKind int8

const (
	cmdSubmit cmdKind = iota
	cmdLeave
	cmdRequestState
	cmdDetach
	cmdClockTick
	cmdBroadcastState
	cmdQueryState
	cmdQueryPieces
)

type command struct {
	kind       cmdKind
	playerID   string
	action     *proto.GameAction
	reply      chan *proto.GameState
	pieceReply chan []chess.PlacedPiece
}

// Session is one live game: the authoritative board, the clock, both player
// bindings, and the last-action record used for client animation.
type Session struct {
	id    string
	inbox chan command
	done  chan struct{}

	board      *chess.Board
	clock      *chess.Clock
	status     chess.Status
	white      *Binding
	black      *Binding
	whiteID    string
	blackID    string
	lastAction *proto.ActionRecord
	movesUCI   []string
	drawOffers [2]bool
	createdAt  time.Time
	closed     bool

	reasons  *msgcat.Catalog
	archiver Archiver
	onClosed func(s *Session)
	now      func() time.Time
	log      *zap.Logger
}

const inboxCapacity = 64

func newSession(id string, white, black Binding, clock *chess.Clock, reasons *msgcat.Catalog, archiver Archiver, onClosed func(*Session), now func() time.Time) *Session {
	s := &Session{
		id:        id,
		inbox:     make(chan command, inboxCapacity),
		done:      make(chan struct{}),
		board:     chess.NewBoard(),
		clock:     clock,
		status:    chess.Status{Kind: chess.StatusActive},
		white:     &white,
		black:     &black,
		whiteID:   white.PlayerID,
		blackID:   black.PlayerID,
		createdAt: now(),
		reasons:   reasons,
		archiver:  archiver,
		onClosed:  onClosed,
		now:       now,
		log:       obslog.L(),
	}
	// the side to move is on the countdown from the start, so White can
	// flag without ever moving
	if clock != nil {
		clock.Start(chess.White, s.createdAt)
	}
	return s
}

func (s *Session) ID() string      { return s.id }
func (s *Session) WhiteID() string { return s.whiteID }
func (s *Session) BlackID() string { return s.blackID }

// Done closes when the session has finished and broadcast its terminal
// messages.
func (s *Session) Done() <-chan struct{} { return s.done }

// post enqueues a command unless the session already finished.
func (s *Session) post(c command) {
	select {
	case <-s.done:
	case s.inbox <- c:
	}
}

// SubmitAction routes a validated game action from playerID.
func (s *Session) SubmitAction(playerID string, action *proto.GameAction) {
	s.post(command{kind: cmdSubmit, playerID: playerID, action: action})
}

// LeaveGame is an explicit leave: resignation by that side, a no-op on a
// terminal game.
func (s *Session) LeaveGame(playerID string) {
	s.post(command{kind: cmdLeave, playerID: playerID})
}

// RequestState re-sends the current state to playerID, without last_action
// so the client never replays an animation from a re-sync.
func (s *Session) RequestState(playerID string) {
	s.post(command{kind: cmdRequestState, playerID: playerID})
}

// PlayerDetached tells the session this side's connection went absent.
func (s *Session) PlayerDetached(playerID string) {
	s.post(command{kind: cmdDetach, playerID: playerID})
}

// ClockTick drives time deduction from the scheduler.
func (s *Session) ClockTick() {
	s.post(command{kind: cmdClockTick})
}

// BroadcastState pushes the full state to both players (used for the initial
// position right after MatchFound).
func (s *Session) BroadcastState() {
	s.post(command{kind: cmdBroadcastState})
}

// StateSnapshot answers with the current wire state; used by the HTTP
// sidebar. It goes through the mailbox so reads are serialized with writes.
func (s *Session) StateSnapshot(ctx context.Context) (*proto.GameState, error) {
	reply := make(chan *proto.GameState, 1)
	select {
	case <-s.done:
		return nil, errors.New("session closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	case s.inbox <- command{kind: cmdQueryState, reply: reply}:
	}
	select {
	case <-s.done:
		return nil, errors.New("session closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	case state := <-reply:
		return state, nil
	}
}

// PiecesSnapshot returns the live pieces with their squares; the board
// snapshot endpoint renders from it.
func (s *Session) PiecesSnapshot(ctx context.Context) ([]chess.PlacedPiece, error) {
	reply := make(chan []chess.PlacedPiece, 1)
	select {
	case <-s.done:
		return nil, errors.New("session closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	case s.inbox <- command{kind: cmdQueryPieces, pieceReply: reply}:
	}
	select {
	case <-s.done:
		return nil, errors.New("session closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	case pieces := <-reply:
		return pieces, nil
	}
}

func (s *Session) run() {
	// an invariant violation inside one game must not corrupt the others:
	// log it, report to both players, and terminate only this session
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("session_panic",
				zap.String("game_id", s.id),
				zap.Any("panic", r),
			)
			msg := proto.Error(s.reasons.Text("error.internal"))
			s.sendTo(chess.White, msg)
			s.sendTo(chess.Black, msg)
			s.finalize("internal error")
		}
	}()
	for c := range s.inbox {
		s.handle(c)
		if s.closed {
			return
		}
	}
}

func (s *Session) handle(c command) {
	switch c.kind {
	case cmdSubmit:
		s.handleSubmit(c.playerID, c.action)
	case cmdLeave:
		s.handleLeave(c.playerID)
	case cmdRequestState:
		if color, ok := s.colorOf(c.playerID); ok {
			s.sendTo(color, proto.StateUpdate(s.wireState(), nil))
		}
	case cmdDetach:
		s.handleDetach(c.playerID)
	case cmdClockTick:
		s.settleClock()
	case cmdBroadcastState:
		state := s.wireState()
		s.sendTo(chess.White, proto.StateUpdate(state, nil))
		s.sendTo(chess.Black, proto.StateUpdate(state, nil))
	case cmdQueryState:
		c.reply <- s.wireState()
	case cmdQueryPieces:
		c.pieceReply <- s.board.Pieces()
	}
}

func (s *Session) colorOf(playerID string) (chess.Color, bool) {
	switch playerID {
	case s.whiteID:
		return chess.White, true
	case s.blackID:
		return chess.Black, true
	}
	return chess.White, false
}

func (s *Session) binding(color chess.Color) *Binding {
	if color == chess.White {
		return s.white
	}
	return s.black
}

// sendTo pushes msg onto color's outbound channel. A full channel means the
// writer is unresponsive: the connection is closed and the side is treated
// as detached.
func (s *Session) sendTo(color chess.Color, msg proto.ServerMessage) {
	b := s.binding(color)
	if b == nil {
		return
	}
	if b.Send(msg) {
		return
	}
	s.log.Warn("session_outbound_full",
		zap.String("game_id", s.id),
		zap.String("player_id", b.PlayerID),
	)
	kick := b.Kick
	pid := b.PlayerID
	if kick != nil {
		go kick("slow consumer")
	}
	go s.PlayerDetached(pid)
}

// Preconditions are checked in order; the first failure is reported.
func (s *Session) handleSubmit(playerID string, action *proto.GameAction) {
	color, ok := s.colorOf(playerID)
	if !ok || action == nil {
		return
	}
	if s.status.Terminal() {
		s.sendTo(color, proto.InvalidAction(s.reasons.Text("invalid.game_over")))
		return
	}
	// consulting the side-to-move's remaining time may itself flag a timeout
	if s.settleClock() {
		s.sendTo(color, proto.InvalidAction(s.reasons.Text("invalid.game_over")))
		return
	}
	if s.board.Turn() != color {
		s.sendTo(color, proto.InvalidAction(s.reasons.Text("invalid.not_your_turn")))
		return
	}

	switch action.ActionType {
	case proto.ActionMovePiece:
		s.handleMove(color, action)
	case proto.ActionResign:
		s.log.Info("session_resign", zap.String("game_id", s.id), zap.String("player_id", playerID))
		s.finish(chess.Status{Kind: chess.StatusResigned, Color: color.Opposite()}, "over.resignation", action, color)
	case proto.ActionOfferDraw:
		s.handleOfferDraw(color, action)
	case proto.ActionAcceptDraw:
		s.handleAcceptDraw(color, action)
	case proto.ActionDeclineDraw:
		s.handleDeclineDraw(color, action)
	}
}

func (s *Session) handleMove(color chess.Color, action *proto.GameAction) {
	out, err := chess.Apply(s.board, moveFromAction(action))
	if err != nil {
		s.sendTo(color, proto.InvalidAction(s.moveErrReason(err)))
		return
	}

	s.movesUCI = append(s.movesUCI, out.Move.UCI())
	s.status = chess.Compute(s.board)
	if s.clock != nil {
		s.clock.OnMove(color, s.now())
	}
	s.lastAction = recordFromOutcome(out, *action)

	state := s.wireState()
	s.sendTo(color, proto.StateUpdate(state, s.lastAction))
	s.sendTo(color.Opposite(), proto.OpponentAction(*action))
	s.sendTo(color.Opposite(), proto.StateUpdate(state, s.lastAction))

	s.log.Info("session_move",
		zap.String("game_id", s.id),
		zap.String("player_id", s.playerIDFor(color)),
		zap.String("uci", out.Move.UCI()),
		zap.String("status", s.status.Kind.String()),
	)

	if s.status.Terminal() {
		winner, reason := s.boardTerminalOutcome()
		s.broadcastGameOver(winner, reason)
		s.finalize(reason)
	}
}

func (s *Session) boardTerminalOutcome() (string, string) {
	switch s.status.Kind {
	case chess.StatusCheckmate:
		return s.status.Color.String(), s.reasons.Text("over.checkmate")
	case chess.StatusStalemate:
		return "", s.reasons.Text("over.stalemate")
	case chess.StatusDrawInsufficientMaterial:
		return "", s.reasons.Text("over.insufficient_material")
	}
	return "", s.status.Kind.String()
}

// Draw offers are per-game toggles that survive moves; both flags set ends
// the game as an agreed draw.
func (s *Session) handleOfferDraw(color chess.Color, action *proto.GameAction) {
	if s.drawOffers[color.Opposite()] {
		s.finish(chess.Status{Kind: chess.StatusDrawAgreed}, "over.draw_agreed", action, color)
		return
	}
	s.drawOffers[color] = !s.drawOffers[color]
	s.sendTo(color.Opposite(), proto.OpponentAction(*action))
}

func (s *Session) handleAcceptDraw(color chess.Color, action *proto.GameAction) {
	if !s.drawOffers[color.Opposite()] {
		s.sendTo(color, proto.InvalidAction(s.reasons.Text("invalid.no_draw_offer")))
		return
	}
	s.finish(chess.Status{Kind: chess.StatusDrawAgreed}, "over.draw_agreed", action, color)
}

func (s *Session) handleDeclineDraw(color chess.Color, action *proto.GameAction) {
	if !s.drawOffers[color.Opposite()] {
		s.sendTo(color, proto.InvalidAction(s.reasons.Text("invalid.no_draw_offer")))
		return
	}
	s.drawOffers[color.Opposite()] = false
	s.sendTo(color.Opposite(), proto.OpponentAction(*action))
}

func (s *Session) handleLeave(playerID string) {
	color, ok := s.colorOf(playerID)
	if !ok || s.status.Terminal() {
		return
	}
	s.log.Info("session_leave", zap.String("game_id", s.id), zap.String("player_id", playerID))
	s.finish(chess.Status{Kind: chess.StatusResigned, Color: color.Opposite()}, "over.resignation", nil, color)
}

func (s *Session) handleDetach(playerID string) {
	color, ok := s.colorOf(playerID)
	if !ok {
		return
	}
	if color == chess.White {
		s.white = nil
	} else {
		s.black = nil
	}
	if s.status.Terminal() {
		if s.white == nil && s.black == nil {
			s.finalize("both players detached")
		}
		return
	}
	s.log.Info("session_detach", zap.String("game_id", s.id), zap.String("player_id", playerID))
	s.status = chess.Status{Kind: chess.StatusResigned, Color: color.Opposite()}
	if s.clock != nil {
		s.clock.Stop()
	}
	state := s.wireState()
	s.sendTo(color.Opposite(), proto.StateUpdate(state, nil))
	s.broadcastGameOver(s.status.Color.String(), s.reasons.Text("over.disconnect"))
	s.finalize(s.reasons.Text("over.disconnect"))
}

// finish applies a terminal status reached by an explicit action (resign,
// agreed draw): publish the reconciled state, route the action to the
// opponent, then GameOver to both.
func (s *Session) finish(st chess.Status, reasonKey string, action *proto.GameAction, actor chess.Color) {
	s.status = st
	if s.clock != nil {
		s.clock.Stop()
	}
	state := s.wireState()
	s.sendTo(actor, proto.StateUpdate(state, nil))
	if action != nil {
		s.sendTo(actor.Opposite(), proto.OpponentAction(*action))
	}
	s.sendTo(actor.Opposite(), proto.StateUpdate(state, nil))

	winner := ""
	if w, ok := st.Winner(); ok {
		winner = w.String()
	}
	reason := s.reasons.Text(reasonKey)
	s.broadcastGameOver(winner, reason)
	s.finalize(reason)
}

// settleClock deducts elapsed time and handles a fallen flag. Reports true
// when the game ended on time.
func (s *Session) settleClock() bool {
	if s.clock == nil || s.status.Terminal() {
		return false
	}
	loser, expired := s.clock.Tick(s.now())
	if !expired {
		return false
	}
	winner := loser.Opposite()
	s.status = chess.Status{Kind: chess.StatusTimeout, Color: winner}
	s.clock.Stop()
	s.log.Info("session_timeout",
		zap.String("game_id", s.id),
		zap.String("loser", s.playerIDFor(loser)),
	)
	state := s.wireState()
	s.sendTo(chess.White, proto.StateUpdate(state, nil))
	s.sendTo(chess.Black, proto.StateUpdate(state, nil))
	s.broadcastGameOver(winner.String(), s.reasons.Text("over.timeout"))
	s.finalize(s.reasons.Text("over.timeout"))
	return true
}

// broadcastGameOver follows the terminal state update on each channel.
func (s *Session) broadcastGameOver(winner, reason string) {
	msg := proto.GameOver(winner, reason)
	s.sendTo(chess.White, msg)
	s.sendTo(chess.Black, msg)
}

func (s *Session) finalize(reason string) {
	if s.closed {
		return
	}
	s.closed = true

	winner := ""
	if w, ok := s.status.Winner(); ok {
		winner = w.String()
	}
	if s.archiver != nil {
		s.archiver.Archive(Record{
			GameID:    s.id,
			WhiteID:   s.whiteID,
			BlackID:   s.blackID,
			Winner:    winner,
			Reason:    reason,
			MovesUCI:  append([]string(nil), s.movesUCI...),
			StartedAt: s.createdAt,
			EndedAt:   s.now(),
		})
	}
	s.log.Info("session_closed",
		zap.String("game_id", s.id),
		zap.String("status", s.status.Kind.String()),
		zap.String("reason", reason),
	)
	close(s.done)
	if s.onClosed != nil {
		s.onClosed(s)
	}
}

func (s *Session) playerIDFor(color chess.Color) string {
	if color == chess.White {
		return s.whiteID
	}
	return s.blackID
}

func (s *Session) moveErrReason(err error) string {
	switch {
	case errors.Is(err, chess.ErrEmptySquare):
		return s.reasons.Text("invalid.empty_square")
	case errors.Is(err, chess.ErrNotSideToMove):
		return s.reasons.Text("invalid.not_your_piece")
	case errors.Is(err, chess.ErrPromotionRequired):
		return s.reasons.Text("invalid.promotion_required")
	case errors.Is(err, chess.ErrBadPromotion):
		return s.reasons.Text("invalid.bad_promotion")
	default:
		return s.reasons.Text("invalid.illegal_move")
	}
}
