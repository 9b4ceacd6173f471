package game

import (
	"github.com/jwpark-dev/chess-arena/internal/chess"
	"github.com/jwpark-dev/chess-arena/internal/proto"
)

// wireState builds the reconciled GameState broadcast from the session's
// authoritative board and clock.
func (s *Session) wireState() *proto.GameState {
	state := &proto.GameState{
		GameID:       s.id,
		NextPlayerID: s.playerIDFor(s.board.Turn()),
		Status:       statusInfo(s.status),
		BoardState:   boardState(s.board),
		CastlingRights: proto.CastlingState{
			WhiteKingside:  s.board.Castling().WhiteKingside,
			WhiteQueenside: s.board.Castling().WhiteQueenside,
			BlackKingside:  s.board.Castling().BlackKingside,
			BlackQueenside: s.board.Castling().BlackQueenside,
		},
	}
	if ep, ok := s.board.EnPassantTarget(); ok {
		state.EnPassantTarget = ep.Algebraic()
	}
	if s.clock != nil {
		state.Time = map[string]int{
			s.whiteID: s.clock.Seconds(chess.White),
			s.blackID: s.clock.Seconds(chess.Black),
		}
	}
	return state
}

func boardState(b *chess.Board) []proto.PieceState {
	pieces := b.Pieces()
	out := make([]proto.PieceState, 0, len(pieces))
	for _, pp := range pieces {
		out = append(out, proto.PieceState{
			ID:        pp.Piece.ID,
			Position:  pp.Position.Algebraic(),
			PieceType: pp.Piece.Type.String(),
		})
	}
	return out
}

func statusInfo(st chess.Status) proto.StatusInfo {
	info := proto.StatusInfo{Kind: st.Kind.String()}
	switch st.Kind {
	case chess.StatusCheck:
		info.InCheck = st.Color.String()
	case chess.StatusCheckmate, chess.StatusTimeout, chess.StatusResigned:
		info.Winner = st.Color.String()
	}
	return info
}

// recordFromOutcome converts an applied move into the wire ActionRecord the
// client animates from.
func recordFromOutcome(out *chess.Outcome, action proto.GameAction) *proto.ActionRecord {
	rec := &proto.ActionRecord{
		Action:            action,
		MoverID:           out.MoverID,
		CapturedID:        out.CapturedID,
		EnPassantVictimID: out.EnPassantVictimID,
		CastleRookID:      out.CastleRookID,
		OldPawnID:         out.OldPawnID,
		NewPieceID:        out.NewPieceID,
	}
	if out.RookFrom != nil {
		rec.RookFrom = &proto.Square{Row: out.RookFrom.Row, Col: out.RookFrom.Col}
	}
	if out.RookTo != nil {
		rec.RookTo = &proto.Square{Row: out.RookTo.Row, Col: out.RookTo.Col}
	}
	return rec
}

// moveFromAction converts a validated wire MovePiece into an engine move.
func moveFromAction(a *proto.GameAction) chess.Move {
	mv := chess.Move{
		From: chess.Position{Row: a.From.Row, Col: a.From.Col},
		To:   chess.Position{Row: a.To.Row, Col: a.To.Col},
	}
	if a.Promotion != "" {
		if t, ok := chess.ParsePieceType(a.Promotion); ok {
			mv.Promotion = t
		}
	}
	return mv
}
