package chess

// StatusKind enumerates the game statuses, including the session-level
// terminal states (timeout, resignation, agreed draw) that are not derivable
// from the board alone.
type StatusKind int8

const (
	StatusActive StatusKind = iota
	StatusCheck
	StatusCheckmate
	StatusStalemate
	StatusDrawInsufficientMaterial
	StatusDrawAgreed
	StatusTimeout
	StatusResigned
)

var statusKindNames = map[StatusKind]string{
	StatusActive:                   "active",
	StatusCheck:                    "check",
	StatusCheckmate:                "checkmate",
	StatusStalemate:                "stalemate",
	StatusDrawInsufficientMaterial: "draw_insufficient_material",
	StatusDrawAgreed:               "draw_agreed",
	StatusTimeout:                  "timeout",
	StatusResigned:                 "resigned",
}

func (k StatusKind) String() string {
	if n, ok := statusKindNames[k]; ok {
		return n
	}
	return "active"
}

// ParseStatusKind maps the wire form back to a kind.
func ParseStatusKind(s string) (StatusKind, bool) {
	for k, n := range statusKindNames {
		if n == s {
			return k, true
		}
	}
	return StatusActive, false
}

// Status is the reconciled game status. Color carries the winner for
// checkmate/timeout/resignation and the checked side for check; it is
// meaningless otherwise.
type Status struct {
	Kind  StatusKind
	Color Color
}

// Terminal reports whether the game accepts further actions.
func (s Status) Terminal() bool {
	return s.Kind != StatusActive && s.Kind != StatusCheck
}

// Winner returns the winning color for decisive terminal statuses.
func (s Status) Winner() (Color, bool) {
	switch s.Kind {
	case StatusCheckmate, StatusTimeout, StatusResigned:
		return s.Color, true
	}
	return White, false
}

// Compute derives the board-level status for the side to move: check,
// checkmate, stalemate, or draw by insufficient material.
func Compute(b *Board) Status {
	if insufficientMaterial(b) {
		return Status{Kind: StatusDrawInsufficientMaterial}
	}
	inCheck := b.InCheck(b.turn)
	hasMoves := len(AllLegalMoves(b, b.turn)) > 0
	switch {
	case !hasMoves && inCheck:
		return Status{Kind: StatusCheckmate, Color: b.turn.Opposite()}
	case !hasMoves:
		return Status{Kind: StatusStalemate}
	case inCheck:
		return Status{Kind: StatusCheck, Color: b.turn}
	}
	return Status{Kind: StatusActive}
}

// insufficientMaterial covers K vs K, K+minor vs K, and K+B vs K+B with
// both bishops on the same square color.
func insufficientMaterial(b *Board) bool {
	var minors []PlacedPiece
	for _, pp := range b.Pieces() {
		switch pp.Piece.Type {
		case King:
		case Knight, Bishop:
			minors = append(minors, pp)
			if len(minors) > 2 {
				return false
			}
		default:
			return false
		}
	}
	switch len(minors) {
	case 0, 1:
		return true
	case 2:
		a, b2 := minors[0], minors[1]
		if a.Piece.Type != Bishop || b2.Piece.Type != Bishop || a.Piece.Color == b2.Piece.Color {
			return false
		}
		return squareShade(a.Position) == squareShade(b2.Position)
	}
	return false
}

func squareShade(p Position) int { return (p.Row + p.Col) % 2 }
