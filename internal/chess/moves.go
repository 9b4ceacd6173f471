package chess

// Pseudo-legal move generation: every move a piece could make by its movement
// rules, before filtering out moves that leave the own king attacked.

var knightOffsets = [8][2]int{
	{2, 1}, {2, -1}, {-2, 1}, {-2, -1},
	{1, 2}, {1, -2}, {-1, 2}, {-1, -2},
}

var kingOffsets = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

var bishopDirs = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
var rookDirs = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

func pawnDirection(c Color) int {
	if c == White {
		return 1
	}
	return -1
}

func pawnStartRow(c Color) int {
	if c == White {
		return 1
	}
	return 6
}

func promotionRow(c Color) int {
	if c == White {
		return 7
	}
	return 0
}

// pseudoMoves lists pseudo-legal moves for the piece on from. Promotion moves
// carry Queen as a stand-in; the chosen piece comes from the submitted action
// and does not affect own-king safety.
func pseudoMoves(b *Board, from Position) []Move {
	p := b.at(from)
	if p == nil {
		return nil
	}
	switch p.Type {
	case Pawn:
		return pawnMoves(b, from, *p)
	case Knight:
		return offsetMoves(b, from, *p, knightOffsets[:])
	case Bishop:
		return slideMoves(b, from, *p, bishopDirs[:])
	case Rook:
		return slideMoves(b, from, *p, rookDirs[:])
	case Queen:
		moves := slideMoves(b, from, *p, rookDirs[:])
		return append(moves, slideMoves(b, from, *p, bishopDirs[:])...)
	case King:
		moves := offsetMoves(b, from, *p, kingOffsets[:])
		return append(moves, castleMoves(b, from, *p)...)
	}
	return nil
}

func pawnMoves(b *Board, from Position, p Piece) []Move {
	var moves []Move
	dir := pawnDirection(p.Color)

	push := func(to Position) {
		if to.Row == promotionRow(p.Color) {
			moves = append(moves, Move{From: from, To: to, Promotion: Queen})
		} else {
			moves = append(moves, Move{From: from, To: to})
		}
	}

	one := Position{Row: from.Row + dir, Col: from.Col}
	if one.Valid() && b.at(one) == nil {
		push(one)
		two := Position{Row: from.Row + 2*dir, Col: from.Col}
		if from.Row == pawnStartRow(p.Color) && b.at(two) == nil {
			moves = append(moves, Move{From: from, To: two})
		}
	}

	for _, dc := range [2]int{-1, 1} {
		to := Position{Row: from.Row + dir, Col: from.Col + dc}
		if !to.Valid() {
			continue
		}
		if target := b.at(to); target != nil && target.Color != p.Color {
			push(to)
		} else if b.enPassant != nil && *b.enPassant == to {
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

func offsetMoves(b *Board, from Position, p Piece, offsets [][2]int) []Move {
	var moves []Move
	for _, off := range offsets {
		to := Position{Row: from.Row + off[0], Col: from.Col + off[1]}
		if !to.Valid() {
			continue
		}
		if target := b.at(to); target == nil || target.Color != p.Color {
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

func slideMoves(b *Board, from Position, p Piece, dirs [][2]int) []Move {
	var moves []Move
	for _, dir := range dirs {
		to := Position{Row: from.Row + dir[0], Col: from.Col + dir[1]}
		for to.Valid() {
			target := b.at(to)
			if target == nil {
				moves = append(moves, Move{From: from, To: to})
			} else {
				if target.Color != p.Color {
					moves = append(moves, Move{From: from, To: to})
				}
				break
			}
			to = Position{Row: to.Row + dir[0], Col: to.Col + dir[1]}
		}
	}
	return moves
}

// castleMoves emits the two-square king moves when castling is available:
// rights intact, path empty, and no traversed square attacked.
func castleMoves(b *Board, from Position, p Piece) []Move {
	var moves []Move
	row := 0
	kingside, queenside := b.castling.WhiteKingside, b.castling.WhiteQueenside
	if p.Color == Black {
		row = 7
		kingside, queenside = b.castling.BlackKingside, b.castling.BlackQueenside
	}
	if from.Row != row || from.Col != 4 {
		return nil
	}
	if isAttacked(b, from, p.Color.Opposite()) {
		return nil
	}
	if kingside && b.at(Position{row, 5}) == nil && b.at(Position{row, 6}) == nil {
		if rook := b.at(Position{row, 7}); rook != nil && rook.Type == Rook && rook.Color == p.Color {
			if !isAttacked(b, Position{row, 5}, p.Color.Opposite()) && !isAttacked(b, Position{row, 6}, p.Color.Opposite()) {
				moves = append(moves, Move{From: from, To: Position{row, 6}})
			}
		}
	}
	if queenside && b.at(Position{row, 3}) == nil && b.at(Position{row, 2}) == nil && b.at(Position{row, 1}) == nil {
		if rook := b.at(Position{row, 0}); rook != nil && rook.Type == Rook && rook.Color == p.Color {
			if !isAttacked(b, Position{row, 3}, p.Color.Opposite()) && !isAttacked(b, Position{row, 2}, p.Color.Opposite()) {
				moves = append(moves, Move{From: from, To: Position{row, 2}})
			}
		}
	}
	return moves
}

// isAttacked reports whether pos is attacked by any piece of color `by`.
// Computed directly from movement geometry so it cannot recurse through the
// king-safety filter.
func isAttacked(b *Board, pos Position, by Color) bool {
	// pawn attacks come toward pos from the attacker's side
	dir := pawnDirection(by)
	for _, dc := range [2]int{-1, 1} {
		from := Position{Row: pos.Row - dir, Col: pos.Col + dc}
		if from.Valid() {
			if p := b.at(from); p != nil && p.Type == Pawn && p.Color == by {
				return true
			}
		}
	}
	for _, off := range knightOffsets {
		from := Position{Row: pos.Row + off[0], Col: pos.Col + off[1]}
		if from.Valid() {
			if p := b.at(from); p != nil && p.Type == Knight && p.Color == by {
				return true
			}
		}
	}
	for _, off := range kingOffsets {
		from := Position{Row: pos.Row + off[0], Col: pos.Col + off[1]}
		if from.Valid() {
			if p := b.at(from); p != nil && p.Type == King && p.Color == by {
				return true
			}
		}
	}
	if rayAttacked(b, pos, by, rookDirs[:], Rook) {
		return true
	}
	return rayAttacked(b, pos, by, bishopDirs[:], Bishop)
}

func rayAttacked(b *Board, pos Position, by Color, dirs [][2]int, slider PieceType) bool {
	for _, dir := range dirs {
		to := Position{Row: pos.Row + dir[0], Col: pos.Col + dir[1]}
		for to.Valid() {
			if p := b.at(to); p != nil {
				if p.Color == by && (p.Type == slider || p.Type == Queen) {
					return true
				}
				break
			}
			to = Position{Row: to.Row + dir[0], Col: to.Col + dir[1]}
		}
	}
	return false
}
