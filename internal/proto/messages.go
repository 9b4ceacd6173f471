// Package proto defines the client/server wire messages and their codec.
// Frames are UTF-8 JSON, one message per transport frame, discriminated by
// "type" on the envelope and "action_type" on game actions.
package proto

// Client → server message types.
const (
	TypeJoinMatchmaking = "JoinMatchmaking"
	TypeSubmitAction    = "SubmitAction"
	TypeLeaveGame       = "LeaveGame"
	TypeRequestState    = "RequestState"
)

// Server → client message types.
const (
	TypeMatchmakingJoined = "MatchmakingJoined"
	TypeMatchFound        = "MatchFound"
	TypeGameStateUpdate   = "GameStateUpdate"
	TypeOpponentAction    = "OpponentAction"
	TypeGameOver          = "GameOver"
	TypeInvalidAction     = "InvalidAction"
	TypeError             = "Error"
)

// Game action discriminants.
const (
	ActionMovePiece   = "MovePiece"
	ActionResign      = "Resign"
	ActionOfferDraw   = "OfferDraw"
	ActionAcceptDraw  = "AcceptDraw"
	ActionDeclineDraw = "DeclineDraw"
)

// Square addresses a board square by rank row (0..7, row 0 = rank 1) and
// file col (0..7, col 0 = file a).
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// GameAction is a proposed in-game action.
type GameAction struct {
	ActionType string  `json:"action_type"`
	From       *Square `json:"from,omitempty"`
	To         *Square `json:"to,omitempty"`
	Promotion  string  `json:"promotion,omitempty"`
}

// ClientMessage is the client → server envelope.
type ClientMessage struct {
	Type     string      `json:"type"`
	PlayerID string      `json:"player_id,omitempty"`
	GameID   string      `json:"game_id,omitempty"`
	Action   *GameAction `json:"action,omitempty"`
}

// PieceState is one live piece in a state broadcast. Position uses the
// algebraic wire form "a1".."h8".
type PieceState struct {
	ID        uint8  `json:"id"`
	Position  string `json:"position"`
	PieceType string `json:"piece_type"`
}

// StatusInfo is the reconciled game status.
type StatusInfo struct {
	Kind    string `json:"kind"`
	Winner  string `json:"winner,omitempty"`
	InCheck string `json:"in_check,omitempty"`
}

// CastlingState mirrors the remaining castling rights.
type CastlingState struct {
	WhiteKingside  bool `json:"white_kingside"`
	WhiteQueenside bool `json:"white_queenside"`
	BlackKingside  bool `json:"black_kingside"`
	BlackQueenside bool `json:"black_queenside"`
}

// GameState is the full reconciled state carried by GameStateUpdate.
// Time maps player_id → whole seconds remaining; absent when the game has
// no clock.
type GameState struct {
	GameID          string        `json:"game_id"`
	NextPlayerID    string        `json:"next_player_id"`
	Status          StatusInfo    `json:"status"`
	BoardState      []PieceState  `json:"board_state"`
	Time            map[string]int `json:"time,omitempty"`
	CastlingRights  CastlingState `json:"castling_rights"`
	EnPassantTarget string        `json:"en_passant_target,omitempty"`
}

// ActionRecord describes the most recently applied action together with
// every piece ID whose visual state changed, so the client can animate
// before reconciling against BoardState.
type ActionRecord struct {
	Action            GameAction `json:"action"`
	MoverID           uint8      `json:"mover_id"`
	CapturedID        *uint8     `json:"captured_id,omitempty"`
	EnPassantVictimID *uint8     `json:"en_passant_victim_id,omitempty"`
	CastleRookID      *uint8     `json:"castle_rook_id,omitempty"`
	RookFrom          *Square    `json:"rook_from,omitempty"`
	RookTo            *Square    `json:"rook_to,omitempty"`
	OldPawnID         *uint8     `json:"old_pawn_id,omitempty"`
	NewPieceID        *uint8     `json:"new_piece_id,omitempty"`
}

// ServerMessage is the server → client envelope. Only the fields relevant
// to Type are populated.
type ServerMessage struct {
	Type       string        `json:"type"`
	GameID     string        `json:"game_id,omitempty"`
	OpponentID string        `json:"opponent_id,omitempty"`
	YourColor  string        `json:"your_color,omitempty"`
	State      *GameState    `json:"state,omitempty"`
	LastAction *ActionRecord `json:"last_action,omitempty"`
	Action     *GameAction   `json:"action,omitempty"`
	Winner     string        `json:"winner,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// Constructors for the common server messages.

func MatchmakingJoined() ServerMessage {
	return ServerMessage{Type: TypeMatchmakingJoined}
}

func MatchFound(gameID, opponentID, yourColor string) ServerMessage {
	return ServerMessage{Type: TypeMatchFound, GameID: gameID, OpponentID: opponentID, YourColor: yourColor}
}

func StateUpdate(state *GameState, last *ActionRecord) ServerMessage {
	return ServerMessage{Type: TypeGameStateUpdate, State: state, LastAction: last}
}

func OpponentAction(action GameAction) ServerMessage {
	a := action
	return ServerMessage{Type: TypeOpponentAction, Action: &a}
}

func GameOver(winner, reason string) ServerMessage {
	return ServerMessage{Type: TypeGameOver, Winner: winner, Reason: reason}
}

func InvalidAction(reason string) ServerMessage {
	return ServerMessage{Type: TypeInvalidAction, Reason: reason}
}

func Error(message string) ServerMessage {
	return ServerMessage{Type: TypeError, Message: message}
}
