package proto

import (
	"encoding/json"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ErrMalformed is the base class for every decode failure; the wrapped text
// is safe to echo back to the sender in Error{message}.
var ErrMalformed = fmt.Errorf("malformed message")

const maxPlayerIDLen = 64

// ValidatePlayerID enforces the self-declared identity rules: 1..64 bytes,
// valid UTF-8, printable, no spaces beyond U+0020.
func ValidatePlayerID(id string) error {
	if len(id) == 0 || len(id) > maxPlayerIDLen {
		return fmt.Errorf("%w: player_id length must be 1..%d", ErrMalformed, maxPlayerIDLen)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%w: player_id is not valid UTF-8", ErrMalformed)
	}
	for _, r := range id {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("%w: player_id contains non-printable characters", ErrMalformed)
		}
	}
	return nil
}

// DecodeClient parses and shape-validates one client frame. Unknown types
// and unknown action discriminants are rejected rather than coerced.
func DecodeClient(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch msg.Type {
	case TypeJoinMatchmaking:
		if err := ValidatePlayerID(msg.PlayerID); err != nil {
			return nil, err
		}
	case TypeSubmitAction:
		if msg.GameID == "" {
			return nil, fmt.Errorf("%w: game_id is required", ErrMalformed)
		}
		if msg.Action == nil {
			return nil, fmt.Errorf("%w: action is required", ErrMalformed)
		}
		if err := validateAction(msg.Action); err != nil {
			return nil, err
		}
	case TypeLeaveGame, TypeRequestState:
		if msg.GameID == "" {
			return nil, fmt.Errorf("%w: game_id is required", ErrMalformed)
		}
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, msg.Type)
	}
	return &msg, nil
}

func validateAction(a *GameAction) error {
	switch a.ActionType {
	case ActionMovePiece:
		if a.From == nil || a.To == nil {
			return fmt.Errorf("%w: move requires from and to", ErrMalformed)
		}
		if !squareValid(*a.From) || !squareValid(*a.To) {
			return fmt.Errorf("%w: square out of range", ErrMalformed)
		}
		switch a.Promotion {
		case "", "queen", "rook", "bishop", "knight":
		default:
			return fmt.Errorf("%w: unknown promotion %q", ErrMalformed, a.Promotion)
		}
	case ActionResign, ActionOfferDraw, ActionAcceptDraw, ActionDeclineDraw:
		if a.From != nil || a.To != nil || a.Promotion != "" {
			return fmt.Errorf("%w: %s takes no squares", ErrMalformed, a.ActionType)
		}
	case "":
		return fmt.Errorf("%w: missing action_type", ErrMalformed)
	default:
		return fmt.Errorf("%w: unknown action_type %q", ErrMalformed, a.ActionType)
	}
	return nil
}

func squareValid(s Square) bool {
	return s.Row >= 0 && s.Row < 8 && s.Col >= 0 && s.Col < 8
}

// EncodeClient marshals a client frame (used by the terminal client and
// tests).
func EncodeClient(msg *ClientMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// EncodeServer marshals a server frame.
func EncodeServer(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeServer parses a server frame on the client side.
func DecodeServer(data []byte) (*ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return &msg, nil
}
