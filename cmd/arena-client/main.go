// arena-client is a line-oriented terminal client for the arena server:
// it joins matchmaking, prints the board after every update, and submits
// moves typed as "e2e4" (append q/r/b/n for promotion).
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/jwpark-dev/chess-arena/internal/proto"
)

var (
	whitePiece = color.New(color.FgHiWhite, color.Bold)
	blackPiece = color.New(color.FgHiBlack, color.Bold)
	infoText   = color.New(color.FgCyan)
	errText    = color.New(color.FgRed)
	winText    = color.New(color.FgGreen, color.Bold)
)

var glyphs = map[string]string{
	"pawn": "P", "knight": "N", "bishop": "B",
	"rook": "R", "queen": "Q", "king": "K",
}

type client struct {
	conn     *websocket.Conn
	playerID string
	gameID   string
	myColor  string

	// piece id → color; seeded from the initial ranges, extended from
	// promotion records so promoted pieces stay colorable
	colors map[uint8]string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <player_id> [ws-url]\n", os.Args[0])
		os.Exit(2)
	}
	playerID := os.Args[1]
	url := "ws://localhost:3000/ws"
	if len(os.Args) >= 3 {
		url = os.Args[2]
	} else if v := strings.TrimSpace(os.Getenv("ARENA_URL")); v != "" {
		url = v
	}

	ctx := context.Background()
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	cancel()
	if err != nil {
		log.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c := &client{conn: conn, playerID: playerID, colors: seedColors()}

	if err := c.send(ctx, &proto.ClientMessage{Type: proto.TypeJoinMatchmaking, PlayerID: playerID}); err != nil {
		log.Fatalf("join: %v", err)
	}

	go c.readLoop(ctx)

	infoText.Println("waiting for an opponent... commands: <move e2e4>, resign, draw, accept, decline, state, quit")
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		if c.gameID == "" {
			errText.Println("no game yet")
			continue
		}
		msg, err := c.parseCommand(line)
		if err != nil {
			errText.Println(err)
			continue
		}
		if err := c.send(ctx, msg); err != nil {
			log.Fatalf("send: %v", err)
		}
	}
}

func seedColors() map[uint8]string {
	m := make(map[uint8]string, 32)
	for id := uint8(0); id < 16; id++ {
		m[id] = "white"
	}
	for id := uint8(16); id < 32; id++ {
		m[id] = "black"
	}
	return m
}

func (c *client) send(ctx context.Context, msg *proto.ClientMessage) error {
	wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return wsjson.Write(wctx, c.conn, msg)
}

func (c *client) parseCommand(line string) (*proto.ClientMessage, error) {
	switch line {
	case "resign":
		return c.action(&proto.GameAction{ActionType: proto.ActionResign}), nil
	case "draw":
		return c.action(&proto.GameAction{ActionType: proto.ActionOfferDraw}), nil
	case "accept":
		return c.action(&proto.GameAction{ActionType: proto.ActionAcceptDraw}), nil
	case "decline":
		return c.action(&proto.GameAction{ActionType: proto.ActionDeclineDraw}), nil
	case "state":
		return &proto.ClientMessage{Type: proto.TypeRequestState, GameID: c.gameID}, nil
	case "leave":
		return &proto.ClientMessage{Type: proto.TypeLeaveGame, GameID: c.gameID}, nil
	}
	return c.parseMove(line)
}

func (c *client) action(a *proto.GameAction) *proto.ClientMessage {
	return &proto.ClientMessage{Type: proto.TypeSubmitAction, GameID: c.gameID, Action: a}
}

func (c *client) parseMove(line string) (*proto.ClientMessage, error) {
	if len(line) != 4 && len(line) != 5 {
		return nil, fmt.Errorf("moves look like e2e4 or e7e8q")
	}
	from, ok := square(line[0:2])
	if !ok {
		return nil, fmt.Errorf("bad source square %q", line[0:2])
	}
	to, ok := square(line[2:4])
	if !ok {
		return nil, fmt.Errorf("bad target square %q", line[2:4])
	}
	a := &proto.GameAction{ActionType: proto.ActionMovePiece, From: &from, To: &to}
	if len(line) == 5 {
		promo := map[byte]string{'q': "queen", 'r': "rook", 'b': "bishop", 'n': "knight"}[line[4]]
		if promo == "" {
			return nil, fmt.Errorf("promotion is one of q r b n")
		}
		a.Promotion = promo
	}
	return c.action(a), nil
}

func square(alg string) (proto.Square, bool) {
	col := int(alg[0] - 'a')
	row := int(alg[1] - '1')
	if col < 0 || col > 7 || row < 0 || row > 7 {
		return proto.Square{}, false
	}
	return proto.Square{Row: row, Col: col}, true
}

func (c *client) readLoop(ctx context.Context) {
	for {
		var msg proto.ServerMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			errText.Println("connection closed")
			os.Exit(0)
		}
		c.handle(&msg)
	}
}

func (c *client) handle(msg *proto.ServerMessage) {
	switch msg.Type {
	case proto.TypeMatchmakingJoined:
		infoText.Println("queued for matchmaking")
	case proto.TypeMatchFound:
		c.gameID = msg.GameID
		c.myColor = msg.YourColor
		infoText.Printf("matched against %s - you play %s\n", msg.OpponentID, msg.YourColor)
	case proto.TypeGameStateUpdate:
		if msg.State == nil {
			return
		}
		if msg.LastAction != nil && msg.LastAction.NewPieceID != nil {
			c.colors[*msg.LastAction.NewPieceID] = c.colors[msg.LastAction.MoverID]
		}
		c.printBoard(msg.State)
	case proto.TypeOpponentAction:
		if msg.Action != nil && msg.Action.ActionType != proto.ActionMovePiece {
			infoText.Printf("opponent: %s\n", msg.Action.ActionType)
		}
	case proto.TypeGameOver:
		if msg.Winner == c.myColor {
			winText.Printf("you win (%s)\n", msg.Reason)
		} else if msg.Winner == "" {
			infoText.Printf("draw (%s)\n", msg.Reason)
		} else {
			errText.Printf("you lose (%s)\n", msg.Reason)
		}
	case proto.TypeInvalidAction:
		errText.Printf("rejected: %s\n", msg.Reason)
	case proto.TypeError:
		errText.Printf("error: %s\n", msg.Message)
	}
}

func (c *client) printBoard(state *proto.GameState) {
	type cell struct {
		glyph string
		color string
	}
	var grid [8][8]cell
	for _, ps := range state.BoardState {
		col := int(ps.Position[0] - 'a')
		row := int(ps.Position[1] - '1')
		if col < 0 || col > 7 || row < 0 || row > 7 {
			continue
		}
		grid[row][col] = cell{glyph: glyphs[ps.PieceType], color: c.colors[ps.ID]}
	}

	fmt.Println()
	for row := 7; row >= 0; row-- {
		fmt.Printf("%d ", row+1)
		for col := 0; col < 8; col++ {
			sq := grid[row][col]
			switch {
			case sq.glyph == "":
				fmt.Print(" .")
			case sq.color == "black":
				blackPiece.Printf(" %s", sq.glyph)
			default:
				whitePiece.Printf(" %s", sq.glyph)
			}
		}
		fmt.Println()
	}
	fmt.Println("   a b c d e f g h")

	if len(state.Time) > 0 {
		for pid, secs := range state.Time {
			fmt.Printf("  %s: %d:%02d", pid, secs/60, secs%60)
		}
		fmt.Println()
	}
	switch state.Status.Kind {
	case "check":
		errText.Printf("%s is in check\n", state.Status.InCheck)
	case "active":
		if state.NextPlayerID == c.playerID {
			infoText.Println("your move")
		} else {
			fmt.Printf("waiting for %s\n", state.NextPlayerID)
		}
	default:
		infoText.Printf("status: %s\n", state.Status.Kind)
	}
}
