package store

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/jwpark-dev/chess-arena/internal/game"
)

// sanLine replays the archived UCI moves from the start position and returns
// the SAN for each half-move.
func sanLine(movesUCI []string) ([]string, error) {
	g := nchess.NewGame()
	sans := make([]string, 0, len(movesUCI))
	notation := nchess.UCINotation{}
	for _, uci := range movesUCI {
		pos := g.Position()
		mv, err := notation.Decode(pos, strings.ToLower(strings.TrimSpace(uci)))
		if err != nil {
			return nil, fmt.Errorf("decode %q: %w", uci, err)
		}
		san := nchess.AlgebraicNotation{}.Encode(pos, mv)
		if err := g.PushNotationMove(strings.ToLower(strings.TrimSpace(uci)), notation, nil); err != nil {
			return nil, fmt.Errorf("apply %q: %w", uci, err)
		}
		sans = append(sans, san)
	}
	return sans, nil
}

func pgnResult(rec game.Record) string {
	switch rec.Winner {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	}
	switch rec.Reason {
	case "stalemate", "insufficient material", "draw agreed":
		return "1/2-1/2"
	}
	return "*"
}

// buildPGN renders the completed match as PGN text. SAN derivation failures
// degrade to a move-less header block rather than losing the record.
func buildPGN(rec game.Record) string {
	var b strings.Builder
	date := rec.EndedAt
	if date.IsZero() {
		date = rec.StartedAt
	}
	result := pgnResult(rec)

	b.WriteString("[Event \"Arena match\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(rec.WhiteID)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(rec.BlackID)))
	if rec.Reason != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(rec.Reason)))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	sans, err := sanLine(rec.MovesUCI)
	if err == nil {
		for i := 0; i < len(sans); i += 2 {
			turn := (i / 2) + 1
			b.WriteString(fmt.Sprintf("%d. %s", turn, sans[i]))
			if i+1 < len(sans) {
				b.WriteString(" ")
				b.WriteString(sans[i+1])
			}
			b.WriteString(" ")
		}
	}
	b.WriteString(result)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}

func durationMillis(rec game.Record) int64 {
	d := rec.EndedAt.Sub(rec.StartedAt)
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}
