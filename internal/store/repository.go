// Package store persists completed-match records to the configured external
// sinks: Postgres, Redis, and an HTTP webhook. Everything here is
// fire-and-forget from the session's point of view.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/jwpark-dev/chess-arena/internal/game"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Name() string { return "postgres" }

// Save upserts the completed match, including a PGN rendering of the game.
func (r *Repository) Save(ctx context.Context, rec game.Record) error {
	if r == nil || r.db == nil {
		return nil
	}
	movesRaw, _ := json.Marshal(rec.MovesUCI)

	q := `INSERT INTO arena_matches (
	    game_id, white_id, black_id, winner, reason,
	    moves_uci, pgn, started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
	  ) ON CONFLICT (game_id) DO UPDATE SET
	    white_id=EXCLUDED.white_id,
	    black_id=EXCLUDED.black_id,
	    winner=EXCLUDED.winner,
	    reason=EXCLUDED.reason,
	    moves_uci=EXCLUDED.moves_uci,
	    pgn=EXCLUDED.pgn,
	    started_at=EXCLUDED.started_at,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		rec.GameID,
		rec.WhiteID, rec.BlackID,
		rec.Winner, rec.Reason,
		string(movesRaw), buildPGN(rec),
		rec.StartedAt, rec.EndedAt, durationMillis(rec),
	)
	return err
}
