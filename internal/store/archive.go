package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jwpark-dev/chess-arena/internal/game"
	"github.com/jwpark-dev/chess-arena/internal/obslog"
)

// Sink is one destination for completed-match records.
type Sink interface {
	Name() string
	Save(ctx context.Context, rec game.Record) error
}

// Archiver fans records out to every configured sink, fire-and-forget: a
// failing sink is logged and never blocks or fails the session.
type Archiver struct {
	sinks   []Sink
	timeout time.Duration
}

func NewArchiver(sinks ...Sink) *Archiver {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Archiver{sinks: kept, timeout: 15 * time.Second}
}

// SinkCount reports the number of configured sinks.
func (a *Archiver) SinkCount() int { return len(a.sinks) }

// Archive implements game.Archiver.
func (a *Archiver) Archive(rec game.Record) {
	for _, s := range a.sinks {
		sink := s
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
			defer cancel()
			if err := sink.Save(ctx, rec); err != nil {
				obslog.L().Error("match_archive_error",
					zap.String("sink", sink.Name()),
					zap.String("game_id", rec.GameID),
					zap.Error(err),
				)
				return
			}
			obslog.L().Info("match_archived",
				zap.String("sink", sink.Name()),
				zap.String("game_id", rec.GameID),
				zap.String("winner", rec.Winner),
				zap.String("reason", rec.Reason),
			)
		}()
	}
}
