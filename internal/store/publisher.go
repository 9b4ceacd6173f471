package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwpark-dev/chess-arena/internal/game"
)

const (
	recordTTL    = 24 * time.Hour
	recentLimit  = 100
	keyRecent    = "arena:match:recent"
	keyGamePref  = "arena:match:game:"
	keyUserPref  = "arena:match:index:user:"
)

// Publisher pushes completed-match records into Redis: the record itself
// under a TTL, a capped recent-matches list, and a per-player index.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(redisURL string) (*Publisher, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Publisher{rdb: rdb}, nil
}

func (p *Publisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

func (p *Publisher) Name() string { return "redis" }

func (p *Publisher) Save(ctx context.Context, rec game.Record) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := p.rdb.TxPipeline()
	pipe.Set(ctx, keyGame(rec.GameID), raw, recordTTL)
	pipe.LPush(ctx, keyRecent, rec.GameID)
	pipe.LTrim(ctx, keyRecent, 0, recentLimit-1)
	pipe.Expire(ctx, keyRecent, recordTTL)
	for _, pid := range []string{rec.WhiteID, rec.BlackID} {
		if strings.TrimSpace(pid) == "" {
			continue
		}
		pipe.SAdd(ctx, keyUser(pid), rec.GameID)
		pipe.Expire(ctx, keyUser(pid), recordTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Load fetches a record back by game ID; nil when absent or expired.
func (p *Publisher) Load(ctx context.Context, gameID string) (*game.Record, error) {
	raw, err := p.rdb.Get(ctx, keyGame(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec game.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GamesByUser lists the archived game IDs for a player.
func (p *Publisher) GamesByUser(ctx context.Context, playerID string) ([]string, error) {
	return p.rdb.SMembers(ctx, keyUser(playerID)).Result()
}

func keyGame(id string) string   { return keyGamePref + strings.TrimSpace(id) }
func keyUser(pid string) string  { return keyUserPref + strings.TrimSpace(pid) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
