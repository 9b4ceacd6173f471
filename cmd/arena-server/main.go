package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jwpark-dev/chess-arena/internal/boardimg"
	appcfg "github.com/jwpark-dev/chess-arena/internal/config"
	"github.com/jwpark-dev/chess-arena/internal/game"
	"github.com/jwpark-dev/chess-arena/internal/match"
	"github.com/jwpark-dev/chess-arena/internal/msgcat"
	"github.com/jwpark-dev/chess-arena/internal/obslog"
	"github.com/jwpark-dev/chess-arena/internal/router"
	"github.com/jwpark-dev/chess-arena/internal/store"
	wstransport "github.com/jwpark-dev/chess-arena/internal/transport/ws"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	reasons, err := msgcat.New(os.Getenv("MESSAGES_DIR"))
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	// optional completed-match sinks; an unreachable Postgres or Redis sink is
	// a fatal init failure, while the webhook URL is not contacted until a
	// record is sent
	var sinks []store.Sink
	var repo *store.Repository
	if cfg.DatabaseURL != "" {
		repo, err = store.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("match repository init error: %v", err)
		}
		sinks = append(sinks, repo)
	}
	var pub *store.Publisher
	if cfg.RedisURL != "" {
		pub, err = store.NewPublisher(cfg.RedisURL)
		if err != nil {
			log.Fatalf("match publisher init error: %v", err)
		}
		sinks = append(sinks, pub)
	}
	if cfg.MatchWebhookURL != "" {
		wh, err := store.NewWebhook(cfg.MatchWebhookURL)
		if err != nil {
			log.Fatalf("match webhook init error: %v", err)
		}
		sinks = append(sinks, wh)
	}
	archiver := store.NewArchiver(sinks...)

	queue := match.NewQueue(cfg.MatchmakingMaxWait)
	var rt *router.Router
	registry := game.NewRegistry(game.Options{
		ClockInitial:   cfg.ClockInitial,
		ClockIncrement: cfg.ClockIncrement,
		Reasons:        reasons,
		Archiver:       archiver,
		OnDestroy: func(gameID string, playerIDs []string) {
			rt.Unbind(gameID, playerIDs)
		},
	})
	rt = router.New(queue, registry, reasons, nil)

	wsServer := wstransport.NewServer(wstransport.Config{
		MaxConnections:   cfg.MaxConnections,
		OutboundCapacity: cfg.SessionOutboundCapacity,
	}, rt, reasons)

	renderer := boardimg.NewRenderer()

	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "service": "chess-arena"})
	})
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		conns, queued, games := rt.Counts()
		writeJSON(w, map[string]any{
			"connections":          conns,
			"matchmaking_players":  queued,
			"active_games":         games,
		})
	})
	// card catalog lives outside the session core; the route is a stub so
	// clients have a stable surface
	mux.HandleFunc("GET /api/cards", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"cards": []any{}})
	})
	mux.HandleFunc("GET /api/games/{id}/board.png", func(w http.ResponseWriter, r *http.Request) {
		s, ok := registry.Get(r.PathValue("id"))
		if !ok {
			http.Error(w, "no such game", http.StatusNotFound)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		pieces, err := s.PiecesSnapshot(ctx)
		if err != nil {
			http.Error(w, "no such game", http.StatusNotFound)
			return
		}
		data, err := renderer.RenderPNG(pieces)
		if err != nil {
			obslog.L().Error("board_render_error", zap.String("game_id", s.ID()), zap.Error(err))
			http.Error(w, "render error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	})

	ctx, cancelSchedulers := context.WithCancel(context.Background())
	go rt.RunMatchmaking(ctx, cfg.MatchmakingTick)
	go rt.RunClocks(ctx, cfg.ClockTick)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	obslog.L().Info("server_start",
		zap.Int("port", cfg.Port),
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Bool("clock", cfg.ClockEnabled()),
		zap.Int("archive_sinks", archiver.SinkCount()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		cancelSchedulers()
		log.Fatalf("listen error: %v", err)
	case sig := <-sigCh:
		obslog.L().Info("server_shutdown", zap.String("signal", sig.String()))
	}

	cancelSchedulers()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if repo != nil {
		_ = repo.Close()
	}
	if pub != nil {
		_ = pub.Close()
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
