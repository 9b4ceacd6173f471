// Package ws is the WebSocket transport: one reader task and one writer task
// per connection, with the outbound channel as the backpressure boundary.
package ws

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/jwpark-dev/chess-arena/internal/msgcat"
	"github.com/jwpark-dev/chess-arena/internal/obslog"
	"github.com/jwpark-dev/chess-arena/internal/proto"
	"github.com/jwpark-dev/chess-arena/internal/router"
)

type Config struct {
	MaxConnections   int
	OutboundCapacity int
	WriteTimeout     time.Duration
}

// Server upgrades HTTP requests at /ws into arena sessions.
type Server struct {
	cfg     Config
	router  *router.Router
	reasons *msgcat.Catalog
	active  atomic.Int64
	log     *zap.Logger
}

func NewServer(cfg Config, rt *router.Router, reasons *msgcat.Catalog) *Server {
	if cfg.OutboundCapacity <= 0 {
		cfg.OutboundCapacity = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &Server{cfg: cfg, router: rt, reasons: reasons, log: obslog.L()}
}

// ActiveConnections reports the number of open sessions.
func (s *Server) ActiveConnections() int { return int(s.active.Load()) }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxConnections > 0 && s.active.Load() >= int64(s.cfg.MaxConnections) {
		http.Error(w, s.reasons.Text("error.server_full"), http.StatusServiceUnavailable)
		return
	}
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("ws_accept_error", zap.Error(err))
		return
	}
	s.active.Add(1)
	defer s.active.Add(-1)
	s.handle(r.Context(), c)
}

func (s *Server) handle(ctx context.Context, c *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan proto.ServerMessage, s.cfg.OutboundCapacity)
	closeFn := func(reason string) {
		cancel()
		_ = c.Close(websocket.StatusPolicyViolation, clampReason(reason))
	}

	go s.writeLoop(ctx, cancel, c, out)

	var (
		playerID string
		epoch    uint64
		attached bool
	)
	defer func() {
		if attached {
			s.router.Detach(playerID, epoch)
		}
		_ = c.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		msg, derr := proto.DecodeClient(data)
		if derr != nil {
			// a malformed frame never tears down the connection
			s.push(out, proto.Error(derr.Error()))
			continue
		}
		if !attached {
			// identity is self-declared by the first JoinMatchmaking
			if msg.Type != proto.TypeJoinMatchmaking {
				s.push(out, proto.Error(s.reasons.Text("error.must_join")))
				continue
			}
			playerID = msg.PlayerID
			epoch = s.router.Attach(playerID, out, closeFn)
			attached = true
		}
		s.router.Deliver(playerID, epoch, msg)
	}
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, out <-chan proto.ServerMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			wctx, wcancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
			err := wsjson.Write(wctx, c, msg)
			wcancel()
			if err != nil {
				cancel()
				return
			}
		}
	}
}

// push enqueues without blocking the reader; pre-attach errors are best
// effort.
func (s *Server) push(out chan proto.ServerMessage, msg proto.ServerMessage) {
	select {
	case out <- msg:
	default:
	}
}

// clampReason keeps the close reason within the 123-byte control-frame
// budget.
func clampReason(reason string) string {
	if len(reason) > 123 {
		return reason[:123]
	}
	return reason
}
