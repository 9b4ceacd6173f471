package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/jwpark-dev/chess-arena/internal/game"
)

func testRecord() game.Record {
	return game.Record{
		GameID:  "g-123",
		WhiteID: "alice",
		BlackID: "bob",
		Winner:  "white",
		Reason:  "checkmate",
		MovesUCI: []string{
			"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7",
		},
		StartedAt: time.Unix(1700000000, 0),
		EndedAt:   time.Unix(1700000120, 0),
	}
}

func newTestPublisher(t *testing.T) *Publisher {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	p, err := NewPublisher(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPublisherSaveAndLoad(t *testing.T) {
	p := newTestPublisher(t)
	ctx := context.Background()
	rec := testRecord()

	if err := p.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := p.Load(ctx, rec.GameID)
	if err != nil || back == nil {
		t.Fatalf("Load: %v %v", back, err)
	}
	if back.Winner != "white" || len(back.MovesUCI) != 7 {
		t.Fatalf("record round trip: %+v", back)
	}

	for _, pid := range []string{"alice", "bob"} {
		ids, err := p.GamesByUser(ctx, pid)
		if err != nil || len(ids) != 1 || ids[0] != rec.GameID {
			t.Fatalf("index for %s: %v %v", pid, ids, err)
		}
	}
}

func TestPublisherLoadMissing(t *testing.T) {
	p := newTestPublisher(t)
	rec, err := p.Load(context.Background(), "absent")
	if err != nil || rec != nil {
		t.Fatalf("expected nil record, got %v %v", rec, err)
	}
}

func TestSANLineAndPGN(t *testing.T) {
	rec := testRecord()
	sans, err := sanLine(rec.MovesUCI)
	if err != nil {
		t.Fatalf("sanLine: %v", err)
	}
	if len(sans) != 7 {
		t.Fatalf("expected 7 half-moves, got %d", len(sans))
	}
	if !strings.Contains(sans[6], "f7") {
		t.Fatalf("last SAN should land on f7: %q", sans[6])
	}

	pgn := buildPGN(rec)
	for _, want := range []string{
		`[White "alice"]`,
		`[Black "bob"]`,
		`[Result "1-0"]`,
		`[Termination "checkmate"]`,
		"1. e4 e5",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("pgn missing %q:\n%s", want, pgn)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(pgn), "1-0") {
		t.Fatalf("pgn should end with the result:\n%s", pgn)
	}
}

func TestPGNResults(t *testing.T) {
	rec := testRecord()
	rec.Winner = ""
	rec.Reason = "stalemate"
	if got := pgnResult(rec); got != "1/2-1/2" {
		t.Fatalf("stalemate result = %q", got)
	}
	rec.Reason = "opponent disconnected"
	rec.Winner = "black"
	if got := pgnResult(rec); got != "0-1" {
		t.Fatalf("black win result = %q", got)
	}
}

func TestWebhookPostsRecord(t *testing.T) {
	var mu sync.Mutex
	var got game.Record
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	wh, err := NewWebhook(srv.URL)
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}
	if err := wh.Save(context.Background(), testRecord()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 || got.GameID != "g-123" || got.Winner != "white" {
		t.Fatalf("calls=%d got=%+v", calls, got)
	}
}

func TestWebhookRetriesOnServerError(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	wh, err := NewWebhook(srv.URL, WithWebhookRetry(3))
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}
	if err := wh.Save(context.Background(), testRecord()); err != nil {
		t.Fatalf("Save should succeed after retry: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

type fakeSink struct {
	mu   sync.Mutex
	recs []game.Record
	done chan struct{}
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Save(_ context.Context, rec game.Record) error {
	f.mu.Lock()
	f.recs = append(f.recs, rec)
	f.mu.Unlock()
	select {
	case f.done <- struct{}{}:
	default:
	}
	return nil
}

func TestArchiverFansOut(t *testing.T) {
	a := &fakeSink{done: make(chan struct{}, 1)}
	b := &fakeSink{done: make(chan struct{}, 1)}
	arch := NewArchiver(a, nil, b)
	if arch.SinkCount() != 2 {
		t.Fatalf("nil sinks must be dropped, count=%d", arch.SinkCount())
	}

	arch.Archive(testRecord())
	for _, s := range []*fakeSink{a, b} {
		select {
		case <-s.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("sink %s never received the record", s.Name())
		}
	}
}
