package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for key, want := range map[string]string{
		"invalid.not_your_turn": "not your turn",
		"over.checkmate":        "checkmate",
		"over.disconnect":       "opponent disconnected",
		"error.no_such_game":    "no such game",
	} {
		if got := c.Text(key); got != want {
			t.Fatalf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestTextFallsBackToKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("no.such.key"); got != "no.such.key" {
		t.Fatalf("fallback = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "override.yaml"), []byte("over:\n  checkmate: \"mate\"\n"), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("over.checkmate"); got != "mate" {
		t.Fatalf("override not applied: %q", got)
	}
	// untouched keys keep defaults
	if got := c.Text("over.timeout"); got != "timeout" {
		t.Fatalf("default lost: %q", got)
	}
}
