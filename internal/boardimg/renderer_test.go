package boardimg

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/jwpark-dev/chess-arena/internal/chess"
)

func TestRenderStartingPosition(t *testing.T) {
	r := NewRenderer()
	data, err := r.RenderPNG(chess.NewBoard().Pieces())
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 512 || img.Bounds().Dy() != 512 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}

func TestRenderEmptyBoard(t *testing.T) {
	r := NewRenderer()
	data, err := r.RenderPNG(nil)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("empty output")
	}
}

func TestPieceAssetsAllPresent(t *testing.T) {
	for _, c := range []chess.Color{chess.White, chess.Black} {
		for _, pt := range []chess.PieceType{chess.Pawn, chess.Knight, chess.Bishop, chess.Rook, chess.Queen, chess.King} {
			if _, err := renderPieceImage(pt, c, 32); err != nil {
				t.Fatalf("render %v %v: %v", c, pt, err)
			}
		}
	}
}
