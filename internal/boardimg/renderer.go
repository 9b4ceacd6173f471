// Package boardimg renders a board position to PNG for the snapshot
// endpoint. Piece glyphs come from embedded SVG assets rasterized once per
// size.
package boardimg

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/jwpark-dev/chess-arena/internal/chess"
)

var (
	lightSquare = color.RGBA{R: 0xF0, G: 0xD9, B: 0xB5, A: 0xFF}
	darkSquare  = color.RGBA{R: 0xB5, G: 0x88, B: 0x63, A: 0xFF}
)

// Renderer draws boards at a fixed square size, white side at the bottom.
type Renderer struct {
	square int
}

func NewRenderer() *Renderer { return &Renderer{square: 64} }

// RenderPNG paints the position into a PNG.
func (r *Renderer) RenderPNG(pieces []chess.PlacedPiece) ([]byte, error) {
	size := r.square * 8
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			c := lightSquare
			if (row+col)%2 == 1 {
				c = darkSquare
			}
			x0, y0 := r.squareOrigin(chess.Position{Row: row, Col: col})
			rect := image.Rect(x0, y0, x0+r.square, y0+r.square)
			xdraw.Draw(img, rect, image.NewUniform(c), image.Point{}, xdraw.Src)
		}
	}

	// glyphs render at 2x and scale down for smoother edges
	for _, pp := range pieces {
		glyph, err := renderPieceImage(pp.Piece.Type, pp.Piece.Color, r.square*2)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", pp.Piece.Type, err)
		}
		x0, y0 := r.squareOrigin(pp.Position)
		rect := image.Rect(x0, y0, x0+r.square, y0+r.square)
		xdraw.CatmullRom.Scale(img, rect, glyph, glyph.Bounds(), xdraw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// squareOrigin maps a board square to pixel coordinates; rank 8 is at the
// top of the image.
func (r *Renderer) squareOrigin(pos chess.Position) (int, int) {
	return pos.Col * r.square, (7 - pos.Row) * r.square
}
