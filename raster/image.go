// Package raster provides RGBA pixel buffers, the uniform-color predicate
// and the over-compositing blits used during viewport assembly.
package raster

import (
	"github.com/eak1mov/go-tilemap/tile"
)

// Image is an 8-bit RGBA pixel buffer, row-major, 4 bytes per pixel.
type Image struct {
	Pix []byte
	W   int
	H   int
}

// New returns a fully transparent image of the given size.
func New(w, h int) *Image {
	return &Image{Pix: make([]byte, w*h*4), W: w, H: h}
}

func (img *Image) At(x, y int) tile.Color {
	i := (y*img.W + x) * 4
	return tile.RGBA(img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3])
}

func (img *Image) Set(x, y int, c tile.Color) {
	i := (y*img.W + x) * 4
	img.Pix[i] = c.R()
	img.Pix[i+1] = c.G()
	img.Pix[i+2] = c.B()
	img.Pix[i+3] = c.A()
}

// UniformColor reports whether every pixel of the given region matches the
// region's first pixel within tolerance per channel, and returns that first
// pixel. The region must lie inside the image; no clipping is performed.
func (img *Image) UniformColor(x, y, w, h, tolerance int) (tile.Color, bool) {
	ref := img.At(x, y)
	if tolerance == 0 {
		return ref, img.uniformExact(x, y, w, h, ref)
	}

	rr, rg, rb, ra := int(ref.R()), int(ref.G()), int(ref.B()), int(ref.A())
	for py := y; py < y+h; py++ {
		row := img.Pix[(py*img.W+x)*4 : (py*img.W+x+w)*4]
		for i := 0; i < len(row); i += 4 {
			if absDiff(int(row[i]), rr) > tolerance ||
				absDiff(int(row[i+1]), rg) > tolerance ||
				absDiff(int(row[i+2]), rb) > tolerance ||
				absDiff(int(row[i+3]), ra) > tolerance {
				return ref, false
			}
		}
	}
	return ref, true
}

func (img *Image) uniformExact(x, y, w, h int, ref tile.Color) bool {
	r, g, b, a := ref.R(), ref.G(), ref.B(), ref.A()
	for py := y; py < y+h; py++ {
		row := img.Pix[(py*img.W+x)*4 : (py*img.W+x+w)*4]
		for i := 0; i < len(row); i += 4 {
			if row[i] != r || row[i+1] != g || row[i+2] != b || row[i+3] != a {
				return false
			}
		}
	}
	return true
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
