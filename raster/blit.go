package raster

import (
	"math"

	"github.com/eak1mov/go-tilemap/tile"
)

// Blit composites src, an sw-by-sh RGBA buffer, onto the image at
// (dstX, dstY) with the over operator. Source pixels falling outside the
// image are skipped.
func (img *Image) Blit(src []byte, sw, sh, dstX, dstY int) {
	for y := 0; y < sh; y++ {
		if dstY+y < 0 || dstY+y >= img.H {
			continue
		}
		srcRow := src[y*sw*4:]
		dstRow := img.Pix[(dstY+y)*img.W*4:]
		for x := 0; x < sw; x++ {
			if dstX+x < 0 || dstX+x >= img.W {
				continue
			}
			s := srcRow[x*4 : x*4+4]
			over(dstRow[(dstX+x)*4:(dstX+x)*4+4], s[0], s[1], s[2], s[3])
		}
	}
}

// BlitColor composites a w-by-h solid-color rectangle onto the image at
// (dstX, dstY) with the over operator.
func (img *Image) BlitColor(c tile.Color, w, h, dstX, dstY int) {
	r, g, b, a := c.R(), c.G(), c.B(), c.A()
	for y := 0; y < h; y++ {
		if dstY+y < 0 || dstY+y >= img.H {
			continue
		}
		dstRow := img.Pix[(dstY+y)*img.W*4:]
		for x := 0; x < w; x++ {
			if dstX+x < 0 || dstX+x >= img.W {
				continue
			}
			over(dstRow[(dstX+x)*4:(dstX+x)*4+4], r, g, b, a)
		}
	}
}

// Channel math is floating point, truncated to bytes.
func over(dst []byte, r, g, b, a byte) {
	alpha := float64(a) / 255
	dst[0] = byte(float64(r)*alpha + float64(dst[0])*(1-alpha))
	dst[1] = byte(float64(g)*alpha + float64(dst[1])*(1-alpha))
	dst[2] = byte(float64(b)*alpha + float64(dst[2])*(1-alpha))
	dst[3] = byte(math.Min(255, float64(a)+float64(dst[3])*(1-alpha)))
}
