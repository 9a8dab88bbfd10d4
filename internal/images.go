// Package internal provides shared test fixtures for the tilemap packages.
package internal

import (
	"fmt"

	"github.com/eak1mov/go-tilemap/raster"
	"github.com/eak1mov/go-tilemap/tile"
)

// SolidImage returns a w-by-h image with every pixel set to c.
func SolidImage(w, h int, c tile.Color) *raster.Image {
	img := raster.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// QuadrantImage returns a w-by-h image split into four solid quadrants.
func QuadrantImage(w, h int, topLeft, topRight, bottomLeft, bottomRight tile.Color) *raster.Image {
	img := raster.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case x < w/2 && y < h/2:
				img.Set(x, y, topLeft)
			case y < h/2:
				img.Set(x, y, topRight)
			case x < w/2:
				img.Set(x, y, bottomLeft)
			default:
				img.Set(x, y, bottomRight)
			}
		}
	}
	return img
}

// GridTiles returns a cols-by-rows grid of adjacent image tiles
// of the given size, named the way the splitter names them.
func GridTiles(cols, rows, tileW, tileH int) []tile.Meta {
	var tiles []tile.Meta
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x := col * tileW
			y := row * tileH
			tiles = append(tiles, tile.Meta{
				X: x, Y: y, W: tileW, H: tileH,
				File: fmt.Sprintf("qtile_%d_%d_%dx%d.png", x, y, tileW, tileH),
			})
		}
	}
	return tiles
}
