// Package split subdivides a raster image into a quadtree of tiles.
// Uniform regions become metadata-only color tiles; mixed regions are
// written to disk as PNG files.
package split

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-tilemap/raster"
	"github.com/eak1mov/go-tilemap/tile"
)

type Config struct {
	MaxDepth       int // default 8
	MinTileSize    int // default 4
	ColorTolerance int // 0 is exact equality
	Logger         *slog.Logger
}

type node struct {
	x, y, w, h int
	children   []*node
	uniform    bool
	color      tile.Color
}

// Split subdivides img and writes mixed-color tiles into outDir, which
// is created if needed. A failed tile write is logged and skipped; the
// returned metadata covers the tiles that succeeded.
func Split(img *raster.Image, outDir string, cfg Config) ([]tile.Meta, error) {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 8
	}
	if cfg.MinTileSize <= 0 {
		cfg.MinTileSize = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("tilemap: create output dir: %w", err)
	}

	s := &splitter{img: img, outDir: outDir, cfg: cfg, logger: logger}
	root := &node{w: img.W, h: img.H}
	s.subdivide(root, 0)

	var tiles []tile.Meta
	s.collect(root, &tiles)

	logger.Debug("tilemap: split done", "tiles", len(tiles))
	return tiles, nil
}

type splitter struct {
	img    *raster.Image
	outDir string
	cfg    Config
	logger *slog.Logger
}

func (s *splitter) subdivide(n *node, depth int) {
	if n.x >= s.img.W || n.y >= s.img.H {
		return
	}

	aw := min(n.w, s.img.W-n.x)
	ah := min(n.h, s.img.H-n.y)

	// uniformity is tested on the clipped region only
	if col, ok := s.img.UniformColor(n.x, n.y, aw, ah, s.cfg.ColorTolerance); ok {
		n.uniform = true
		n.color = col
		return
	}

	if depth >= s.cfg.MaxDepth || aw <= s.cfg.MinTileSize || ah <= s.cfg.MinTileSize {
		return
	}
	if aw <= 1 || ah <= 1 {
		return
	}

	hw, hh := n.w/2, n.h/2
	if hw == 0 || hh == 0 {
		return
	}

	// children use the declared rectangle, clipping happens at collection
	n.children = []*node{
		{x: n.x, y: n.y, w: hw, h: hh},
		{x: n.x + hw, y: n.y, w: n.w - hw, h: hh},
		{x: n.x, y: n.y + hh, w: hw, h: n.h - hh},
		{x: n.x + hw, y: n.y + hh, w: n.w - hw, h: n.h - hh},
	}
	for _, c := range n.children {
		s.subdivide(c, depth+1)
	}
}

func (s *splitter) collect(n *node, tiles *[]tile.Meta) {
	if n.children != nil {
		for _, c := range n.children {
			s.collect(c, tiles)
		}
		return
	}

	if n.x >= s.img.W || n.y >= s.img.H {
		return
	}
	aw := min(n.w, s.img.W-n.x)
	ah := min(n.h, s.img.H-n.y)
	if aw <= 0 || ah <= 0 {
		return
	}

	if n.uniform {
		*tiles = append(*tiles, tile.Meta{X: n.x, Y: n.y, W: aw, H: ah, File: n.color.Hex()})
		return
	}

	name := fmt.Sprintf("qtile_%d_%d_%dx%d.png", n.x, n.y, n.w, n.h)
	if err := s.writeTile(n, name); err != nil {
		s.logger.Warn("tilemap: tile write failed", "tile", name, "error", err)
		return
	}
	// the PNG is padded to the declared size; w/h record the clipped
	// region actually backed by image pixels
	*tiles = append(*tiles, tile.Meta{X: n.x, Y: n.y, W: aw, H: ah, File: name})
}

// writeTile copies the node's declared rectangle into a fresh buffer,
// leaving pixels past the image bounds transparent, and encodes it.
func (s *splitter) writeTile(n *node, name string) error {
	out := raster.New(n.w, n.h)
	for dy := 0; dy < n.h; dy++ {
		srcY := n.y + dy
		if srcY >= s.img.H {
			break
		}
		for dx := 0; dx < n.w; dx++ {
			srcX := n.x + dx
			if srcX >= s.img.W {
				break
			}
			copy(out.Pix[(dy*n.w+dx)*4:], s.img.Pix[(srcY*s.img.W+srcX)*4:(srcY*s.img.W+srcX)*4+4])
		}
	}
	return out.Encode(filepath.Join(s.outDir, name))
}
