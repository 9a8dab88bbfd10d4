package spatial

import (
	"github.com/eak1mov/go-tilemap/manifest"
	"github.com/eak1mov/go-tilemap/tile"
)

type QuadTreeConfig struct {
	MaxDepth        int // default 8
	MaxTilesPerNode int // default 16
}

// QuadTree is an Index that prunes whole map regions during queries.
// Every tile is stored at the deepest node that fully contains it, so a
// query visits each matching tile exactly once.
type QuadTree struct {
	man  *manifest.Manifest
	cfg  QuadTreeConfig
	root *qtNode
}

type qtNode struct {
	x, y, w, h int
	children   []*qtNode // nil for leaves, four entries otherwise
	tiles      []int     // manifest indices held at this node
}

func NewQuadTree(man *manifest.Manifest, cfg QuadTreeConfig) *QuadTree {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 8
	}
	if cfg.MaxTilesPerNode <= 0 {
		cfg.MaxTilesPerNode = 16
	}

	qt := &QuadTree{man: man, cfg: cfg}
	if len(man.Tiles) == 0 {
		return qt
	}

	qt.root = &qtNode{x: 0, y: 0, w: man.MapWidth, h: man.MapHeight}
	for i := range man.Tiles {
		qt.insert(qt.root, i, 0)
	}
	return qt
}

func (qt *QuadTree) Query(vp tile.Viewport) []tile.Meta {
	var out []tile.Meta
	if qt.root != nil {
		qt.query(qt.root, vp, &out)
	}
	return out
}

func (qt *QuadTree) MapWidth() int  { return qt.man.MapWidth }
func (qt *QuadTree) MapHeight() int { return qt.man.MapHeight }

func (qt *QuadTree) insert(n *qtNode, idx, depth int) {
	m := qt.man.Tiles[idx]
	if !n.intersects(m) {
		return
	}

	if n.children == nil {
		n.tiles = append(n.tiles, idx)

		if len(n.tiles) > qt.cfg.MaxTilesPerNode && depth < qt.cfg.MaxDepth && (n.w > 1 || n.h > 1) {
			n.subdivide()
			qt.redistribute(n, depth)
		}
		return
	}

	for _, c := range n.children {
		if c.contains(qt.man.Tiles[idx]) {
			qt.insert(c, idx, depth+1)
			return
		}
	}
	// straddles child boundaries, keep it here
	n.tiles = append(n.tiles, idx)
}

// redistribute pushes down every tile that is fully contained by a single
// child; tiles straddling child boundaries stay at this node.
func (qt *QuadTree) redistribute(n *qtNode, depth int) {
	held := n.tiles
	n.tiles = nil

	for _, idx := range held {
		moved := false
		for _, c := range n.children {
			if c.contains(qt.man.Tiles[idx]) {
				qt.insert(c, idx, depth+1)
				moved = true
				break
			}
		}
		if !moved {
			n.tiles = append(n.tiles, idx)
		}
	}
}

func (qt *QuadTree) query(n *qtNode, vp tile.Viewport, out *[]tile.Meta) {
	if !n.intersectsViewport(vp) {
		return
	}

	for _, idx := range n.tiles {
		if m := qt.man.Tiles[idx]; m.Overlaps(vp) {
			*out = append(*out, m)
		}
	}

	for _, c := range n.children {
		qt.query(c, vp, out)
	}
}

func (n *qtNode) subdivide() {
	hw, hh := n.w/2, n.h/2
	n.children = []*qtNode{
		{x: n.x, y: n.y, w: hw, h: hh},
		{x: n.x + hw, y: n.y, w: n.w - hw, h: hh},
		{x: n.x, y: n.y + hh, w: hw, h: n.h - hh},
		{x: n.x + hw, y: n.y + hh, w: n.w - hw, h: n.h - hh},
	}
}

func (n *qtNode) intersects(m tile.Meta) bool {
	return !(m.X+m.W <= n.x || m.Y+m.H <= n.y || m.X >= n.x+n.w || m.Y >= n.y+n.h)
}

func (n *qtNode) intersectsViewport(vp tile.Viewport) bool {
	return !(n.x+n.w <= vp.X || n.y+n.h <= vp.Y || n.x >= vp.X+vp.W || n.y >= vp.Y+vp.H)
}

func (n *qtNode) contains(m tile.Meta) bool {
	return m.X >= n.x && m.Y >= n.y && m.X+m.W <= n.x+n.w && m.Y+m.H <= n.y+n.h
}

// Stats summarizes the tree shape, mostly for tooling output.
type Stats struct {
	Nodes    int
	Leaves   int
	MaxDepth int
	Tiles    int
}

func (qt *QuadTree) Stats() Stats {
	var s Stats
	if qt.root != nil {
		collectStats(qt.root, 0, &s)
	}
	return s
}

func collectStats(n *qtNode, depth int, s *Stats) {
	s.Nodes++
	s.MaxDepth = max(s.MaxDepth, depth)
	s.Tiles += len(n.tiles)
	if n.children == nil {
		s.Leaves++
		return
	}
	for _, c := range n.children {
		collectStats(c, depth+1, s)
	}
}
