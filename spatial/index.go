// Package spatial answers "which tiles overlap this viewport" queries over
// a tile manifest.
package spatial

import (
	"github.com/eak1mov/go-tilemap/manifest"
	"github.com/eak1mov/go-tilemap/tile"
)

// Index reports the tiles overlapping a viewport. Intersection is strict:
// touching edges do not overlap. Implementations are immutable after
// construction and safe for concurrent readers.
type Index interface {
	// Query returns every tile whose rectangle intersects the viewport,
	// in a traversal order that is stable for identical inputs.
	Query(vp tile.Viewport) []tile.Meta

	MapWidth() int
	MapHeight() int
}

// Linear is the straightforward Index that scans the whole tile list.
type Linear struct {
	man *manifest.Manifest
}

func NewLinear(man *manifest.Manifest) *Linear {
	return &Linear{man: man}
}

func (l *Linear) Query(vp tile.Viewport) []tile.Meta {
	var out []tile.Meta
	for _, m := range l.man.Tiles {
		if m.Overlaps(vp) {
			out = append(out, m)
		}
	}
	return out
}

func (l *Linear) MapWidth() int  { return l.man.MapWidth }
func (l *Linear) MapHeight() int { return l.man.MapHeight }
