package manifest

import (
	"cmp"
	"slices"

	"github.com/eak1mov/go-tilemap/tile"
	"github.com/google/hilbert"
)

// SortHilbert reorders tiles along a Hilbert curve over the map extent so
// that spatially close tiles sit close together in the manifest.
// Ties keep their original order.
func (m *Manifest) SortHilbert() {
	side := 1
	for side < max(m.MapWidth, m.MapHeight) {
		side *= 2
	}

	h, err := hilbert.NewHilbert(side)
	if err != nil {
		return
	}

	keys := make(map[tile.Meta]int, len(m.Tiles))
	for _, t := range m.Tiles {
		x := max(0, min(t.X+t.W/2, side-1))
		y := max(0, min(t.Y+t.H/2, side-1))
		d, err := h.MapInverse(x, y)
		if err != nil {
			continue
		}
		keys[t] = d
	}

	slices.SortStableFunc(m.Tiles, func(a, b tile.Meta) int {
		return cmp.Compare(keys[a], keys[b])
	})
}
