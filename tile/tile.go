// Package tile provides the common value types of the tile pipeline:
// tile metadata, viewports and packed RGBA colors.
package tile

// Meta describes a single tile of the source image. Position is in pixel
// coordinates of the source image, origin top-left. File is either an opaque
// relative filename of a PNG payload, or an 8-hex-digit RGBA color for a
// pure-color tile with no payload file.
type Meta struct {
	X, Y, W, H int
	File       string
}

// Overlaps reports whether the tile rectangle strictly intersects the
// viewport. Touching edges do not overlap.
func (m Meta) Overlaps(vp Viewport) bool {
	return !(m.X+m.W <= vp.X || m.Y+m.H <= vp.Y || m.X >= vp.X+vp.W || m.Y >= vp.Y+vp.H)
}

// PureColor returns the color encoded in the tile filename,
// or false for tiles backed by a payload file.
func (m Meta) PureColor() (Color, bool) {
	return ParseColor(m.File)
}

func (m Meta) IsPureColor() bool {
	_, ok := ParseColor(m.File)
	return ok
}

// Viewport is the rectangle a client wants assembled, in the same
// coordinate space as Meta.
type Viewport struct {
	X, Y, W, H int
}

func (vp Viewport) Valid() bool {
	return vp.W > 0 && vp.H > 0
}

// Expand grows the viewport by dx pixels on the left and right and
// dy pixels on the top and bottom.
func (vp Viewport) Expand(dx, dy int) Viewport {
	return Viewport{X: vp.X - dx, Y: vp.Y - dy, W: vp.W + 2*dx, H: vp.H + 2*dy}
}

// FlipY converts a bottom-left origin y coordinate to the internal top-left
// origin for a viewport of the given height, clamping at zero.
func FlipY(mapHeight, y, viewportHeight int) int {
	return max(mapHeight-y-viewportHeight, 0)
}
