// Package assemble renders viewports: it queries the spatial index,
// resolves each tile through the cache and loader, and composites the
// results onto an RGBA canvas for PNG or hex output.
package assemble

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eak1mov/go-tilemap/cache"
	"github.com/eak1mov/go-tilemap/loader"
	"github.com/eak1mov/go-tilemap/raster"
	"github.com/eak1mov/go-tilemap/spatial"
	"github.com/eak1mov/go-tilemap/tile"
)

// ErrNoTiles is returned when the index reports nothing under the
// requested viewport.
var ErrNoTiles = errors.New("tilemap: no tiles overlap viewport")

type Config struct {
	EnableCaching    bool
	EnableAsync      bool
	EnablePreloading bool
	LoadTimeout      time.Duration // per-tile wait on async loads, default 5s
	Logger           *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		EnableCaching:    true,
		EnableAsync:      true,
		EnablePreloading: true,
		LoadTimeout:      5 * time.Second,
	}
}

// Stats describes the most recent render.
type Stats struct {
	TotalTiles       int
	CachedTiles      int
	AsyncLoadedTiles int
	SyncLoadedTiles  int
	FailedTiles      int
	Duration         time.Duration
}

func (s Stats) CacheHitRate() float64 {
	if s.TotalTiles == 0 {
		return 0
	}
	return float64(s.CachedTiles) / float64(s.TotalTiles)
}

// Assembler composites viewport renders from a tile directory. Missing
// or broken tiles leave their region transparent rather than failing
// the whole render.
type Assembler struct {
	cfg    Config
	cache  *cache.Cache
	loader *loader.Loader
	dir    string
	logger *slog.Logger

	mu        sync.Mutex
	lastStats Stats
}

// New builds an assembler over c and l. l may be nil when cfg disables
// the async path; c may be nil when caching is disabled.
func New(c *cache.Cache, l *loader.Loader, dir string, cfg Config) *Assembler {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assembler{cfg: cfg, cache: c, loader: l, dir: dir, logger: logger}
}

// Assemble renders vp through idx and writes the canvas as PNG to
// outPath. On success, when preloading is enabled and a loader is set,
// the expanded surrounding viewport is preloaded.
func (a *Assembler) Assemble(idx spatial.Index, vp tile.Viewport, outPath string) error {
	start := time.Now()

	img, err := a.render(idx, vp)
	if err != nil {
		return err
	}
	if err := img.Encode(outPath); err != nil {
		return fmt.Errorf("tilemap: write viewport png: %w", err)
	}

	a.mu.Lock()
	a.lastStats.Duration = time.Since(start)
	stats := a.lastStats
	a.mu.Unlock()

	a.logger.Debug("tilemap: viewport assembled",
		"viewport", fmt.Sprintf("%dx%d", vp.W, vp.H),
		"tiles", stats.TotalTiles,
		"cache_hits", stats.CachedTiles,
		"duration", stats.Duration)

	if a.cfg.EnablePreloading && a.loader != nil {
		expanded := tile.Viewport{
			X: vp.X - vp.W/4,
			Y: vp.Y - vp.H/4,
			W: vp.W + vp.W/2,
			H: vp.H + vp.H/2,
		}
		a.loader.PreloadViewport(idx.Query(expanded), vp, 50)
	}
	return nil
}

// AssembleToHex renders vp and returns the canvas as comma-separated
// 0xRRGGBBAA words in row-major order.
func (a *Assembler) AssembleToHex(idx spatial.Index, vp tile.Viewport) (string, error) {
	start := time.Now()

	img, err := a.render(idx, vp)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.lastStats.Duration = time.Since(start)
	a.mu.Unlock()

	var b strings.Builder
	b.Grow(len(img.Pix)/4*11 - 1)
	for i := 0; i < len(img.Pix); i += 4 {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "0x%08X", binary.BigEndian.Uint32(img.Pix[i:i+4]))
	}
	return b.String(), nil
}

// PreloadNextViewport queues the tiles under next at priority 75.
func (a *Assembler) PreloadNextViewport(idx spatial.Index, next tile.Viewport) {
	if !a.cfg.EnablePreloading || a.loader == nil {
		return
	}
	a.loader.PreloadTiles(idx.Query(next), 75)
}

// PreloadByMovement preloads along the movement vector (dx, dy).
func (a *Assembler) PreloadByMovement(idx spatial.Index, current tile.Viewport, dx, dy int) {
	if !a.cfg.EnablePreloading || a.loader == nil {
		return
	}
	a.loader.PreloadByDirection(current, dx, dy, idx)
}

// EvictOutOfViewportTiles drops every cached tile that is not visible
// under vp.
func (a *Assembler) EvictOutOfViewportTiles(vp tile.Viewport, idx spatial.Index) {
	if a.cache == nil {
		return
	}
	visible := make(map[string]bool)
	for _, m := range idx.Query(vp) {
		visible[m.File] = true
	}
	a.cache.EvictOutOfViewport(visible)
}

func (a *Assembler) LastStats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastStats
}

// render runs the shared pipeline: query, resolve, composite. The
// returned canvas is vp.W by vp.H.
func (a *Assembler) render(idx spatial.Index, vp tile.Viewport) (*raster.Image, error) {
	var stats Stats
	defer func() {
		a.mu.Lock()
		a.lastStats = stats
		a.mu.Unlock()
	}()

	tiles := idx.Query(vp)
	if len(tiles) == 0 {
		return nil, ErrNoTiles
	}
	stats.TotalTiles = len(tiles)

	canvas := raster.New(vp.W, vp.H)

	// data[i] pairs with tiles[i]; nil marks a failed resolve
	data := make([]*cache.Tile, len(tiles))
	if a.cfg.EnableAsync && a.loader != nil {
		a.resolveAsync(tiles, data, &stats)
	} else {
		for i, m := range tiles {
			data[i] = a.resolveSync(m, &stats)
		}
	}

	for i, m := range tiles {
		d := data[i]
		if d == nil {
			continue
		}
		localX := m.X - vp.X
		localY := m.Y - vp.Y
		if d.IsPureColor {
			canvas.BlitColor(d.Color, d.Width, d.Height, localX, localY)
		} else {
			canvas.Blit(d.Pix, d.Width, d.Height, localX, localY)
		}
	}
	return canvas, nil
}

func (a *Assembler) resolveAsync(tiles []tile.Meta, data []*cache.Tile, stats *Stats) {
	futures := make(map[int]<-chan loader.Result)
	for i, m := range tiles {
		if a.cfg.EnableCaching && a.cache != nil {
			if t, ok := a.cache.Get(m.File); ok {
				data[i] = t
				stats.CachedTiles++
				continue
			}
		}
		futures[i] = a.loader.Load(m, 200)
	}

	for i, ch := range futures {
		select {
		case r := <-ch:
			if r.Status != loader.StatusCompleted {
				stats.FailedTiles++
				continue
			}
			data[i] = r.Tile
			if r.FromCache {
				stats.CachedTiles++
			} else {
				stats.AsyncLoadedTiles++
			}
		case <-time.After(a.cfg.LoadTimeout):
			a.logger.Warn("tilemap: tile load timed out", "tile", tiles[i].File)
			stats.FailedTiles++
		}
	}
}

func (a *Assembler) resolveSync(m tile.Meta, stats *Stats) *cache.Tile {
	if a.cfg.EnableCaching && a.cache != nil {
		if t, ok := a.cache.Get(m.File); ok {
			stats.CachedTiles++
			return t
		}
	}

	if col, ok := m.PureColor(); ok {
		if a.cfg.EnableCaching && a.cache != nil {
			a.cache.PutPureColor(m.File, col, m.W, m.H)
		}
		stats.SyncLoadedTiles++
		return &cache.Tile{
			ID: m.File, Width: m.W, Height: m.H, Channels: 4,
			IsPureColor: true, Color: col,
		}
	}

	img, err := raster.Decode(filepath.Join(a.dir, m.File))
	if err != nil {
		a.logger.Warn("tilemap: tile load failed", "tile", m.File, "error", err)
		stats.FailedTiles++
		return nil
	}
	if a.cfg.EnableCaching && a.cache != nil {
		a.cache.Put(m.File, img.Pix, img.W, img.H, 4)
	}
	stats.SyncLoadedTiles++
	return &cache.Tile{ID: m.File, Width: img.W, Height: img.H, Channels: 4, Pix: img.Pix}
}
