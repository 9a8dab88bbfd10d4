package assemble_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eak1mov/go-tilemap/assemble"
	"github.com/eak1mov/go-tilemap/cache"
	"github.com/eak1mov/go-tilemap/internal"
	"github.com/eak1mov/go-tilemap/loader"
	"github.com/eak1mov/go-tilemap/manifest"
	"github.com/eak1mov/go-tilemap/raster"
	"github.com/eak1mov/go-tilemap/spatial"
	"github.com/eak1mov/go-tilemap/tile"
)

func syncConfig() assemble.Config {
	cfg := assemble.DefaultConfig()
	cfg.EnableAsync = false
	cfg.EnablePreloading = false
	return cfg
}

// A single pure-color tile covering the whole map renders to a solid
// canvas with no tile files on disk.
func TestAssemblePureColorOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	man := manifest.New([]tile.Meta{{X: 0, Y: 0, W: 64, H: 64, File: "FF0000FF"}})
	idx := spatial.NewLinear(man)

	c := cache.New(cache.Config{})
	a := assemble.New(c, nil, dir, syncConfig())

	out := filepath.Join(dir, "out.png")
	if err := a.Assemble(idx, tile.Viewport{X: 0, Y: 0, W: 64, H: 64}, out); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	img, err := raster.Decode(out)
	if err != nil {
		t.Fatalf("Decode(out) failed: %v", err)
	}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if got, want := img.At(x, y), tile.RGBA(255, 0, 0, 255); got != want {
				t.Fatalf("pixel (%d,%d) = %s, want = %s", x, y, got.Hex(), want.Hex())
			}
		}
	}

	s := a.LastStats()
	if got, want := s.TotalTiles, 1; got != want {
		t.Errorf("LastStats().TotalTiles = %v, want = %v", got, want)
	}
	if got, want := s.SyncLoadedTiles, 1; got != want {
		t.Errorf("LastStats().SyncLoadedTiles = %v, want = %v", got, want)
	}
}

func TestAssembleDecodesImageTiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blue := tile.RGBA(0, 0, 255, 255)
	if err := internal.SolidImage(32, 32, blue).Encode(filepath.Join(dir, "qtile_0_0_32x32.png")); err != nil {
		t.Fatal(err)
	}

	man := manifest.New([]tile.Meta{{X: 0, Y: 0, W: 32, H: 32, File: "qtile_0_0_32x32.png"}})
	idx := spatial.NewLinear(man)

	c := cache.New(cache.Config{})
	a := assemble.New(c, nil, dir, syncConfig())

	out := filepath.Join(dir, "out.png")
	if err := a.Assemble(idx, tile.Viewport{X: 0, Y: 0, W: 32, H: 32}, out); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	img, err := raster.Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.At(16, 16); got != blue {
		t.Errorf("pixel (16,16) = %s, want = %s", got.Hex(), blue.Hex())
	}

	// write-through: the decoded tile must now be cached
	if _, ok := c.Get("qtile_0_0_32x32.png"); !ok {
		t.Error("decoded tile missing from cache after assemble")
	}
}

func TestAssembleAsyncMatchesSync(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := internal.QuadrantImage(32, 32,
		tile.RGBA(255, 0, 0, 255), tile.RGBA(0, 255, 0, 255),
		tile.RGBA(0, 0, 255, 255), tile.RGBA(255, 255, 0, 255),
	).Encode(filepath.Join(dir, "qtile_0_0_32x32.png")); err != nil {
		t.Fatal(err)
	}

	man := manifest.New([]tile.Meta{
		{X: 0, Y: 0, W: 32, H: 32, File: "qtile_0_0_32x32.png"},
		{X: 32, Y: 0, W: 32, H: 32, File: "00FF00FF"},
	})
	idx := spatial.NewLinear(man)
	vp := tile.Viewport{X: 0, Y: 0, W: 64, H: 32}

	syncCache := cache.New(cache.Config{})
	syncA := assemble.New(syncCache, nil, dir, syncConfig())
	wantHex, err := syncA.AssembleToHex(idx, vp)
	if err != nil {
		t.Fatalf("sync AssembleToHex failed: %v", err)
	}

	asyncCache := cache.New(cache.Config{})
	l := loader.New(asyncCache, dir, loader.DefaultConfig())
	l.Start()
	defer l.Stop()

	cfg := assemble.DefaultConfig()
	cfg.EnablePreloading = false
	asyncA := assemble.New(asyncCache, l, dir, cfg)
	gotHex, err := asyncA.AssembleToHex(idx, vp)
	if err != nil {
		t.Fatalf("async AssembleToHex failed: %v", err)
	}

	if gotHex != wantHex {
		t.Error("async and sync renders differ")
	}

	s := asyncA.LastStats()
	if got, want := s.AsyncLoadedTiles, 2; got != want {
		t.Errorf("LastStats().AsyncLoadedTiles = %v, want = %v", got, want)
	}
}

func TestAssembleToHexFormat(t *testing.T) {
	t.Parallel()

	man := manifest.New([]tile.Meta{{X: 0, Y: 0, W: 2, H: 2, File: "FF0000FF"}})
	idx := spatial.NewLinear(man)

	a := assemble.New(cache.New(cache.Config{}), nil, t.TempDir(), syncConfig())
	got, err := a.AssembleToHex(idx, tile.Viewport{X: 0, Y: 0, W: 2, H: 2})
	if err != nil {
		t.Fatalf("AssembleToHex failed: %v", err)
	}

	want := "0xFF0000FF,0xFF0000FF,0xFF0000FF,0xFF0000FF"
	if got != want {
		t.Errorf("AssembleToHex = %q, want = %q", got, want)
	}
}

func TestAssembleUncoveredRegionStaysTransparent(t *testing.T) {
	t.Parallel()

	man := manifest.New([]tile.Meta{{X: 0, Y: 0, W: 16, H: 16, File: "FFFFFFFF"}})
	idx := spatial.NewLinear(man)

	a := assemble.New(cache.New(cache.Config{}), nil, t.TempDir(), syncConfig())
	hex, err := a.AssembleToHex(idx, tile.Viewport{X: 0, Y: 0, W: 32, H: 1})
	if err != nil {
		t.Fatal(err)
	}

	words := strings.Split(hex, ",")
	if got, want := len(words), 32; got != want {
		t.Fatalf("len(words) = %v, want = %v", got, want)
	}
	if words[0] != "0xFFFFFFFF" {
		t.Errorf("covered pixel = %s, want = 0xFFFFFFFF", words[0])
	}
	if words[31] != "0x00000000" {
		t.Errorf("uncovered pixel = %s, want = 0x00000000", words[31])
	}
}

func TestAssembleEmptyViewportFails(t *testing.T) {
	t.Parallel()

	man := manifest.New([]tile.Meta{{X: 0, Y: 0, W: 16, H: 16, File: "FF0000FF"}})
	idx := spatial.NewLinear(man)

	a := assemble.New(cache.New(cache.Config{}), nil, t.TempDir(), syncConfig())
	err := a.Assemble(idx, tile.Viewport{X: 100, Y: 100, W: 16, H: 16}, filepath.Join(t.TempDir(), "out.png"))
	if !errors.Is(err, assemble.ErrNoTiles) {
		t.Errorf("Assemble over empty region = %v, want ErrNoTiles", err)
	}
}

// A missing tile file leaves its region transparent; the render still
// succeeds and the failure is counted.
func TestAssembleMissingTileIsTransparent(t *testing.T) {
	t.Parallel()

	man := manifest.New([]tile.Meta{
		{X: 0, Y: 0, W: 1, H: 1, File: "FF0000FF"},
		{X: 1, Y: 0, W: 1, H: 1, File: "qtile_1_0_1x1.png"},
	})
	idx := spatial.NewLinear(man)

	a := assemble.New(cache.New(cache.Config{}), nil, t.TempDir(), syncConfig())
	hex, err := a.AssembleToHex(idx, tile.Viewport{X: 0, Y: 0, W: 2, H: 1})
	if err != nil {
		t.Fatalf("AssembleToHex failed: %v", err)
	}
	if got, want := hex, "0xFF0000FF,0x00000000"; got != want {
		t.Errorf("AssembleToHex = %q, want = %q", got, want)
	}
	if got, want := a.LastStats().FailedTiles, 1; got != want {
		t.Errorf("LastStats().FailedTiles = %v, want = %v", got, want)
	}
}

func TestPreloadNextViewport(t *testing.T) {
	t.Parallel()

	man := manifest.New(internal.GridTiles(4, 4, 32, 32))
	idx := spatial.NewLinear(man)

	c := cache.New(cache.Config{})
	l := loader.New(c, t.TempDir(), loader.DefaultConfig())
	// loader deliberately not started so the queue can be inspected

	a := assemble.New(c, l, t.TempDir(), assemble.DefaultConfig())
	a.PreloadNextViewport(idx, tile.Viewport{X: 64, Y: 64, W: 64, H: 64})

	if got, want := l.QueueSize(), 4; got != want {
		t.Errorf("QueueSize() = %v, want = %v", got, want)
	}
	if !l.IsLoading("qtile_64_64_32x32.png") {
		t.Error("expected qtile_64_64_32x32.png to be queued")
	}
}

func TestEvictOutOfViewportTiles(t *testing.T) {
	t.Parallel()

	man := manifest.New(internal.GridTiles(2, 2, 32, 32))
	idx := spatial.NewLinear(man)

	c := cache.New(cache.Config{})
	for _, m := range man.Tiles {
		c.Put(m.File, make([]byte, 16), 32, 32, 4)
	}

	a := assemble.New(c, nil, t.TempDir(), syncConfig())
	a.EvictOutOfViewportTiles(tile.Viewport{X: 0, Y: 0, W: 32, H: 32}, idx)

	if got, want := c.TileCount(), 1; got != want {
		t.Errorf("TileCount() = %v, want = %v", got, want)
	}
	if _, ok := c.Get("qtile_0_0_32x32.png"); !ok {
		t.Error("visible tile was evicted")
	}
}

// Two translucent layers over one pixel must composite with truncating
// float math.
func TestAssembleAlphaCompositing(t *testing.T) {
	t.Parallel()

	man := manifest.New([]tile.Meta{
		{X: 0, Y: 0, W: 1, H: 1, File: "C8000080"},
		{X: 0, Y: 0, W: 1, H: 1, File: "0000C880"},
	})
	idx := spatial.NewLinear(man)

	a := assemble.New(cache.New(cache.Config{}), nil, t.TempDir(), syncConfig())
	got, err := a.AssembleToHex(idx, tile.Viewport{X: 0, Y: 0, W: 1, H: 1})
	if err != nil {
		t.Fatal(err)
	}

	// layer one over transparent: (100, 0, 0, 128)
	// layer two at alpha 128/255: r = 100*(1-a) = 49.80 -> 49,
	// b = 200*a = 100.39 -> 100, a = min(255, 128 + 128*(1-a)) = 191.74 -> 191
	if want := "0x310064BF"; got != want {
		t.Errorf("AssembleToHex = %q, want = %q", got, want)
	}
}
