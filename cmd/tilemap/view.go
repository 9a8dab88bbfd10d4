package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"

	"github.com/eak1mov/go-tilemap/assemble"
	"github.com/eak1mov/go-tilemap/cache"
	"github.com/eak1mov/go-tilemap/loader"
	"github.com/eak1mov/go-tilemap/manifest"
	"github.com/eak1mov/go-tilemap/spatial"
	"github.com/eak1mov/go-tilemap/tile"
)

type viewCmd struct {
	resourceDir string
	position    string
	size        string
	outputPath  string
	configPath  string
	quadtree    bool
	noCache     bool
	noAsync     bool
	stats       bool
	verbose     bool
}

// viewTuning is the optional TOML runtime configuration. Zero values
// fall back to the package defaults.
type viewTuning struct {
	Cache struct {
		MaxBytes int64 `toml:"max_bytes"`
		MaxTiles int   `toml:"max_tiles"`
	} `toml:"cache"`
	Loader struct {
		Workers         int `toml:"workers"`
		MaxQueue        int `toml:"max_queue"`
		DefaultPriority int `toml:"default_priority"`
	} `toml:"loader"`
	Assembler struct {
		LoadTimeoutMS int `toml:"load_timeout_ms"`
	} `toml:"assembler"`
}

func (c *viewCmd) Name() string     { return "view" }
func (c *viewCmd) Synopsis() string { return "assemble a viewport from a tile directory" }
func (c *viewCmd) Usage() string {
	return "tilemap view [-i <dir>] -p <x,y> -s <w,h> [-o <out.png>] [-q] [-no-cache] [-no-async] [-stats]\n"
}
func (c *viewCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.resourceDir, "i", "data/tiles", "Tile directory")
	f.StringVar(&c.position, "p", "0,0", "Viewport position x,y (bottom-left origin)")
	f.StringVar(&c.size, "s", "256,256", "Viewport size w,h or WxH")
	f.StringVar(&c.outputPath, "o", "", "Output PNG path; omit for a hex dump on stdout")
	f.StringVar(&c.configPath, "config", "", "TOML tuning file")
	f.BoolVar(&c.quadtree, "q", false, "Query tiles through a quadtree index")
	f.BoolVar(&c.noCache, "no-cache", false, "Disable the tile cache")
	f.BoolVar(&c.noAsync, "no-async", false, "Load tiles synchronously")
	f.BoolVar(&c.stats, "stats", false, "Print assembly statistics to stderr")
	f.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

func parsePair(s string) (int, int, bool) {
	var a, b int
	if n, err := fmt.Sscanf(s, "%d,%d", &a, &b); err == nil && n == 2 {
		return a, b, true
	}
	if n, err := fmt.Sscanf(s, "%dx%d", &a, &b); err == nil && n == 2 {
		return a, b, true
	}
	return 0, 0, false
}

func (c *viewCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) (status subcommands.ExitStatus) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("panic:", r)
			status = subcommands.ExitStatus(3)
		}
	}()

	px, py, ok := parsePair(c.position)
	if !ok {
		log.Printf("invalid position: %q", c.position)
		return subcommands.ExitUsageError
	}
	sw, sh, ok := parsePair(c.size)
	if !ok || sw <= 0 || sh <= 0 {
		log.Printf("invalid size: %q", c.size)
		return subcommands.ExitUsageError
	}

	var tuning viewTuning
	if c.configPath != "" {
		if _, err := toml.DecodeFile(c.configPath, &tuning); err != nil {
			log.Println(err)
			return subcommands.ExitUsageError
		}
	}

	man, err := manifest.Load(filepath.Join(c.resourceDir, manifest.DefaultName))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	var idx spatial.Index = spatial.NewLinear(man)
	if c.quadtree {
		idx = spatial.NewQuadTree(man, spatial.QuadTreeConfig{})
	}

	vp := tile.Viewport{
		X: px,
		Y: tile.FlipY(man.MapHeight, py, sh),
		W: sw,
		H: sh,
	}

	logger := newLogger(c.verbose)

	tileCache := cache.New(cache.Config{
		MaxBytes: tuning.Cache.MaxBytes,
		MaxTiles: tuning.Cache.MaxTiles,
	})

	loaderCfg := loader.DefaultConfig()
	loaderCfg.Logger = logger
	loaderCfg.EnablePreloading = !c.noAsync
	if tuning.Loader.Workers > 0 {
		loaderCfg.Workers = tuning.Loader.Workers
	}
	if tuning.Loader.MaxQueue > 0 {
		loaderCfg.MaxQueue = tuning.Loader.MaxQueue
	}
	if tuning.Loader.DefaultPriority > 0 {
		loaderCfg.DefaultPriority = tuning.Loader.DefaultPriority
	}
	ld := loader.New(tileCache, c.resourceDir, loaderCfg)
	if !c.noAsync {
		ld.Start()
		defer ld.Stop()
	}

	asmCfg := assemble.DefaultConfig()
	asmCfg.Logger = logger
	asmCfg.EnableCaching = !c.noCache
	asmCfg.EnableAsync = !c.noAsync
	asmCfg.EnablePreloading = !c.noAsync
	if tuning.Assembler.LoadTimeoutMS > 0 {
		asmCfg.LoadTimeout = time.Duration(tuning.Assembler.LoadTimeoutMS) * time.Millisecond
	}
	asm := assemble.New(tileCache, ld, c.resourceDir, asmCfg)

	if c.outputPath != "" {
		err = asm.Assemble(idx, vp, c.outputPath)
	} else {
		var hex string
		hex, err = asm.AssembleToHex(idx, vp)
		if err == nil {
			fmt.Println(hex)
		}
	}

	if c.stats {
		c.printStats(asm, tileCache, ld)
	}

	switch {
	case errors.Is(err, assemble.ErrNoTiles):
		log.Println(err)
		return subcommands.ExitFailure
	case err != nil:
		log.Println(err)
		return subcommands.ExitStatus(2)
	}
	return subcommands.ExitSuccess
}

func (c *viewCmd) printStats(asm *assemble.Assembler, tc *cache.Cache, ld *loader.Loader) {
	as := asm.LastStats()
	fmt.Fprintf(os.Stderr, "assemble: %d tiles (%d cached, %d async, %d sync, %d failed), %.0f%% cache hits, %v\n",
		as.TotalTiles, as.CachedTiles, as.AsyncLoadedTiles, as.SyncLoadedTiles, as.FailedTiles,
		as.CacheHitRate()*100, as.Duration.Round(time.Microsecond))

	cs := tc.Stats()
	fmt.Fprintf(os.Stderr, "cache: %d tiles, %s, %d hits, %d misses, %d evictions\n",
		cs.TotalTiles, humanize.IBytes(uint64(cs.TotalBytes)), cs.Hits, cs.Misses, cs.Evictions)

	ls := ld.Stats()
	fmt.Fprintf(os.Stderr, "loader: %d requests (%d completed, %d failed, %d cache hits), %d queued, %.0f%% success\n",
		ls.TotalRequests, ls.CompletedLoads, ls.FailedLoads, ls.CacheHits,
		ls.QueuedRequests, ls.SuccessRate()*100)
}
