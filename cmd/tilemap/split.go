package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/eak1mov/go-tilemap/manifest"
	"github.com/eak1mov/go-tilemap/raster"
	"github.com/eak1mov/go-tilemap/split"
)

type splitCmd struct {
	inputPath string
	outputDir string
	maxDepth  int
	minTile   int
	tolerance int
	hilbert   bool
	verbose   bool
}

func (c *splitCmd) Name() string     { return "split" }
func (c *splitCmd) Synopsis() string { return "split an image into quadtree tiles" }
func (c *splitCmd) Usage() string {
	return "tilemap split -i <image.png> [-o <dir>] [-depth <n>] [-min-tile <n>] [-tolerance <n>] [-hilbert]\n"
}
func (c *splitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input image path")
	f.StringVar(&c.outputDir, "o", "data/tiles", "Output tile directory")
	f.IntVar(&c.maxDepth, "depth", 8, "Maximum quadtree depth")
	f.IntVar(&c.minTile, "min-tile", 4, "Minimum tile side in pixels")
	f.IntVar(&c.tolerance, "tolerance", 0, "Per-channel color tolerance")
	f.BoolVar(&c.hilbert, "hilbert", false, "Order the manifest along a Hilbert curve")
	f.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

func (c *splitCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	img, err := raster.Decode(c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	if err := os.RemoveAll(c.outputDir); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	tiles, err := split.Split(img, c.outputDir, split.Config{
		MaxDepth:       c.maxDepth,
		MinTileSize:    c.minTile,
		ColorTolerance: c.tolerance,
		Logger:         newLogger(c.verbose),
	})
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	man := manifest.New(tiles)
	if c.hilbert {
		man.SortHilbert()
	}
	if err := man.Save(filepath.Join(c.outputDir, manifest.DefaultName)); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	pure := 0
	for _, m := range man.Tiles {
		if m.IsPureColor() {
			pure++
		}
	}
	fmt.Printf("%d tiles (%d pure color) over %dx%d -> %s\n",
		len(man.Tiles), pure, man.MapWidth, man.MapHeight, c.outputDir)

	return subcommands.ExitSuccess
}
