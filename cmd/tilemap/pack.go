package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"

	"github.com/eak1mov/go-tilemap/store"
)

type packCmd struct {
	inputDir   string
	outputPath string
	verbose    bool
}

func (c *packCmd) Name() string     { return "pack" }
func (c *packCmd) Synopsis() string { return "pack a tile directory into a single store file" }
func (c *packCmd) Usage() string {
	return "tilemap pack -i <dir> -o <map.tiles>\n"
}
func (c *packCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputDir, "i", "data/tiles", "Tile directory")
	f.StringVar(&c.outputPath, "o", "map.tiles", "Output store path")
	f.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

func (c *packCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	var bar *progressbar.ProgressBar
	err := store.Pack(c.inputDir, c.outputPath, store.PackParams{
		Logger: newLogger(c.verbose),
		Progress: func(done, total int) {
			if bar == nil {
				bar = progressbar.New(total)
			}
			bar.Set(done)
		},
	})
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
