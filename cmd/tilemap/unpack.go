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

type unpackCmd struct {
	inputPath string
	outputDir string
	verbose   bool
}

func (c *unpackCmd) Name() string     { return "unpack" }
func (c *unpackCmd) Synopsis() string { return "restore a tile directory from a store file" }
func (c *unpackCmd) Usage() string {
	return "tilemap unpack -i <map.tiles> -o <dir>\n"
}
func (c *unpackCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "map.tiles", "Input store path")
	f.StringVar(&c.outputDir, "o", "data/tiles", "Output tile directory")
	f.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

func (c *unpackCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	var bar *progressbar.ProgressBar
	err := store.Unpack(c.inputPath, c.outputDir, store.PackParams{
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
