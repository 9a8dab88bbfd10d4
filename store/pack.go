package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/eak1mov/go-tilemap/manifest"
	"github.com/eak1mov/go-tilemap/tile"
)

// PackParams tune Pack and Unpack. The zero value is usable.
type PackParams struct {
	Logger   *slog.Logger
	Progress func(done, total int)
}

func (p *PackParams) normalize() {
	if p.Logger == nil {
		p.Logger = slog.New(slog.DiscardHandler)
	}
	if p.Progress == nil {
		p.Progress = func(int, int) {}
	}
}

// Pack reads the manifest and tile files under dir and writes them as
// one store file at outPath. Tile payloads are read in parallel.
func Pack(dir, outPath string, params PackParams) error {
	params.normalize()

	man, err := manifest.Load(filepath.Join(dir, manifest.DefaultName))
	if err != nil {
		return fmt.Errorf("tilemap: load manifest: %w", err)
	}

	payloads := make([][]byte, len(man.Tiles))
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for i, m := range man.Tiles {
		if m.IsPureColor() {
			continue
		}
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(dir, m.File))
			if err != nil {
				return fmt.Errorf("tilemap: read tile %s: %w", m.File, err)
			}
			payloads[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w, err := NewWriter(outPath,
		WithLogger(params.Logger),
		WithMetadata(map[string]string{
			"map_width":  strconv.Itoa(man.MapWidth),
			"map_height": strconv.Itoa(man.MapHeight),
		}))
	if err != nil {
		return err
	}
	defer w.Close()

	for i, m := range man.Tiles {
		if err := w.WriteTile(m, payloads[i]); err != nil {
			return fmt.Errorf("tilemap: store tile %s: %w", m.File, err)
		}
		params.Progress(i+1, len(man.Tiles))
	}

	params.Logger.Debug("tilemap: packed", "tiles", len(man.Tiles), "out", outPath)
	return w.Finalize()
}

// Unpack restores a store file into dir: tile PNGs written in
// parallel plus the rebuilt manifest.
func Unpack(inPath, dir string, params PackParams) error {
	params.normalize()

	r, err := NewReader(inPath)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("tilemap: create output dir: %w", err)
	}

	total, err := r.TileCount()
	if err != nil {
		return err
	}

	var tiles []tile.Meta
	var mu sync.Mutex
	done := 0

	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())

	err = r.VisitTiles(func(m tile.Meta, data []byte) error {
		tiles = append(tiles, m)
		g.Go(func() error {
			if len(data) > 0 {
				if err := os.WriteFile(filepath.Join(dir, m.File), data, 0644); err != nil {
					return fmt.Errorf("tilemap: write tile %s: %w", m.File, err)
				}
			}
			mu.Lock()
			done++
			params.Progress(done, total)
			mu.Unlock()
			return nil
		})
		return nil
	})
	if err != nil {
		return err
	}
	if err := g.Wait(); err != nil {
		return err
	}

	params.Logger.Debug("tilemap: unpacked", "tiles", len(tiles), "dir", dir)
	return manifest.New(tiles).Save(filepath.Join(dir, manifest.DefaultName))
}
