// Package manifest persists tile lists as whitespace-separated text records
// and derives the covered map extent.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilemap/tile"
)

// DefaultName is the manifest file name the splitter writes next to
// its tiles.
const DefaultName = "meta.txt"

// Manifest is an ordered tile list plus the derived map extent.
// Apart from SortHilbert, which reorders Tiles in place, nothing
// modifies it after construction, and it is safe for concurrent readers.
type Manifest struct {
	Tiles     []tile.Meta
	MapWidth  int
	MapHeight int
}

// New builds a manifest from a tile list, deriving the map extent.
func New(tiles []tile.Meta) *Manifest {
	m := &Manifest{Tiles: tiles}
	m.deriveExtent()
	return m
}

// Load reads a manifest file: a header line followed by one
// "x y w h file" record per line. Malformed records are skipped.
func Load(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var tiles []tile.Meta

	scanner := bufio.NewScanner(file)
	scanner.Scan() // header
	for scanner.Scan() {
		m, ok := parseRecord(scanner.Text())
		if !ok {
			continue
		}
		tiles = append(tiles, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return New(tiles), nil
}

// Save writes the manifest in the format Load reads.
func (m *Manifest) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "x y w h file\n")
	for _, t := range m.Tiles {
		fmt.Fprintf(w, "%d %d %d %d %s\n", t.X, t.Y, t.W, t.H, t.File)
	}

	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func parseRecord(line string) (tile.Meta, bool) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return tile.Meta{}, false
	}

	var coords [4]int
	for i, f := range fields[:4] {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return tile.Meta{}, false
		}
		coords[i] = int(v)
	}

	return tile.Meta{X: coords[0], Y: coords[1], W: coords[2], H: coords[3], File: fields[4]}, true
}

func (m *Manifest) deriveExtent() {
	m.MapWidth = 0
	m.MapHeight = 0
	for _, t := range m.Tiles {
		m.MapWidth = max(m.MapWidth, t.X+t.W)
		m.MapHeight = max(m.MapHeight, t.Y+t.H)
	}
}
