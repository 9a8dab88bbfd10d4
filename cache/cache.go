// Package cache keeps decoded tile pixels in memory under byte and
// count limits, evicting the least recently used entries first.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/eak1mov/go-tilemap/tile"
)

// entryOverhead approximates the bookkeeping cost per cached tile on
// top of its pixel data and identifier.
const entryOverhead = 96

type Config struct {
	MaxBytes int64 // default 256 MiB
	MaxTiles int   // default 5000
}

// Tile is a decoded tile held by the cache. Pure-color tiles carry no
// pixel data; Color holds their fill instead.
type Tile struct {
	ID          string
	Width       int
	Height      int
	Channels    int
	IsPureColor bool
	Color       tile.Color
	Pix         []byte

	sizeBytes  int64
	lastAccess time.Time
}

type Stats struct {
	TotalBytes int64
	TotalTiles int
	Hits       int64
	Misses     int64
	Evictions  int64
}

func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a bounded LRU store keyed by tile identifier. It is safe
// for concurrent use.
type Cache struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*list.Element
	lru     list.List // front is most recently used; values are *Tile
	stats   Stats
}

func New(cfg Config) *Cache {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 256 << 20
	}
	if cfg.MaxTiles <= 0 {
		cfg.MaxTiles = 5000
	}
	return &Cache{
		cfg:     cfg,
		entries: make(map[string]*list.Element),
	}
}

// Get returns the tile stored under id, marking it most recently used.
func (c *Cache) Get(id string) (*Tile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[id]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	c.lru.MoveToFront(el)
	t := el.Value.(*Tile)
	t.lastAccess = time.Now()
	return t, true
}

// Put stores a pixel tile under id, displacing any previous entry with
// the same id and evicting older tiles until the limits hold.
func (c *Cache) Put(id string, pix []byte, width, height, channels int) {
	c.put(&Tile{
		ID:       id,
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      pix,
	})
}

// PutPureColor stores a single-color tile under id. It costs only the
// entry overhead and the id length since no pixels are kept.
func (c *Cache) PutPureColor(id string, col tile.Color, width, height int) {
	c.put(&Tile{
		ID:          id,
		Width:       width,
		Height:      height,
		Channels:    4,
		IsPureColor: true,
		Color:       col,
	})
}

func (c *Cache) put(t *Tile) {
	t.sizeBytes = int64(len(t.Pix)) + entryOverhead + int64(len(t.ID))
	t.lastAccess = time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[t.ID]; ok {
		c.removeLocked(el)
	}

	for c.lru.Len() > 0 &&
		(c.stats.TotalBytes+t.sizeBytes > c.cfg.MaxBytes || c.stats.TotalTiles >= c.cfg.MaxTiles) {
		c.evictOldestLocked()
	}

	el := c.lru.PushFront(t)
	c.entries[t.ID] = el
	c.stats.TotalBytes += t.sizeBytes
	c.stats.TotalTiles++
}

// EvictOutOfViewport drops every cached tile whose id is not in the
// visible set.
func (c *Cache) EvictOutOfViewport(visible map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next *list.Element
	for el := c.lru.Front(); el != nil; el = next {
		next = el.Next()
		if !visible[el.Value.(*Tile).ID] {
			c.removeLocked(el)
			c.stats.Evictions++
		}
	}
}

// Clear drops every entry. Hit, miss and eviction counters survive.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Init()
	c.entries = make(map[string]*list.Element)
	c.stats.TotalBytes = 0
	c.stats.TotalTiles = 0
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Cache) MemoryUsage() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.TotalBytes
}

func (c *Cache) TileCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.TotalTiles
}

func (c *Cache) evictOldestLocked() {
	el := c.lru.Back()
	if el == nil {
		return
	}
	c.removeLocked(el)
	c.stats.Evictions++
}

func (c *Cache) removeLocked(el *list.Element) {
	t := el.Value.(*Tile)
	c.lru.Remove(el)
	delete(c.entries, t.ID)
	c.stats.TotalBytes -= t.sizeBytes
	c.stats.TotalTiles--
}
