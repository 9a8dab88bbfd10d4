// Package loader decodes tiles on a worker pool, ordered by priority,
// and writes every decoded tile through to the cache. Concurrent
// requests for the same tile share a single decode.
package loader

import (
	"container/heap"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sync"

	"github.com/eak1mov/go-tilemap/cache"
	"github.com/eak1mov/go-tilemap/raster"
	"github.com/eak1mov/go-tilemap/spatial"
	"github.com/eak1mov/go-tilemap/tile"
)

// ErrQueueFull is returned when the load queue is at capacity. The
// request is rejected synchronously rather than dropped.
var ErrQueueFull = errors.New("tilemap: load queue full")

type Config struct {
	Workers          int  // default 4
	MaxQueue         int  // default 1000
	DefaultPriority  int  // default 100, used when a request passes a negative priority
	EnablePreloading bool // gates the Preload* methods
	Logger           *slog.Logger
}

// DefaultConfig returns the runtime defaults, preloading included.
func DefaultConfig() Config {
	return Config{
		Workers:          4,
		MaxQueue:         1000,
		DefaultPriority:  100,
		EnablePreloading: true,
	}
}

type Status int

const (
	StatusPending Status = iota
	StatusLoading
	StatusCompleted
	StatusFailed
)

// Result is the outcome of one tile request.
type Result struct {
	ID        string
	Tile      *cache.Tile
	Status    Status
	FromCache bool
	Err       error
}

type Callback func(Result)

type Stats struct {
	TotalRequests  int64
	CompletedLoads int64
	FailedLoads    int64
	CacheHits      int64
	QueuedRequests int
	ActiveLoads    int
}

func (s Stats) SuccessRate() float64 {
	done := s.CompletedLoads + s.FailedLoads
	if done == 0 {
		return 0
	}
	return float64(s.CompletedLoads) / float64(done)
}

// Loader schedules tile decodes from a resource directory.
//
// The inflight map marks tiles that are queued or decoding: a request
// for such a tile attaches its callback to the callbacks map instead of
// enqueueing a second decode.
type Loader struct {
	cfg    Config
	dir    string
	cache  *cache.Cache
	logger *slog.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	queue     requestHeap
	inflight  map[string]bool
	callbacks map[string][]Callback
	seq       uint64
	started   bool
	stopping  bool
	stats     Stats

	wg sync.WaitGroup
}

// New builds a loader that resolves tile files relative to dir and
// writes decoded tiles into c.
func New(c *cache.Cache, dir string, cfg Config) *Loader {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxQueue <= 0 {
		cfg.MaxQueue = 1000
	}
	if cfg.DefaultPriority <= 0 {
		cfg.DefaultPriority = 100
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	l := &Loader{
		cfg:       cfg,
		dir:       dir,
		cache:     c,
		logger:    logger,
		inflight:  make(map[string]bool),
		callbacks: make(map[string][]Callback),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Start spawns the worker pool. Calling Start on a running loader is
// a no-op.
func (l *Loader) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return
	}
	l.started = true
	l.stopping = false

	for i := 0; i < l.cfg.Workers; i++ {
		l.wg.Add(1)
		go l.worker()
	}
	l.logger.Debug("tilemap: loader started", "workers", l.cfg.Workers)
}

// Stop signals the workers and waits for in-flight decodes to finish.
// Queued requests that never started are abandoned.
func (l *Loader) Stop() {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return
	}
	l.stopping = true
	l.cond.Broadcast()
	l.mu.Unlock()

	l.wg.Wait()

	l.mu.Lock()
	l.started = false
	l.mu.Unlock()
	l.logger.Debug("tilemap: loader stopped")
}

// Load requests m and returns a single-result future. A cached tile
// resolves immediately; a full queue resolves immediately with
// ErrQueueFull. Pass a negative priority for the configured default.
func (l *Loader) Load(m tile.Meta, priority int) <-chan Result {
	ch := make(chan Result, 1)
	l.LoadCallback(m, priority, func(r Result) { ch <- r })
	return ch
}

// LoadCallback requests m and delivers the result through fn. fn runs
// on a worker goroutine unless the result is known synchronously.
func (l *Loader) LoadCallback(m tile.Meta, priority int, fn Callback) {
	if err := l.enqueue(m, priority, fn); err != nil {
		l.invoke(fn, Result{ID: m.File, Status: StatusFailed, Err: err})
	}
}

// PreloadTiles enqueues best-effort decodes at a flat priority for
// every tile that is neither cached nor already loading. Queue
// overflow skips the tile.
func (l *Loader) PreloadTiles(tiles []tile.Meta, basePriority int) {
	if !l.cfg.EnablePreloading {
		return
	}
	for _, m := range tiles {
		l.preload(m, basePriority)
	}
}

// PreloadViewport is PreloadTiles with per-tile priorities from
// DistancePriority: tiles farther from the viewport center get larger
// priority values and are therefore served first.
func (l *Loader) PreloadViewport(tiles []tile.Meta, vp tile.Viewport, basePriority int) {
	if !l.cfg.EnablePreloading {
		return
	}
	for _, m := range tiles {
		l.preload(m, DistancePriority(m, vp, basePriority))
	}
}

// PreloadByDirection expands the current viewport along the movement
// vector, plus half a viewport of slack per axis, and preloads every
// tile the index reports there at priority 25.
func (l *Loader) PreloadByDirection(current tile.Viewport, dx, dy int, idx spatial.Index) {
	if !l.cfg.EnablePreloading {
		return
	}

	expandX := abs(dx) + current.W/2
	expandY := abs(dy) + current.H/2
	expanded := tile.Viewport{
		X: current.X - expandX,
		Y: current.Y - expandY,
		W: current.W + 2*expandX,
		H: current.H + 2*expandY,
	}
	l.PreloadTiles(idx.Query(expanded), 25)
}

func (l *Loader) preload(m tile.Meta, priority int) {
	if _, ok := l.cache.Get(m.File); ok {
		return
	}
	if l.IsLoading(m.File) {
		return
	}
	// best effort, a full queue just skips the tile
	_ = l.enqueue(m, priority, nil)
}

// CancelPending drains the queue. Decodes already claimed by a worker
// run to completion; callbacks for drained requests stay registered
// and fire if the tile is requested again.
func (l *Loader) CancelPending() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.queue {
		delete(l.inflight, r.meta.File)
	}
	l.queue = l.queue[:0]
}

// IsLoading reports whether a request for id is queued or decoding.
func (l *Loader) IsLoading(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inflight[id]
}

func (l *Loader) QueueSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Len()
}

func (l *Loader) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.stats
	s.QueuedRequests = l.queue.Len()
	return s
}

// DistancePriority offsets basePriority by the Euclidean distance in
// pixels between the tile center and the viewport center, one step
// per ten pixels.
func DistancePriority(m tile.Meta, vp tile.Viewport, basePriority int) int {
	cx := float64(vp.X + vp.W/2)
	cy := float64(vp.Y + vp.H/2)
	tx := float64(m.X + m.W/2)
	ty := float64(m.Y + m.H/2)
	dist := math.Hypot(tx-cx, ty-cy)
	return basePriority + int(dist/10)
}

func (l *Loader) enqueue(m tile.Meta, priority int, fn Callback) error {
	id := m.File
	if priority < 0 {
		priority = l.cfg.DefaultPriority
	}

	if t, ok := l.cache.Get(id); ok {
		l.mu.Lock()
		l.stats.TotalRequests++
		l.stats.CacheHits++
		l.mu.Unlock()
		if fn != nil {
			l.invoke(fn, Result{ID: id, Tile: t, Status: StatusCompleted, FromCache: true})
		}
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.stats.TotalRequests++

	if l.inflight[id] {
		if fn != nil {
			l.callbacks[id] = append(l.callbacks[id], fn)
		}
		return nil
	}
	if l.queue.Len() >= l.cfg.MaxQueue {
		return ErrQueueFull
	}

	if fn != nil {
		l.callbacks[id] = append(l.callbacks[id], fn)
	}
	l.inflight[id] = true
	heap.Push(&l.queue, &request{meta: m, priority: priority, seq: l.seq})
	l.seq++
	l.cond.Signal()
	return nil
}

func (l *Loader) worker() {
	defer l.wg.Done()

	for {
		l.mu.Lock()
		for l.queue.Len() == 0 && !l.stopping {
			l.cond.Wait()
		}
		if l.stopping {
			l.mu.Unlock()
			return
		}
		req := heap.Pop(&l.queue).(*request)
		l.stats.ActiveLoads++
		l.mu.Unlock()

		res := l.loadTile(req.meta)

		l.mu.Lock()
		cbs := l.callbacks[req.meta.File]
		delete(l.callbacks, req.meta.File)
		delete(l.inflight, req.meta.File)
		if res.Status == StatusCompleted {
			l.stats.CompletedLoads++
		} else {
			l.stats.FailedLoads++
		}
		l.stats.ActiveLoads--
		l.mu.Unlock()

		for _, fn := range cbs {
			l.invoke(fn, res)
		}
	}
}

func (l *Loader) loadTile(m tile.Meta) Result {
	id := m.File

	if col, ok := m.PureColor(); ok {
		l.cache.PutPureColor(id, col, m.W, m.H)
		return Result{
			ID:     id,
			Status: StatusCompleted,
			Tile: &cache.Tile{
				ID: id, Width: m.W, Height: m.H, Channels: 4,
				IsPureColor: true, Color: col,
			},
		}
	}

	img, err := raster.Decode(filepath.Join(l.dir, id))
	if err != nil {
		l.logger.Warn("tilemap: tile decode failed", "tile", id, "error", err)
		return Result{ID: id, Status: StatusFailed, Err: fmt.Errorf("tilemap: decode %s: %w", id, err)}
	}

	l.cache.Put(id, img.Pix, img.W, img.H, 4)
	return Result{
		ID:     id,
		Status: StatusCompleted,
		Tile: &cache.Tile{
			ID: id, Width: img.W, Height: img.H, Channels: 4, Pix: img.Pix,
		},
	}
}

// invoke shields the worker from panicking callbacks. No loader lock
// is held here.
func (l *Loader) invoke(fn Callback, r Result) {
	defer func() {
		if p := recover(); p != nil {
			l.logger.Error("tilemap: tile callback panicked", "tile", r.ID, "panic", p)
		}
	}()
	fn(r)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
