// Package store reads and writes single-file SQLite tile stores: the
// manifest rows plus the PNG payloads of mixed-color tiles, packed
// into one .tiles file.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package store

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/eak1mov/go-tilemap/tile"
)

// Writer appends tiles to a new store file.
type Writer struct {
	db     *sql.DB
	stmt   *sql.Stmt
	logger *slog.Logger
}

type writerConfig struct {
	Metadata map[string]string
	Logger   *slog.Logger
}

type WriterOption func(*writerConfig)

func WithMetadata(metadata map[string]string) WriterOption {
	return func(c *writerConfig) { c.Metadata = metadata }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter creates a new Writer for the given store file path.
// It applies given options and initializes the database schema.
func NewWriter(filePath string, opts ...WriterOption) (*Writer, error) {
	config := writerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	var err error
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	_, err = db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (
			x INTEGER,
			y INTEGER,
			w INTEGER,
			h INTEGER,
			file TEXT,
			data BLOB
		);
	`)
	if err != nil {
		return nil, err
	}

	for k, v := range config.Metadata {
		_, err = db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v)
		if err != nil {
			return nil, err
		}
	}

	stmt, err := db.Prepare("INSERT INTO tiles (x, y, w, h, file, data) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return nil, err
	}

	return &Writer{db, stmt, config.Logger}, nil
}

func (w *Writer) Close() error {
	return errors.Join(w.stmt.Close(), w.db.Close())
}

// WriteTile stores one manifest row. data is nil for pure-color tiles.
func (w *Writer) WriteTile(m tile.Meta, data []byte) error {
	_, err := w.stmt.Exec(m.X, m.Y, m.W, m.H, m.File, data)
	return err
}

func (w *Writer) Finalize() error {
	w.logger.Debug("tilemap: creating index")
	_, err := w.db.Exec(`
		CREATE UNIQUE INDEX tile_pos ON tiles (x, y);
		CREATE INDEX tile_file ON tiles (file);
	`)
	return err
}
