package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/eak1mov/go-tilemap/tile"
)

// Reader reads tiles and metadata from a store file.
type Reader struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// NewReader creates a new Reader for the given store file path.
//
// The returned Reader must be closed after use to release database resources.
func NewReader(filePath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}

	stmt, err := db.Prepare("SELECT data FROM tiles WHERE file = ?")
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Reader{db: db, stmt: stmt}, nil
}

func (r *Reader) Close() error {
	return errors.Join(r.stmt.Close(), r.db.Close())
}

func (r *Reader) ReadMetadata() (map[string]string, error) {
	metadata := make(map[string]string)

	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		metadata[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metadata, nil
}

// ReadTile returns the PNG payload stored under file. Pure-color tiles
// and unknown files return an empty slice.
func (r *Reader) ReadTile(file string) ([]byte, error) {
	var data []byte
	if err := r.stmt.QueryRow(file).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return make([]byte, 0), nil
		}
		return nil, err
	}
	return data, nil
}

func (r *Reader) TileCount() (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&n)
	return n, err
}

// VisitTiles calls visitor for every stored tile in insertion order.
func (r *Reader) VisitTiles(visitor func(tile.Meta, []byte) error) error {
	rows, err := r.db.Query("SELECT x, y, w, h, file, data FROM tiles")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m tile.Meta
		var data []byte

		if err := rows.Scan(&m.X, &m.Y, &m.W, &m.H, &m.File, &data); err != nil {
			return err
		}

		if err := visitor(m, data); err != nil {
			return err
		}
	}

	return rows.Err()
}
