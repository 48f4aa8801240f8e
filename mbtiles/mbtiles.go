package mbtiles

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/brendan-ward/geostiler/mvt"
	"github.com/brendan-ward/geostiler/tiles"
	"github.com/cockroachdb/errors"
)

// ErrClosed is returned when writing to a closed MBtilesWriter.
var ErrClosed = errors.New("cannot write to closed mbtiles database")

type MBtilesWriter struct {
	pool *sqlitex.Pool
}

// Metadata describes the tileset, see
// https://github.com/mapbox/mbtiles-spec/blob/master/1.3/spec.md#metadata
type Metadata struct {
	Name        string
	Description string
	MinZoom     uint16
	MaxZoom     uint16
	// geographic xmin, ymin, xmax, ymax
	Bounds [4]float64
	Layers []*mvt.LayerInfo
}

const init_sql = `
CREATE TABLE metadata (name text, value text);
CREATE TABLE tiles (zoom_level integer, tile_column integer, tile_row integer, tile_data blob);
CREATE UNIQUE INDEX name on metadata (name);
CREATE UNIQUE INDEX tile_index on tiles (zoom_level, tile_column, tile_row);
`

// NewMBtilesWriter creates a new MBTiles file at path, overwriting any
// existing file, with a pool of poolsize connections.
// Close() must be called to flush pending writes.
func NewMBtilesWriter(path string, poolsize int) (*MBtilesWriter, error) {
	if filepath.Ext(path) != ".mbtiles" {
		return nil, errors.New("path must end in .mbtiles")
	}

	// always overwrite
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "could not remove existing %s", path)
	}

	// NOMUTEX: each connection is only used by one goroutine at a time
	pool, err := sqlitex.Open(path, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE|sqlite.SQLITE_OPEN_NOMUTEX|sqlite.SQLITE_OPEN_WAL, poolsize)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}

	db := &MBtilesWriter{
		pool: pool,
	}

	con, err := db.GetConnection(context.Background())
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer db.CloseConnection(con)

	// create tables
	if err = sqlitex.ExecScript(con, init_sql); err != nil {
		return nil, errors.Wrap(err, "could not initialize database")
	}

	return db, nil
}

// OpenMBtiles opens an existing MBTiles file at path with a pool of
// poolsize connections.
func OpenMBtiles(path string, poolsize int) (*MBtilesWriter, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}

	pool, err := sqlitex.Open(path, sqlite.SQLITE_OPEN_READWRITE|sqlite.SQLITE_OPEN_NOMUTEX|sqlite.SQLITE_OPEN_WAL, poolsize)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}
	return &MBtilesWriter{pool: pool}, nil
}

// Close flushes pending writes and closes all connections.
func (db *MBtilesWriter) Close() error {
	if db == nil || db.pool == nil {
		return nil
	}

	// make sure that anything pending is written
	con, err := db.GetConnection(context.Background())
	if err != nil {
		return err
	}
	err = sqlitex.Exec(con, `PRAGMA wal_checkpoint;`, nil)
	db.CloseConnection(con)

	err = errors.CombineErrors(err, db.pool.Close())
	db.pool = nil
	return err
}

// GetConnection gets a sqlite.Conn from an open connection pool, waiting
// until one is available or ctx is done.
// CloseConnection(con) must be called to release the connection.
func (db *MBtilesWriter) GetConnection(ctx context.Context) (*sqlite.Conn, error) {
	if db == nil || db.pool == nil {
		return nil, ErrClosed
	}
	con := db.pool.Get(ctx)
	if con == nil {
		return nil, errors.New("connection could not be opened")
	}
	return con, nil
}

// CloseConnection returns an open sqlite.Conn to the pool.
func (db *MBtilesWriter) CloseConnection(con *sqlite.Conn) {
	if con != nil {
		db.pool.Put(con)
	}
}

func writeMetadataItem(con *sqlite.Conn, key string, value interface{}) error {
	if err := sqlitex.Exec(con, "INSERT INTO metadata (name,value) VALUES (?, ?)", nil, key, value); err != nil {
		return errors.Wrapf(err, "could not write metadata %q", key)
	}
	return nil
}

func (db *MBtilesWriter) WriteMetadata(meta *Metadata) (err error) {
	con, err := db.GetConnection(context.Background())
	if err != nil {
		return err
	}
	defer db.CloseConnection(con)

	// create savepoint
	defer sqlitex.Save(con)(&err)

	b := meta.Bounds
	layers := meta.Layers
	if layers == nil {
		layers = []*mvt.LayerInfo{}
	}
	layersJSON, err := json.Marshal(map[string][]*mvt.LayerInfo{"vector_layers": layers})
	if err != nil {
		return errors.Wrap(err, "could not encode layer info")
	}

	items := []struct {
		key   string
		value interface{}
	}{
		{"name", meta.Name},
		{"description", meta.Description},
		{"minzoom", meta.MinZoom},
		{"maxzoom", meta.MaxZoom},
		{"center", fmt.Sprintf("%.5f,%.5f,%v", (b[0]+b[2])/2.0, (b[1]+b[3])/2.0, meta.MinZoom)},
		{"bounds", fmt.Sprintf("%.5f,%.5f,%.5f,%.5f", b[0], b[1], b[2], b[3])},
		{"type", "overlay"},
		{"format", "pbf"},
		{"version", 2},
		{"json", string(layersJSON)},
	}
	for _, item := range items {
		if err = writeMetadataItem(con, item.key, item.value); err != nil {
			return err
		}
	}

	return nil
}

// ReadMetadata returns all metadata items.
func (db *MBtilesWriter) ReadMetadata() (map[string]string, error) {
	con, err := db.GetConnection(context.Background())
	if err != nil {
		return nil, err
	}
	defer db.CloseConnection(con)

	metadata := make(map[string]string)
	err = sqlitex.Exec(con, "SELECT name, value FROM metadata", func(stmt *sqlite.Stmt) error {
		metadata[stmt.ColumnText(0)] = stmt.ColumnText(1)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not read metadata")
	}
	return metadata, nil
}

func (db *MBtilesWriter) WriteTile(tile *tiles.TileID, data []byte) error {
	con, err := db.GetConnection(context.Background())
	if err != nil {
		return err
	}
	defer db.CloseConnection(con)

	return WriteTile(con, tile, data)
}

// Write the tile to the open connection
func WriteTile(con *sqlite.Conn, tile *tiles.TileID, data []byte) error {
	// GZIP tile data
	var b bytes.Buffer
	gz := gzip.NewWriter(&b)

	if _, err := gz.Write(data); err != nil {
		return errors.Wrapf(err, "could not compress tile %v", tile)
	}
	if err := gz.Close(); err != nil {
		return errors.Wrapf(err, "could not compress tile %v", tile)
	}

	// tile rows are numbered from the bottom in mbtiles
	err := sqlitex.Exec(con, "INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)", nil, tile.Zoom, tile.X, tile.TMSRow(), b.Bytes())
	if err != nil {
		return errors.Wrapf(err, "could not write tile %v to mbtiles", tile)
	}

	return nil
}

// ReadTile returns the uncompressed data of tile, or nil if the tile is not
// present.
func (db *MBtilesWriter) ReadTile(tile *tiles.TileID) ([]byte, error) {
	con, err := db.GetConnection(context.Background())
	if err != nil {
		return nil, err
	}
	defer db.CloseConnection(con)

	var compressed []byte
	err = sqlitex.Exec(con, "SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?", func(stmt *sqlite.Stmt) error {
		compressed = make([]byte, stmt.ColumnLen(0))
		stmt.ColumnBytes(0, compressed)
		return nil
	}, tile.Zoom, tile.X, tile.TMSRow())
	if err != nil {
		return nil, errors.Wrapf(err, "could not read tile %v from mbtiles", tile)
	}
	if compressed == nil {
		return nil, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrapf(err, "could not decompress tile %v", tile)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decompress tile %v", tile)
	}
	return data, nil
}
