package mvt

import (
	"os"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/ipc"
	"github.com/brendan-ward/geostiler/geos"
	"github.com/brendan-ward/geostiler/tiles"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// AUTO_ID tells ReadFeather to number features in row order.
const AUTO_ID = "__auto__"

type LayerInfo struct {
	Name        string            `json:"id"`
	Description string            `json:"description"`
	Minzoom     uint16            `json:"minzoom"`
	Maxzoom     uint16            `json:"maxzoom"`
	Fields      map[string]string `json:"fields"`
}

// FeatureTable is a data structure for holding feature information as a
// GeometryArray and array of encoded attribute data
// FeatureTable must be manually freed using Release()
type FeatureTable struct {
	ids        []uint64
	geometries *geos.GeometryArray
	columns    []*ByteColumn
}

// ReadFeather reads a feather (Arrow IPC) file where geomColName holds
// geometries encoded as WKB in geographic coordinates. Geometries are
// projected to Mercator using ctx, and all other columns except idColName
// are encoded as MVT values. idColName is optional; pass AUTO_ID to number
// features in order.
func ReadFeather(ctx *geos.ContextHandle, path string, geomColName string, idColName string) (*FeatureTable, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	defer t.Release()

	schema := t.Schema()
	numRows := int(t.NumRows())

	// Extract id field (optional)
	var ids []uint64
	idColIdx := -1
	switch idColName {
	case "":
	case AUTO_ID:
		log.Info().Msg("autogenerating id field")

		ids = make([]uint64, numRows)
		for i := range ids {
			ids[i] = uint64(i)
		}
	default:
		log.Info().Str("column", idColName).Msg("using column for id")

		idColIdxs := schema.FieldIndices(idColName)
		if idColIdxs == nil {
			return nil, errors.Newf("'%s' column must be present to use as id", idColName)
		}
		idColIdx = idColIdxs[0]
		ids = make([]uint64, 0, numRows)
		for _, chunk := range t.Column(idColIdx).Data().Chunks() {
			for j := 0; j < chunk.Len(); j++ {
				id, err := featureID(chunk, j)
				if err != nil {
					return nil, errors.Wrapf(err, "invalid id in row %d", len(ids))
				}
				ids = append(ids, id)
			}
		}
	}

	geomColIdx, wkbs, err := readWKBColumn(t, geomColName)
	if err != nil {
		return nil, err
	}

	geometries, err := geos.NewGeometryArrayFromWKB(ctx, wkbs)
	if err != nil {
		return nil, err
	}

	// project to Mercator
	if err = geometries.ToMercatorInPlace(); err != nil {
		geometries.Release()
		return nil, err
	}

	// encode non-geometry, non-id columns
	var columns []*ByteColumn
	for fieldIdx, field := range schema.Fields() {
		if fieldIdx == geomColIdx || fieldIdx == idColIdx {
			continue
		}

		column, err := encodeColumn(field, t.Column(fieldIdx).Data(), numRows)
		if err != nil {
			geometries.Release()
			return nil, err
		}
		columns = append(columns, column)
	}

	return &FeatureTable{
		ids:        ids,
		geometries: geometries,
		columns:    columns,
	}, nil
}

// ReadFeatherWKB reads only the WKB geometries of geomColName, in their
// original coordinates.
func ReadFeatherWKB(ctx *geos.ContextHandle, path string, geomColName string) (*geos.GeometryArray, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	defer t.Release()

	_, wkbs, err := readWKBColumn(t, geomColName)
	if err != nil {
		return nil, err
	}
	return geos.NewGeometryArrayFromWKB(ctx, wkbs)
}

// readTable reads all records of a feather file into a table.
func readTable(path string) (array.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s as feather file", path)
	}
	defer r.Close()

	records := make([]array.Record, r.NumRecords())
	for i := 0; i < r.NumRecords(); i++ {
		records[i], err = r.RecordAt(i)
		if err != nil {
			releaseRecords(records)
			return nil, errors.Wrapf(err, "could not read record %d", i)
		}
	}
	t := array.NewTableFromRecords(r.Schema(), records)
	releaseRecords(records)
	return t, nil
}

// readWKBColumn returns the index of geomColName and its values; null rows
// are nil.
func readWKBColumn(t array.Table, geomColName string) (int, [][]byte, error) {
	schema := t.Schema()
	geomColIdxs := schema.FieldIndices(geomColName)
	if geomColIdxs == nil {
		return -1, nil, errors.Newf("'%v' column must be present", geomColName)
	}
	geomColIdx := geomColIdxs[0]
	if id := schema.Field(geomColIdx).Type.ID(); id != arrow.BINARY {
		return -1, nil, errors.Newf("'%v' column must be WKB encoded binary, not %v", geomColName, id)
	}

	wkbs := make([][]byte, 0, int(t.NumRows()))
	for _, chunk := range t.Column(geomColIdx).Data().Chunks() {
		c := chunk.(*array.Binary)
		for j := 0; j < c.Len(); j++ {
			if c.IsNull(j) {
				wkbs = append(wkbs, nil)
				continue
			}
			wkbs = append(wkbs, c.Value(j))
		}
	}
	return geomColIdx, wkbs, nil
}

func releaseRecords(records []array.Record) {
	for _, record := range records {
		if record != nil {
			record.Release()
		}
	}
}

// Release the geometries held by the FeatureTable.
func (t *FeatureTable) Release() {
	if t == nil {
		return
	}
	t.geometries.Release()
}

func (t *FeatureTable) Geometry() *geos.GeometryArray {
	return t.geometries
}

func (t *FeatureTable) Column(i int) *ByteColumn {
	return t.columns[i]
}

func (t *FeatureTable) NumCols() int {
	return len(t.columns)
}

func (t *FeatureTable) Size() int {
	if t == nil {
		return 0
	}
	return t.geometries.Size()
}

// Take creates a new FeatureTable with the rows specified by integer
// indexes. Its geometries are a view of t's GeometryArray: release it before
// releasing t.
func (t *FeatureTable) Take(indexes []int) *FeatureTable {
	var ids []uint64
	if t.ids != nil {
		ids = make([]uint64, len(indexes))
		for i, index := range indexes {
			ids[i] = t.ids[index]
		}
	}

	var columns []*ByteColumn
	if len(t.columns) > 0 {
		columns = make([]*ByteColumn, len(t.columns))
		for i, col := range t.columns {
			columns[i] = col.Take(indexes)
		}
	}

	return &FeatureTable{
		ids:        ids,
		geometries: t.geometries.Take(indexes),
		columns:    columns,
	}
}

// EncodeToLayer clips the features of the table to tile and encodes them
// as an MVT layer, wrapped as a Tile layers field. Returns nil if no
// features remain in the tile.
// EncodeToLayer may be called concurrently for different tiles.
func (t *FeatureTable) EncodeToLayer(name string, tile *tiles.TileID, config *tiles.EncodingConfig) ([]byte, error) {
	if config == nil {
		config = tiles.NewDefaultEncodingConfig()
	}

	// project geometries to tile pixels
	indexes, geoms, err := t.geometries.ToTile(tile, config)
	if err != nil {
		return nil, errors.Wrapf(err, "could not project features to %v", tile)
	}
	if len(indexes) == 0 {
		return nil, nil
	}

	layer := newLayerBuilder(name, config.Extent)
	var tags []byte
	for i, rowIdx := range indexes {
		geomType, commands, err := EncodeGeometry(geoms[i])
		if err != nil {
			log.Debug().Err(err).Int("row", rowIdx).Stringer("tile", tile).Msg("skipping feature")
			continue
		}
		if commands == nil {
			continue
		}

		tags = tags[:0]
		for _, col := range t.columns {
			if value := col.GetValue(rowIdx); value != nil {
				tags = layer.appendTag(tags, col.Name, value)
			}
		}

		var id *uint64
		if t.ids != nil {
			id = &t.ids[rowIdx]
		}
		layer.addFeature(id, geomType, tags, commands)
	}

	if layer.Len() == 0 {
		return nil, nil
	}
	return layer.Bytes(), nil
}

func (t *FeatureTable) GetLayerInfo(name string, description string, minZoom uint16, maxZoom uint16) *LayerInfo {
	fields := make(map[string]string)
	for _, col := range t.columns {
		fields[col.Name] = col.Type
	}

	return &LayerInfo{
		Name:        name,
		Description: description,
		Minzoom:     minZoom,
		Maxzoom:     maxZoom,
		Fields:      fields,
	}
}
