package geos

// #include "geos.h"
import "C"
import (
	"strings"
	"sync"

	"github.com/brendan-ward/geostiler/tiles"
	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
)

// GeometryArray holds Geometries and a tree (STRtree) that is created
// on the first call to Query() or ToTile(). Entries may be nil.
// GeometryArray must be manually freed using Release()
type GeometryArray struct {
	contextHolder
	geometries []*Geometry
	// false for views created by Take(), which do not own their geometries
	owned bool
	index *arrayIndex
}

type arrayIndex struct {
	once sync.Once
	tree *STRtree
	err  error
}

// NewGeometryArray creates a GeometryArray that takes ownership of
// geometries.
func NewGeometryArray(ctx *ContextHandle, geometries []*Geometry) (*GeometryArray, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	return &GeometryArray{
		contextHolder: holdContext(ctx),
		geometries:    geometries,
		owned:         true,
		index:         &arrayIndex{},
	}, nil
}

// Release GEOS Geometry objects
func (g *GeometryArray) Release() {
	if g == nil || g.ctx == nil {
		return
	}

	// the tree points at geometry envelopes, so it goes first
	if g.index != nil && g.index.tree != nil {
		g.index.tree.Release()
	}
	if g.owned {
		releaseGeometries(g.geometries)
	}
	g.releaseContext()

	// clear out previous references
	*g = GeometryArray{}
}

func releaseGeometries(geometries []*Geometry) {
	for _, geometry := range geometries {
		geometry.Release()
	}
}

// Create a new GeometryArray from a slice of Geometry Well-Known Text strings.
// Empty strings result in nil entries.
// The GeometryArray must be freed manually be calling Release().
func NewGeometryArrayFromWKT(ctx *ContextHandle, wkts []string) (*GeometryArray, error) {
	reader, err := NewWKTReader(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	geometries := make([]*Geometry, len(wkts))
	for i, wkt := range wkts {
		if wkt == "" {
			continue
		}
		if geometries[i], err = reader.Read(wkt); err != nil {
			releaseGeometries(geometries)
			return nil, errors.Wrapf(err, "could not parse WKT at index %d", i)
		}
	}

	return NewGeometryArray(ctx, geometries)
}

// Create a new GeometryArray from a slice of Geometry Well-Known Binary byte slices.
// Nil or empty byte slices result in nil entries.
// The GeometryArray must be freed manually be calling Release().
func NewGeometryArrayFromWKB(ctx *ContextHandle, wkbs [][]byte) (*GeometryArray, error) {
	reader, err := NewWKBReader(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	geometries := make([]*Geometry, len(wkbs))
	for i, buf := range wkbs {
		if len(buf) == 0 {
			continue
		}
		if geometries[i], err = reader.Read(buf); err != nil {
			releaseGeometries(geometries)
			return nil, errors.Wrapf(err, "could not parse WKB at index %d", i)
		}
	}

	return NewGeometryArray(ctx, geometries)
}

// ToWKT writes the GEOS Geometries using Well-Known Text, according to the
// specified decimal precision. Nil entries are written as empty strings.
func (g *GeometryArray) ToWKT(precision int) ([]string, error) {
	size := len(g.geometries)
	if size == 0 {
		return nil, nil
	}

	writer, err := NewWKTWriter(g.ctx)
	if err != nil {
		return nil, err
	}
	defer writer.Release()

	if err = writer.SetTrim(true); err != nil {
		return nil, err
	}
	if err = writer.SetRoundingPrecision(precision); err != nil {
		return nil, err
	}

	out := make([]string, size)
	for i, geometry := range g.geometries {
		if geometry == nil {
			continue
		}
		if out[i], err = writer.Write(geometry); err != nil {
			return nil, errors.Wrapf(err, "could not write WKT at index %d", i)
		}
	}

	return out, nil
}

func (g *GeometryArray) Size() int {
	if g == nil {
		return 0
	}

	return len(g.geometries)
}

// Get returns the Geometry at index i, which may be nil. The Geometry is
// owned by the GeometryArray.
func (g *GeometryArray) Get(i int) *Geometry {
	return g.geometries[i]
}

func (g *GeometryArray) String() string {
	if len(g.geometries) == 0 {
		return ""
	}

	truncate := 60

	wkts, err := g.ToWKT(2)
	if err != nil {
		panic(err)
	}
	var b strings.Builder

	b.WriteString("[")

	for i := 0; i < len(wkts); i++ {
		b.WriteString("<")
		if len(wkts[i]) > truncate {
			b.WriteString(wkts[i][:truncate-3] + "...")
		} else {
			b.WriteString(wkts[i])
		}
		b.WriteString(">")
		if i < len(wkts)-1 {
			b.WriteString(", ")
		}
	}
	b.WriteString("]")
	return b.String()
}

// TotalBounds returns xmin, ymin, xmax, ymax over all non-empty geometries.
func (g *GeometryArray) TotalBounds() ([4]float64, error) {
	if g == nil {
		panic("GeometryArray not initialized")
	}

	var total [4]float64
	found := false
	for _, geometry := range g.geometries {
		if geometry == nil {
			continue
		}
		empty, err := geometry.IsEmpty()
		if err != nil {
			return total, err
		}
		if empty {
			continue
		}

		b, err := geometry.Bounds()
		if err != nil {
			return total, err
		}
		if !found {
			total = b
			found = true
			continue
		}
		total[0] = min(total[0], b[0])
		total[1] = min(total[1], b[1])
		total[2] = max(total[2], b[2])
		total[3] = max(total[3], b[3])
	}

	if !found {
		return total, errors.New("could not calculate outer bounds of GeometryArray: no geometries")
	}
	return total, nil
}

func (g *GeometryArray) strtree() (*STRtree, error) {
	g.index.once.Do(func() {
		g.index.tree, g.index.err = g.createTree()
	})
	return g.index.tree, g.index.err
}

func (g *GeometryArray) createTree() (*STRtree, error) {
	tree, err := NewSTRtree(g.ctx, 10)
	if err != nil {
		return nil, errors.Wrap(err, "could not create tree for GeometryArray")
	}

	for i, geometry := range g.geometries {
		if geometry == nil {
			continue
		}
		empty, err := geometry.IsEmpty()
		if err == nil && !empty {
			err = tree.Insert(geometry, i)
		}
		if err != nil {
			tree.Release()
			return nil, errors.Wrap(err, "could not create tree for GeometryArray")
		}
	}
	return tree, nil
}

// Query returns a slice of integer indexes into GeometryArray that overlap with
// the bounds defined by xmin, ymin, xmax, ymax.
// Will return nil if there are no results.
func (g *GeometryArray) Query(xmin, ymin, xmax, ymax float64) ([]int, error) {
	if g == nil {
		panic("GeometryArray not initialized")
	}

	tree, err := g.strtree()
	if err != nil {
		return nil, err
	}
	return tree.Query(xmin, ymin, xmax, ymax)
}

// Return a new GeometryArray with coordinates projected to Mercator.
// Geometries will be nil if outside Mercator world bounds or if they could
// not be projected.
func (g *GeometryArray) ToMercator() (*GeometryArray, error) {
	geometries := make([]*Geometry, len(g.geometries))
	for i, geometry := range g.geometries {
		if geometry == nil {
			continue
		}
		projected, err := geometry.ToMercator()
		if err != nil {
			g.ctx.Logger().Warn().Err(err).Int("index", i).Msg("could not project geometry to Mercator; skipping it")
			continue
		}
		geometries[i] = projected
	}

	return NewGeometryArray(g.ctx, geometries)
}

// Return a new GeometryArray with coordinates projected to Mercator, and
// release the previous array.
func (g *GeometryArray) ToMercatorInPlace() error {
	projected, err := g.ToMercator()
	if err != nil {
		return err
	}

	g.Release()

	*g = *projected

	return nil
}

// Take creates a new GeometryArray by taking geometries from the GeometryArray
// specified by integer indexes.  Out of bounds indexes will cause a panic.
// The new GeometryArray points to the same underlying geometries and does not
// own them: it must be released before the source array.
func (g *GeometryArray) Take(indexes []int) *GeometryArray {
	geometries := make([]*Geometry, len(indexes))
	for i, index := range indexes {
		geometries[i] = g.geometries[index]
	}

	return &GeometryArray{
		contextHolder: holdContext(g.ctx),
		geometries:    geometries,
		owned:         false,
		index:         &arrayIndex{},
	}
}

// ToTile returns the integer indexes into the GeometryArray of the
// geometries that are non-empty within the tile (including its buffer),
// and those geometries clipped to the buffered tile, converted to tile
// pixel coordinates, simplified and snapped according to config.
// Input GeometryArray must already be in Mercator coordinates.
//
// ToTile can be called from multiple goroutines at once: each call uses its
// own GEOS context.
func (g *GeometryArray) ToTile(t *tiles.TileID, config *tiles.EncodingConfig) ([]int, []geom.T, error) {
	if g == nil {
		panic("GeometryArray not initialized")
	}

	if len(g.geometries) == 0 {
		return nil, nil, nil
	}
	if config == nil {
		config = tiles.NewDefaultEncodingConfig()
	}

	// first figure out if there are any geometries in tile or its buffer
	bounds := t.MercatorBounds()
	clip := bufferedBounds(bounds, config)
	hits, err := g.Query(clip[0], clip[1], clip[2], clip[3])
	if err != nil {
		return nil, nil, err
	}
	if len(hits) == 0 {
		return nil, nil, nil
	}

	ctx, err := g.CloneContext()
	if err != nil {
		return nil, nil, err
	}
	defer ctx.Release()

	p, err := newTileProjector(ctx, bounds, config)
	if err != nil {
		return nil, nil, err
	}
	defer p.release()

	indexes := make([]int, 0, len(hits))
	geoms := make([]geom.T, 0, len(hits))
	for _, i := range hits {
		out, err := p.project(g.geometries[i])
		if err != nil {
			ctx.Logger().Warn().Err(err).Int("index", i).Stringer("tile", t).Msg("could not project geometry to tile; skipping it")
			continue
		}
		if out == nil {
			continue
		}
		indexes = append(indexes, i)
		geoms = append(geoms, out)
	}

	return indexes, geoms, nil
}

// tileProjector holds the native objects reused for every geometry in a
// tile. It is only used by one goroutine.
type tileProjector struct {
	ctx            *ContextHandle
	tile           *Geometry
	prepared       *PreparedGeometry
	writer         *WKBWriter
	clip           [4]float64
	transform      C.tile_transform
	simplification float64
	precision      float64
}

// bufferedBounds expands tile bounds by the configured buffer, which is in
// tile pixels.
func bufferedBounds(bounds [4]float64, config *tiles.EncodingConfig) [4]float64 {
	buffer := float64(config.Buffer) * (bounds[2] - bounds[0]) / float64(config.Extent)
	return [4]float64{bounds[0] - buffer, bounds[1] - buffer, bounds[2] + buffer, bounds[3] + buffer}
}

func newTileProjector(ctx *ContextHandle, bounds [4]float64, config *tiles.EncodingConfig) (*tileProjector, error) {
	scale := float64(config.Extent) / (bounds[2] - bounds[0])

	p := &tileProjector{
		ctx:  ctx,
		clip: bufferedBounds(bounds, config),
		transform: C.tile_transform{
			xmin:   C.double(bounds[0]),
			ymax:   C.double(bounds[3]),
			xscale: C.double(scale),
			yscale: C.double(scale),
		},
		simplification: float64(config.Simplification),
		precision:      float64(config.Precision),
	}

	var err error
	if p.tile, err = NewRectangle(ctx, bounds[0], bounds[1], bounds[2], bounds[3]); err != nil {
		return nil, err
	}
	if p.prepared, err = p.tile.Prepare(); err != nil {
		p.release()
		return nil, err
	}
	if p.writer, err = NewWKBWriter(ctx); err != nil {
		p.release()
		return nil, err
	}
	return p, nil
}

func (p *tileProjector) release() {
	p.writer.Release()
	p.prepared.Release()
	p.tile.Release()
}

// project returns nil if nothing of src remains in the tile.
func (p *tileProjector) project(src *Geometry) (geom.T, error) {
	source := src.AsRaw()
	if source.IsNil() {
		return nil, nil
	}

	var current *Geometry
	defer func() {
		current.Release()
	}()
	replace := func(next *Geometry) {
		current.Release()
		current = next
		source = next.AsRaw()
	}

	// geometries entirely within the tile do not need to be clipped
	inside, err := p.prepared.ContainsProperly(source)
	if err != nil {
		return nil, err
	}
	if !inside {
		clipped, err := clipByRect(p.ctx, source, p.clip[0], p.clip[1], p.clip[2], p.clip[3])
		if err != nil {
			return nil, err
		}
		replace(clipped)
		if empty, err := isEmpty(p.ctx, source); err != nil || empty {
			return nil, err
		}
	}

	projected, err := toTilePixels(p.ctx, source, &p.transform)
	if err != nil {
		return nil, err
	}
	replace(projected)

	if p.simplification > 0 {
		simplified, err := simplify(p.ctx, source, p.simplification)
		if err != nil {
			return nil, err
		}
		replace(simplified)
	}

	if p.precision > 0 {
		snapped, err := setPrecision(p.ctx, source, p.precision)
		if err != nil {
			return nil, err
		}
		replace(snapped)
	}

	if empty, err := isEmpty(p.ctx, source); err != nil || empty {
		return nil, err
	}

	return p.writer.WriteGeom(source)
}
