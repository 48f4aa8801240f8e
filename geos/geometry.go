package geos

// #include "geos.h"
import "C"
import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// GeometryType is the GEOS geometry type identifier.
type GeometryType int

const (
	TypePoint GeometryType = iota
	TypeLineString
	TypeLinearRing
	TypePolygon
	TypeMultiPoint
	TypeMultiLineString
	TypeMultiPolygon
	TypeGeometryCollection
)

var geometryTypeNames = [...]string{
	"Point",
	"LineString",
	"LinearRing",
	"Polygon",
	"MultiPoint",
	"MultiLineString",
	"MultiPolygon",
	"GeometryCollection",
}

func (t GeometryType) String() string {
	if t < 0 || int(t) >= len(geometryTypeNames) {
		return fmt.Sprintf("GeometryType(%d)", int(t))
	}
	return geometryTypeNames[t]
}

// maxMercatorLat is the latitude at which Web Mercator becomes square.
const maxMercatorLat = 85.0511287798066

// Geometry owns a GEOS geometry (GEOSGeometry).
// Geometry must be manually freed using Release().
type Geometry struct {
	contextHolder
	ptr *C.GEOSGeometry
}

var (
	_ RawAccessor[C.GEOSGeometry]    = (*Geometry)(nil)
	_ RawMutAccessor[C.GEOSGeometry] = (*Geometry)(nil)
	_ ContextHandling                = (*Geometry)(nil)
	_ ContextInteractions            = (*Geometry)(nil)
)

func newGeometry(ctx *ContextHandle, ptr *C.GEOSGeometry) *Geometry {
	return &Geometry{
		contextHolder: holdContext(ctx),
		ptr:           ptr,
	}
}

// geometryResult takes ownership of a geometry returned by GEOS.
func geometryResult(ctx *ContextHandle, ptr *C.GEOSGeometry, op string) (*Geometry, error) {
	if ptr == nil {
		return nil, ctx.newError("geos: %s failed", op)
	}
	return newGeometry(ctx, ptr), nil
}

func checkContext(ctx *ContextHandle) error {
	if ctx == nil || ctx.ptr == nil {
		return ErrReleased
	}
	return nil
}

func checkRaw(g RawAccessor[C.GEOSGeometry]) (Borrowed[C.GEOSGeometry], error) {
	if g == nil {
		return Borrowed[C.GEOSGeometry]{}, ErrReleased
	}
	raw := g.AsRaw()
	if raw.IsNil() {
		return raw, ErrReleased
	}
	return raw, nil
}

// NewGeometryFromWKT creates a Geometry from Well-Known Text.
func NewGeometryFromWKT(ctx *ContextHandle, wkt string) (*Geometry, error) {
	reader, err := NewWKTReader(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	return reader.Read(wkt)
}

// NewGeometryFromWKB creates a Geometry from Well-Known Binary.
func NewGeometryFromWKB(ctx *ContextHandle, buf []byte) (*Geometry, error) {
	reader, err := NewWKBReader(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	return reader.Read(buf)
}

// NewGeometryFromGeom creates a Geometry from a go-geom geometry.
func NewGeometryFromGeom(ctx *ContextHandle, g geom.T) (*Geometry, error) {
	if g == nil {
		return nil, errors.New("geos: cannot create Geometry from nil geometry")
	}
	buf, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return nil, errors.Wrap(err, "geos: could not encode geometry to WKB")
	}
	return NewGeometryFromWKB(ctx, buf)
}

// NewPoint creates a Point Geometry.
func NewPoint(ctx *ContextHandle, x, y float64) (*Geometry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	return geometryResult(ctx, C.GEOSGeom_createPointFromXY_r(ctx.raw(), C.double(x), C.double(y)), "create Point")
}

// NewLineString creates a LineString Geometry from x, y coordinate pairs.
func NewLineString(ctx *ContextHandle, coords [][2]float64) (*Geometry, error) {
	seq, err := NewCoordSeqFromXY(ctx, coords)
	if err != nil {
		return nil, err
	}
	defer seq.Release()

	// the LineString takes ownership of the coordinate sequence
	return geometryResult(ctx, C.GEOSGeom_createLineString_r(ctx.raw(), seq.take()), "create LineString")
}

// NewRectangle creates a Polygon Geometry for the box xmin, ymin, xmax, ymax.
func NewRectangle(ctx *ContextHandle, xmin, ymin, xmax, ymax float64) (*Geometry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	ptr := C.GEOSGeom_createRectangle_r(ctx.raw(), C.double(xmin), C.double(ymin), C.double(xmax), C.double(ymax))
	return geometryResult(ctx, ptr, "create rectangle")
}

// Release the GEOS Geometry and drop the reference to its context.
func (g *Geometry) Release() {
	if g == nil || g.ptr == nil {
		return
	}
	C.GEOSGeom_destroy_r(g.rawContext(), g.ptr)
	g.ptr = nil
	g.releaseContext()
}

func (g *Geometry) check() error {
	if g == nil || g.ptr == nil {
		return ErrReleased
	}
	return nil
}

// AsRaw returns a read-only view of the native geometry.
func (g *Geometry) AsRaw() Borrowed[C.GEOSGeometry] {
	if g == nil {
		return Borrowed[C.GEOSGeometry]{}
	}
	return borrow(g.ptr)
}

// AsRawMutOverride returns the native geometry for calls that modify it.
func (g *Geometry) AsRawMutOverride() *C.GEOSGeometry {
	if g == nil {
		return nil
	}
	return g.ptr
}

// Clone creates a deep copy of the geometry that uses an independent
// context, so it can be used from another goroutine.
func (g *Geometry) Clone() (*Geometry, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	ctx, err := g.CloneContext()
	if err != nil {
		return nil, err
	}
	defer ctx.Release()

	return cloneGeometry(ctx, g.AsRaw())
}

// Type returns the GEOS name of the geometry type, e.g. "Polygon".
func (g *Geometry) Type() (string, error) {
	if err := g.check(); err != nil {
		return "", err
	}
	return geometryTypeName(g.ctx, g.AsRaw())
}

func (g *Geometry) TypeID() (GeometryType, error) {
	if err := g.check(); err != nil {
		return 0, err
	}
	return geometryTypeID(g.ctx, g.AsRaw())
}

func (g *Geometry) IsEmpty() (bool, error) {
	if err := g.check(); err != nil {
		return false, err
	}
	return isEmpty(g.ctx, g.AsRaw())
}

// IsValid returns true if the geometry is topologically valid.
// If it is not, GEOS records the reason as a notification that can be
// retrieved with LastNotification().
func (g *Geometry) IsValid() (bool, error) {
	if err := g.check(); err != nil {
		return false, err
	}
	return charResult(g.ctx, byte(C.GEOSisValid_r(g.rawContext(), g.AsRaw().raw())), "isValid")
}

// IsValidReason returns "Valid Geometry" or the reason the geometry is invalid.
func (g *Geometry) IsValidReason() (string, error) {
	if err := g.check(); err != nil {
		return "", err
	}
	reason := C.GEOSisValidReason_r(g.rawContext(), g.AsRaw().raw())
	if reason == nil {
		return "", g.ctx.newError("geos: isValidReason failed")
	}
	defer C.GEOSFree_r(g.rawContext(), unsafe.Pointer(reason))
	return C.GoString(reason), nil
}

func (g *Geometry) NumGeometries() (int, error) {
	if err := g.check(); err != nil {
		return 0, err
	}
	return numGeometries(g.ctx, g.AsRaw())
}

// GeometryN returns the n-th (zero-based) part of a collection. The returned
// ConstGeometry is owned by g and is only valid until g is released.
func (g *Geometry) GeometryN(n int) (*ConstGeometry, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	ptr := C.GEOSGetGeometryN_r(g.rawContext(), g.AsRaw().raw(), C.int(n))
	if ptr == nil {
		return nil, g.ctx.newError("geos: get geometry %d failed", n)
	}
	return &ConstGeometry{
		contextHolder: holdContext(g.ctx),
		ptr:           borrow(ptr),
		parent:        g,
	}, nil
}

// Bounds returns xmin, ymin, xmax, ymax of the geometry.
// Fails for empty geometries.
func (g *Geometry) Bounds() ([4]float64, error) {
	if err := g.check(); err != nil {
		return [4]float64{}, err
	}
	return bounds(g.ctx, g.AsRaw())
}

func (g *Geometry) Area() (float64, error) {
	if err := g.check(); err != nil {
		return 0, err
	}
	var area C.double
	if C.GEOSArea_r(g.rawContext(), g.AsRaw().raw(), &area) == 0 {
		return 0, g.ctx.newError("geos: area failed")
	}
	return float64(area), nil
}

func (g *Geometry) Length() (float64, error) {
	if err := g.check(); err != nil {
		return 0, err
	}
	var length C.double
	if C.GEOSLength_r(g.rawContext(), g.AsRaw().raw(), &length) == 0 {
		return 0, g.ctx.newError("geos: length failed")
	}
	return float64(length), nil
}

func (g *Geometry) Intersects(other RawAccessor[C.GEOSGeometry]) (bool, error) {
	if err := g.check(); err != nil {
		return false, err
	}
	raw, err := checkRaw(other)
	if err != nil {
		return false, err
	}
	return charResult(g.ctx, byte(C.GEOSIntersects_r(g.rawContext(), g.AsRaw().raw(), raw.raw())), "intersects")
}

// Intersection returns a new Geometry that shares g's context.
func (g *Geometry) Intersection(other RawAccessor[C.GEOSGeometry]) (*Geometry, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	raw, err := checkRaw(other)
	if err != nil {
		return nil, err
	}
	return geometryResult(g.ctx, C.GEOSIntersection_r(g.rawContext(), g.AsRaw().raw(), raw.raw()), "intersection")
}

// ClipByRect returns the part of the geometry within the rectangle.
// The result may not be valid for invalid inputs.
func (g *Geometry) ClipByRect(xmin, ymin, xmax, ymax float64) (*Geometry, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return clipByRect(g.ctx, g.AsRaw(), xmin, ymin, xmax, ymax)
}

// Simplify simplifies the geometry with the given tolerance while
// preserving its topology.
func (g *Geometry) Simplify(tolerance float64) (*Geometry, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return simplify(g.ctx, g.AsRaw(), tolerance)
}

// SetPrecision returns a copy of the geometry with all coordinates snapped
// to a grid of gridSize.
func (g *Geometry) SetPrecision(gridSize float64) (*Geometry, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return setPrecision(g.ctx, g.AsRaw(), gridSize)
}

func (g *Geometry) MakeValid() (*Geometry, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return geometryResult(g.ctx, C.GEOSMakeValid_r(g.rawContext(), g.AsRaw().raw()), "makeValid")
}

// Normalize rewrites the geometry in place into its normal form.
func (g *Geometry) Normalize() error {
	if err := g.check(); err != nil {
		return err
	}
	if C.GEOSNormalize_r(g.rawContext(), AsRawMut[C.GEOSGeometry](g)) == -1 {
		return g.ctx.newError("geos: normalize failed")
	}
	return nil
}

func (g *Geometry) SRID() (int, error) {
	if err := g.check(); err != nil {
		return 0, err
	}
	return int(C.GEOSGetSRID_r(g.rawContext(), g.AsRaw().raw())), nil
}

func (g *Geometry) SetSRID(srid int) error {
	if err := g.check(); err != nil {
		return err
	}
	C.GEOSSetSRID_r(g.rawContext(), AsRawMut[C.GEOSGeometry](g), C.int(srid))
	return nil
}

// ToWKT writes the geometry using Well-Known Text, trimming trailing zeros.
func (g *Geometry) ToWKT() (string, error) {
	if err := g.check(); err != nil {
		return "", err
	}
	writer, err := NewWKTWriter(g.ctx)
	if err != nil {
		return "", err
	}
	defer writer.Release()

	if err = writer.SetTrim(true); err != nil {
		return "", err
	}
	return writer.Write(g)
}

// ToWKB writes the geometry using little endian Well-Known Binary.
func (g *Geometry) ToWKB() ([]byte, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	writer, err := NewWKBWriter(g.ctx)
	if err != nil {
		return nil, err
	}
	defer writer.Release()

	return writer.Write(g)
}

// ToGeom converts the geometry to a go-geom geometry.
func (g *Geometry) ToGeom() (geom.T, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	writer, err := NewWKBWriter(g.ctx)
	if err != nil {
		return nil, err
	}
	defer writer.Release()

	return writer.WriteGeom(g)
}

// ToMercator returns a copy of the geometry, in geographic coordinates,
// projected to Web Mercator. Parts outside the Mercator world bounds are
// clipped away; returns nil if nothing remains.
func (g *Geometry) ToMercator() (*Geometry, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return toMercator(g.ctx, g.AsRaw())
}

// ConstGeometry is a read-only geometry owned by another Geometry, such as a
// part of a collection. It is only valid as long as its parent has not been
// released, and it cannot be modified through this wrapper.
// ConstGeometry must be manually freed using Release(); this does not free
// the underlying geometry.
type ConstGeometry struct {
	contextHolder
	ptr    Borrowed[C.GEOSGeometry]
	parent *Geometry
}

var (
	_ RawAccessor[C.GEOSGeometry] = (*ConstGeometry)(nil)
	_ ContextHandling             = (*ConstGeometry)(nil)
	_ ContextInteractions         = (*ConstGeometry)(nil)
)

func (g *ConstGeometry) Release() {
	if g == nil || g.ptr.IsNil() {
		return
	}
	g.ptr = Borrowed[C.GEOSGeometry]{}
	g.parent = nil
	g.releaseContext()
}

func (g *ConstGeometry) check() error {
	if g == nil || g.ptr.IsNil() || g.parent.check() != nil {
		return ErrReleased
	}
	return nil
}

func (g *ConstGeometry) AsRaw() Borrowed[C.GEOSGeometry] {
	if g.check() != nil {
		return Borrowed[C.GEOSGeometry]{}
	}
	return g.ptr
}

// Clone creates an owned deep copy, with an independent context.
func (g *ConstGeometry) Clone() (*Geometry, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	ctx, err := g.CloneContext()
	if err != nil {
		return nil, err
	}
	defer ctx.Release()

	return cloneGeometry(ctx, g.ptr)
}

func (g *ConstGeometry) Type() (string, error) {
	if err := g.check(); err != nil {
		return "", err
	}
	return geometryTypeName(g.ctx, g.ptr)
}

func (g *ConstGeometry) TypeID() (GeometryType, error) {
	if err := g.check(); err != nil {
		return 0, err
	}
	return geometryTypeID(g.ctx, g.ptr)
}

func (g *ConstGeometry) IsEmpty() (bool, error) {
	if err := g.check(); err != nil {
		return false, err
	}
	return isEmpty(g.ctx, g.ptr)
}

func (g *ConstGeometry) Bounds() ([4]float64, error) {
	if err := g.check(); err != nil {
		return [4]float64{}, err
	}
	return bounds(g.ctx, g.ptr)
}

func (g *ConstGeometry) ToWKT() (string, error) {
	if err := g.check(); err != nil {
		return "", err
	}
	writer, err := NewWKTWriter(g.ctx)
	if err != nil {
		return "", err
	}
	defer writer.Release()

	if err = writer.SetTrim(true); err != nil {
		return "", err
	}
	return writer.Write(g)
}

// Operations shared by Geometry, ConstGeometry and GeometryArray. Results
// are owned by the caller and hold a reference to ctx.

func cloneGeometry(ctx *ContextHandle, src Borrowed[C.GEOSGeometry]) (*Geometry, error) {
	return geometryResult(ctx, C.GEOSGeom_clone_r(ctx.raw(), src.raw()), "clone")
}

func geometryTypeName(ctx *ContextHandle, src Borrowed[C.GEOSGeometry]) (string, error) {
	name := C.GEOSGeomType_r(ctx.raw(), src.raw())
	if name == nil {
		return "", ctx.newError("geos: get geometry type failed")
	}
	defer C.GEOSFree_r(ctx.raw(), unsafe.Pointer(name))
	return C.GoString(name), nil
}

func geometryTypeID(ctx *ContextHandle, src Borrowed[C.GEOSGeometry]) (GeometryType, error) {
	id := C.GEOSGeomTypeId_r(ctx.raw(), src.raw())
	if id < 0 {
		return 0, ctx.newError("geos: get geometry type failed")
	}
	return GeometryType(id), nil
}

func isEmpty(ctx *ContextHandle, src Borrowed[C.GEOSGeometry]) (bool, error) {
	return charResult(ctx, byte(C.GEOSisEmpty_r(ctx.raw(), src.raw())), "isEmpty")
}

func numGeometries(ctx *ContextHandle, src Borrowed[C.GEOSGeometry]) (int, error) {
	n := C.GEOSGetNumGeometries_r(ctx.raw(), src.raw())
	if n < 0 {
		return 0, ctx.newError("geos: get number of geometries failed")
	}
	return int(n), nil
}

func bounds(ctx *ContextHandle, src Borrowed[C.GEOSGeometry]) ([4]float64, error) {
	var xmin, ymin, xmax, ymax C.double
	if C.GEOSGeom_getXMin_r(ctx.raw(), src.raw(), &xmin) == 0 ||
		C.GEOSGeom_getYMin_r(ctx.raw(), src.raw(), &ymin) == 0 ||
		C.GEOSGeom_getXMax_r(ctx.raw(), src.raw(), &xmax) == 0 ||
		C.GEOSGeom_getYMax_r(ctx.raw(), src.raw(), &ymax) == 0 {
		return [4]float64{}, ctx.newError("geos: get bounds failed")
	}
	return [4]float64{float64(xmin), float64(ymin), float64(xmax), float64(ymax)}, nil
}

func clipByRect(ctx *ContextHandle, src Borrowed[C.GEOSGeometry], xmin, ymin, xmax, ymax float64) (*Geometry, error) {
	ptr := C.GEOSClipByRect_r(ctx.raw(), src.raw(), C.double(xmin), C.double(ymin), C.double(xmax), C.double(ymax))
	return geometryResult(ctx, ptr, "clip by rect")
}

func simplify(ctx *ContextHandle, src Borrowed[C.GEOSGeometry], tolerance float64) (*Geometry, error) {
	ptr := C.GEOSTopologyPreserveSimplify_r(ctx.raw(), src.raw(), C.double(tolerance))
	return geometryResult(ctx, ptr, "simplify")
}

func setPrecision(ctx *ContextHandle, src Borrowed[C.GEOSGeometry], gridSize float64) (*Geometry, error) {
	ptr := C.GEOSGeom_setPrecision_r(ctx.raw(), src.raw(), C.double(gridSize), 0)
	return geometryResult(ctx, ptr, "set precision")
}

func toMercator(ctx *ContextHandle, src Borrowed[C.GEOSGeometry]) (*Geometry, error) {
	clipped, err := clipByRect(ctx, src, -180, -maxMercatorLat, 180, maxMercatorLat)
	if err != nil {
		return nil, err
	}
	defer clipped.Release()

	empty, err := isEmpty(ctx, clipped.AsRaw())
	if err != nil || empty {
		return nil, err
	}

	return geometryResult(ctx, C.project_to_mercator(ctx.raw(), clipped.AsRaw().raw()), "project to Mercator")
}

func toTilePixels(ctx *ContextHandle, src Borrowed[C.GEOSGeometry], transform *C.tile_transform) (*Geometry, error) {
	return geometryResult(ctx, C.project_to_tile(ctx.raw(), src.raw(), transform), "project to tile")
}
