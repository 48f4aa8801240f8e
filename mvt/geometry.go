package mvt

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
)

// MVT geometry types
const (
	GEOM_TYPE_UNKNOWN    byte = 0
	GEOM_TYPE_POINT      byte = 1
	GEOM_TYPE_LINESTRING byte = 2
	GEOM_TYPE_POLYGON    byte = 3
)

// MVT geometry command IDs
const (
	cmdMoveTo    uint32 = 1
	cmdLineTo    uint32 = 2
	cmdClosePath uint32 = 7
)

// ErrUnsupportedGeometry is returned for geometries that have no MVT
// representation, such as GeometryCollections.
var ErrUnsupportedGeometry = errors.New("geometry type not supported in vector tiles")

type point [2]int32

func commandInteger(id uint32, count int) uint32 {
	return (id & 0x7) | (uint32(count) << 3)
}

func zigzag(v int32) uint32 {
	return uint32((v << 1) ^ (v >> 31))
}

// geometryEncoder writes MVT commands; the cursor carries over between
// parts of the same feature.
type geometryEncoder struct {
	commands []uint32
	cursor   point
}

func (e *geometryEncoder) delta(p point) {
	e.commands = append(e.commands, zigzag(p[0]-e.cursor[0]), zigzag(p[1]-e.cursor[1]))
	e.cursor = p
}

func (e *geometryEncoder) points(points []point) {
	if len(points) == 0 {
		return
	}
	e.commands = append(e.commands, commandInteger(cmdMoveTo, len(points)))
	for _, p := range points {
		e.delta(p)
	}
}

func (e *geometryEncoder) line(points []point) {
	points = dedupe(points)
	if len(points) < 2 {
		return
	}
	e.commands = append(e.commands, commandInteger(cmdMoveTo, 1))
	e.delta(points[0])
	e.commands = append(e.commands, commandInteger(cmdLineTo, len(points)-1))
	for _, p := range points[1:] {
		e.delta(p)
	}
}

// ring writes a polygon ring, oriented so that exterior rings have positive
// area and interior rings negative area in tile coordinates (y down).
// Returns false if the ring collapsed and was not written.
func (e *geometryEncoder) ring(points []point, exterior bool) bool {
	points = dedupe(points)
	if len(points) > 1 && points[0] == points[len(points)-1] {
		points = points[:len(points)-1]
	}
	if len(points) < 3 {
		return false
	}

	area := ringArea(points)
	if area == 0 {
		return false
	}
	if (area > 0) != exterior {
		reverse(points)
	}

	e.commands = append(e.commands, commandInteger(cmdMoveTo, 1))
	e.delta(points[0])
	e.commands = append(e.commands, commandInteger(cmdLineTo, len(points)-1))
	for _, p := range points[1:] {
		e.delta(p)
	}
	e.commands = append(e.commands, commandInteger(cmdClosePath, 1))
	return true
}

func (e *geometryEncoder) polygon(p *geom.Polygon) {
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i)
		if !e.ring(toPoints(ring.FlatCoords(), ring.Stride()), i == 0) && i == 0 {
			// holes are meaningless without their exterior
			return
		}
	}
}

// EncodeGeometry encodes a geometry in tile pixel coordinates as MVT
// geometry commands. Coordinates are rounded to integers, and lines and
// rings that collapse as a result are dropped.
// Returns GEOM_TYPE_UNKNOWN and nil commands if nothing remains.
func EncodeGeometry(g geom.T) (byte, []uint32, error) {
	e := &geometryEncoder{}
	var geomType byte

	switch g := g.(type) {
	case *geom.Point:
		geomType = GEOM_TYPE_POINT
		if !g.Empty() {
			e.points(toPoints(g.FlatCoords(), g.Stride()))
		}
	case *geom.MultiPoint:
		geomType = GEOM_TYPE_POINT
		e.points(toPoints(g.FlatCoords(), g.Stride()))
	case *geom.LineString:
		geomType = GEOM_TYPE_LINESTRING
		e.line(toPoints(g.FlatCoords(), g.Stride()))
	case *geom.MultiLineString:
		geomType = GEOM_TYPE_LINESTRING
		for i := 0; i < g.NumLineStrings(); i++ {
			line := g.LineString(i)
			e.line(toPoints(line.FlatCoords(), line.Stride()))
		}
	case *geom.Polygon:
		geomType = GEOM_TYPE_POLYGON
		e.polygon(g)
	case *geom.MultiPolygon:
		geomType = GEOM_TYPE_POLYGON
		for i := 0; i < g.NumPolygons(); i++ {
			e.polygon(g.Polygon(i))
		}
	default:
		return GEOM_TYPE_UNKNOWN, nil, errors.Wrapf(ErrUnsupportedGeometry, "%T", g)
	}

	if len(e.commands) == 0 {
		return GEOM_TYPE_UNKNOWN, nil, nil
	}
	return geomType, e.commands, nil
}

func toPoints(flatCoords []float64, stride int) []point {
	if stride == 0 {
		return nil
	}
	points := make([]point, 0, len(flatCoords)/stride)
	for i := 0; i+1 < len(flatCoords); i += stride {
		points = append(points, point{int32(math.Round(flatCoords[i])), int32(math.Round(flatCoords[i+1]))})
	}
	return points
}

// dedupe removes consecutive repeated points in place.
func dedupe(points []point) []point {
	if len(points) < 2 {
		return points
	}
	out := points[:1]
	for _, p := range points[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// ringArea returns twice the signed area of an unclosed ring (surveyor's
// formula).
func ringArea(points []point) int64 {
	var area int64
	for i, p := range points {
		next := points[(i+1)%len(points)]
		area += int64(p[0])*int64(next[1]) - int64(next[0])*int64(p[1])
	}
	return area
}

func reverse(points []point) {
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
}
