package tiles

import (
	"fmt"
	"math"
)

// CE is the circumference of the earth in Web Mercator meters.
var CE float64 = 2 * 6378137.0 * math.Pi

const (
	earthRadius = 6378137.0
	// latitude where Web Mercator is square
	maxLat = 85.051129
)

// WebMercator tile, numbered starting from upper left
type TileID struct {
	Zoom uint16
	X    uint32
	Y    uint32
}

func NewTileID(zoom uint16, x, y uint32) *TileID {
	return &TileID{zoom, x, y}
}

// GeoToMercator projects longitude, latitude to Web Mercator x, y.
// Latitude is clamped to the Mercator world bounds.
func GeoToMercator(lon float64, lat float64) (float64, float64) {
	lat = math.Min(math.Max(lat, -maxLat), maxLat)
	x := lon * earthRadius * math.Pi / 180.0
	y := earthRadius * math.Log(math.Tan(math.Pi/4.0+lat*math.Pi/360.0))
	return x, y
}

// MercatorToGeo converts Web Mercator x, y to longitude, latitude.
func MercatorToGeo(x float64, y float64) (float64, float64) {
	lon := x * 180.0 / (earthRadius * math.Pi)
	lat := (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2.0) * 180.0 / math.Pi
	return lon, lat
}

// tileFraction returns the position of longitude, latitude within the world
// in tile space, each between 0 and 1, origin at upper left.
func tileFraction(lon float64, lat float64) (float64, float64) {
	lon = math.Min(math.Max(lon, -180), 180)
	lat = math.Min(math.Max(lat, -maxLat), maxLat)

	sinLat := math.Sin(lat * math.Pi / 180)
	fx := lon/360.0 + 0.5
	fy := 0.5 - 0.25*math.Log((1.0+sinLat)/(1.0-sinLat))/math.Pi
	return math.Max(fx, 0), math.Max(fy, 0)
}

// tileIndex converts a tile space fraction to a tile index at a zoom with
// n tiles per side.
func tileIndex(f float64, n uint32) uint32 {
	const eps = 1e-14
	if f >= 1 {
		return n - 1
	}
	return uint32(math.Floor((f + eps) * float64(n)))
}

// GeoToTile calculates the tile at zoom that contains longitude, latitude.
func GeoToTile(zoom uint16, lon float64, lat float64) *TileID {
	n := uint32(1) << zoom
	fx, fy := tileFraction(lon, lat)
	return NewTileID(zoom, tileIndex(fx, n), tileIndex(fy, n))
}

// TileRange calculates the min tile x, min tile y, max tile x, max tile y tile
// range for Mercator coordinates xmin, ymin, xmax, ymax at a given zoom level
func TileRange(zoom uint16, bounds [4]float64) (*TileID, *TileID) {
	eps := 1.0e-11

	xmin, ymin := MercatorToGeo(bounds[0], bounds[1])
	xmax, ymax := MercatorToGeo(bounds[2], bounds[3])

	minTile := GeoToTile(zoom, xmin, ymax)
	maxTile := GeoToTile(zoom, xmax-eps, ymin+eps)

	return minTile, maxTile
}

// Tiles calls fn for every tile between minTile and maxTile (inclusive), in
// row-major order, stopping at the first error.
func Tiles(minTile, maxTile *TileID, fn func(*TileID) error) error {
	for x := minTile.X; x <= maxTile.X; x++ {
		for y := minTile.Y; y <= maxTile.Y; y++ {
			if err := fn(NewTileID(minTile.Zoom, x, y)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *TileID) String() string {
	return fmt.Sprintf("Tile(zoom: %v, x: %v, y: %v)", t.Zoom, t.X, t.Y)
}

// GeoBounds returns the tile's xmin, ymin, xmax, ymax in longitude, latitude.
func (t *TileID) GeoBounds() [4]float64 {
	b := t.MercatorBounds()
	xmin, ymin := MercatorToGeo(b[0], b[1])
	xmax, ymax := MercatorToGeo(b[2], b[3])
	return [4]float64{xmin, ymin, xmax, ymax}
}

// MercatorBounds returns the tile's xmin, ymin, xmax, ymax in Web Mercator.
func (t *TileID) MercatorBounds() [4]float64 {
	size := CE / float64(uint32(1)<<t.Zoom)
	xmin := float64(t.X)*size - CE/2
	ymax := CE/2 - float64(t.Y)*size
	return [4]float64{xmin, ymax - size, xmin + size, ymax}
}

// TMSRow returns the tile row numbered from the bottom (lower left origin),
// as stored in MBTiles.
func (t *TileID) TMSRow() uint32 {
	return uint32(1<<t.Zoom) - 1 - t.Y
}
