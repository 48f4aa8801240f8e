package mvt

import "github.com/brendan-ward/geostiler/tiles"

// MercatorBoundsToGeoBounds converts xmin, ymin, xmax, ymax from Mercator
// to geographic coordinates.
func MercatorBoundsToGeoBounds(b [4]float64) [4]float64 {
	xmin, ymin := tiles.MercatorToGeo(b[0], b[1])
	xmax, ymax := tiles.MercatorToGeo(b[2], b[3])
	return [4]float64{xmin, ymin, xmax, ymax}
}
