package tiles

import "github.com/cockroachdb/errors"

// MaxZoom is the highest zoom level supported for tile creation.
const MaxZoom uint16 = 24

// EncodingConfig holds parameters used for encoding tiles. Buffer, Precision
// and Simplification are in tile pixels; Precision and Simplification are
// disabled when 0.
type EncodingConfig struct {
	Extent         uint16
	Buffer         uint16
	Precision      uint8
	Simplification uint8
}

func NewDefaultEncodingConfig() *EncodingConfig {
	return &EncodingConfig{
		Extent:         4096, // pixels, vector tile default
		Buffer:         256,  // pixels, PostGIS default
		Precision:      1,    // pixels
		Simplification: 1,    // pixels
	}
}

func NewEncodingConfig(extent uint16, buffer uint16, precision uint8, simplification uint8) *EncodingConfig {
	return &EncodingConfig{
		Extent:         extent,
		Buffer:         buffer,
		Precision:      precision,
		Simplification: simplification,
	}
}

func (c *EncodingConfig) Validate() error {
	if c.Extent == 0 {
		return errors.New("extent must be greater than 0")
	}
	if c.Buffer >= c.Extent {
		return errors.Newf("buffer (%d) must be less than extent (%d)", c.Buffer, c.Extent)
	}
	return nil
}

// ValidateZoomRange checks that minzoom and maxzoom describe a valid range.
func ValidateZoomRange(minzoom, maxzoom uint16) error {
	if maxzoom > MaxZoom {
		return errors.Newf("maxzoom must be no more than %d", MaxZoom)
	}
	if minzoom > maxzoom {
		return errors.Newf("minzoom (%d) must be less than or equal to maxzoom (%d)", minzoom, maxzoom)
	}
	return nil
}
