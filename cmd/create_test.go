package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/brendan-ward/geostiler/mbtiles"
	"github.com/brendan-ward/geostiler/tiles"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func Test_CreateOptionsFromConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("minzoom", 2)
	viper.Set("maxzoom", 1)
	_, err := createOptionsFromConfig("in.feather")
	require.ErrorContains(t, err, "minzoom")

	viper.Set("maxzoom", 4)
	viper.Set("extent", 256)
	viper.Set("buffer", 256)
	_, err = createOptionsFromConfig("in.feather")
	require.ErrorContains(t, err, "buffer")

	viper.Set("buffer", 16)
	viper.Set("precision", 0)
	viper.Set("simplify", 0)
	viper.Set("workers", 0)
	opts, err := createOptionsFromConfig("/data/rivers.feather")
	require.NoError(t, err)
	require.Equal(t, "rivers", opts.layer)
	require.Equal(t, "rivers", opts.name)
	require.Equal(t, 1, opts.workers)
	require.Equal(t, tiles.NewEncodingConfig(256, 16, 0, 0), opts.config)
}

func Test_Create(t *testing.T) {
	path := writeFeather(t, []geom.T{
		geom.NewPointFlat(geom.XY, []float64{-90, 45}),
		geom.NewLineStringFlat(geom.XY, []float64{-100, 40, -80, 40}),
	})
	outfilename := filepath.Join(t.TempDir(), "out.mbtiles")

	opts := &createOptions{
		minzoom:     0,
		maxzoom:     2,
		name:        "test",
		layer:       "features",
		geometryCol: "geometry",
		workers:     2,
		config:      tiles.NewDefaultEncodingConfig(),
	}
	require.NoError(t, create(context.Background(), path, outfilename, opts))

	reader, err := mbtiles.OpenMBtiles(outfilename, 1)
	require.NoError(t, err)
	defer reader.Close()

	for _, tile := range []*tiles.TileID{
		tiles.NewTileID(0, 0, 0),
		tiles.NewTileID(1, 0, 0),
		tiles.NewTileID(2, 1, 1),
	} {
		data, err := reader.ReadTile(tile)
		require.NoError(t, err)
		require.NotEmpty(t, data, tile.String())
	}

	metadata, err := reader.ReadMetadata()
	require.NoError(t, err)
	require.Equal(t, "test", metadata["name"])
	require.Equal(t, "2", metadata["maxzoom"])
}

func Test_TileCount(t *testing.T) {
	tests := []struct {
		minTile *tiles.TileID
		maxTile *tiles.TileID
		count   int
	}{
		{minTile: tiles.NewTileID(0, 0, 0), maxTile: tiles.NewTileID(0, 0, 0), count: 1},
		{minTile: tiles.NewTileID(4, 3, 7), maxTile: tiles.NewTileID(4, 7, 8), count: 10},
		{minTile: tiles.NewTileID(16, 0, 0), maxTile: tiles.NewTileID(16, 65535, 65535), count: 1 << 32},
	}

	for _, tc := range tests {
		require.Equal(t, tc.count, tileCount(tc.minTile, tc.maxTile), "%v - %v", tc.minTile, tc.maxTile)
	}
}
