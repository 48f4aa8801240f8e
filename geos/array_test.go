package geos

import (
	"fmt"
	"testing"

	"github.com/brendan-ward/geostiler/tiles"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"golang.org/x/sync/errgroup"
)

func newTestArray(t *testing.T, ctx *ContextHandle, wkts []string) *GeometryArray {
	t.Helper()
	array, err := NewGeometryArrayFromWKT(ctx, wkts)
	require.NoError(t, err)
	t.Cleanup(array.Release)
	return array
}

func Test_GeometryArray_FromWKT(t *testing.T) {
	ctx := newTestContext(t)

	array := newTestArray(t, ctx, []string{
		"POINT (1 2)",
		"",
		"LINESTRING (0 0, 10 10.123)",
	})

	require.Equal(t, 3, array.Size())
	require.Nil(t, array.Get(1))
	require.NotNil(t, array.Get(2))

	wkts, err := array.ToWKT(1)
	require.NoError(t, err)
	require.Equal(t, []string{"POINT (1 2)", "", "LINESTRING (0 0, 10 10.1)"}, wkts)

	require.Equal(t, "[<POINT (1 2)>, <>, <LINESTRING (0 0, 10 10.12)>]", array.String())

	_, err = NewGeometryArrayFromWKT(ctx, []string{"POINT (1 2)", "POINT (1"})
	require.ErrorContains(t, err, "index 1")
}

func Test_GeometryArray_FromWKB(t *testing.T) {
	ctx := newTestContext(t)

	g, err := NewPoint(ctx, 3, 4)
	require.NoError(t, err)
	defer g.Release()
	buf, err := g.ToWKB()
	require.NoError(t, err)

	array, err := NewGeometryArrayFromWKB(ctx, [][]byte{nil, buf, {}})
	require.NoError(t, err)
	defer array.Release()

	require.Equal(t, 3, array.Size())
	require.Nil(t, array.Get(0))
	require.Nil(t, array.Get(2))

	wkt, err := array.Get(1).ToWKT()
	require.NoError(t, err)
	require.Equal(t, "POINT (3 4)", wkt)
}

func Test_GeometryArray_TotalBounds(t *testing.T) {
	ctx := newTestContext(t)

	array := newTestArray(t, ctx, []string{
		"POINT (-1 5)",
		"",
		"POLYGON EMPTY",
		"LINESTRING (0 -2, 10 3)",
	})

	bounds, err := array.TotalBounds()
	require.NoError(t, err)
	require.Equal(t, [4]float64{-1, -2, 10, 5}, bounds)

	empty := newTestArray(t, ctx, []string{"", "POINT EMPTY"})
	_, err = empty.TotalBounds()
	require.Error(t, err)
}

func Test_GeometryArray_Query(t *testing.T) {
	ctx := newTestContext(t)

	array := newTestArray(t, ctx, []string{
		"POINT (0 0)",
		"",
		"POLYGON ((10 10, 20 10, 20 20, 10 20, 10 10))",
		"POINT EMPTY",
		"POINT (15 15)",
	})

	hits, err := array.Query(-1, -1, 1, 1)
	require.NoError(t, err)
	require.Equal(t, []int{0}, hits)

	hits, err = array.Query(12, 12, 16, 16)
	require.NoError(t, err)
	require.Equal(t, []int{2, 4}, hits)

	hits, err = array.Query(50, 50, 60, 60)
	require.NoError(t, err)
	require.Nil(t, hits)
}

func Test_GeometryArray_Take(t *testing.T) {
	ctx := newTestContext(t)

	array := newTestArray(t, ctx, []string{"POINT (0 0)", "POINT (1 1)", "POINT (2 2)"})

	view := array.Take([]int{2, 0})
	require.Equal(t, 2, view.Size())
	require.Same(t, array.Get(2), view.Get(0))

	hits, err := view.Query(1.5, 1.5, 3, 3)
	require.NoError(t, err)
	require.Equal(t, []int{0}, hits)

	// releasing the view leaves the source geometries intact
	view.Release()
	wkts, err := array.ToWKT(0)
	require.NoError(t, err)
	require.Equal(t, []string{"POINT (0 0)", "POINT (1 1)", "POINT (2 2)"}, wkts)
}

func Test_GeometryArray_ToMercator(t *testing.T) {
	ctx := newTestContext(t)

	array, err := NewGeometryArrayFromWKT(ctx, []string{"POINT (-90 0)", "POINT (0 89)", ""})
	require.NoError(t, err)
	defer array.Release()

	projected, err := array.ToMercator()
	require.NoError(t, err)
	defer projected.Release()

	require.Equal(t, 3, projected.Size())
	require.Nil(t, projected.Get(1))
	require.Nil(t, projected.Get(2))

	b, err := projected.Get(0).Bounds()
	require.NoError(t, err)
	require.InDelta(t, -10018754.171394, b[0], 1e-6)
	require.InDelta(t, 0, b[1], 1e-6)

	require.NoError(t, array.ToMercatorInPlace())
	require.Equal(t, 3, array.Size())
	b, err = array.Get(0).Bounds()
	require.NoError(t, err)
	require.InDelta(t, -10018754.171394, b[0], 1e-6)
}

// geometries in Mercator coordinates around tile 1/0/0, which covers
// xmin: -20037508.342789, ymin: 0, xmax: 0, ymax: 20037508.342789
var tileTestWKTs = []string{
	// center of the tile
	"POINT (-10018754.171394 10018754.171394)",
	// center of tile 1/1/0
	"POINT (10018754.171394 10018754.171394)",
	"LINESTRING (-10018754.171394 10018754.171394, 10018754.171394 10018754.171394)",
	"",
	"POINT EMPTY",
}

func Test_GeometryArray_ToTile(t *testing.T) {
	ctx := newTestContext(t)
	array := newTestArray(t, ctx, tileTestWKTs)
	tile := tiles.NewTileID(1, 0, 0)

	tests := []struct {
		config   *tiles.EncodingConfig
		expected [][]float64
	}{
		{
			config:   tiles.NewEncodingConfig(4096, 0, 1, 0),
			expected: [][]float64{{2048, 2048}, {2048, 2048, 4096, 2048}},
		},
		{
			config:   tiles.NewEncodingConfig(4096, 64, 1, 0),
			expected: [][]float64{{2048, 2048}, {2048, 2048, 4160, 2048}},
		},
		{
			config:   tiles.NewEncodingConfig(256, 0, 1, 0),
			expected: [][]float64{{128, 128}, {128, 128, 256, 128}},
		},
	}

	for _, tc := range tests {
		indexes, geoms, err := array.ToTile(tile, tc.config)
		require.NoError(t, err)
		require.Equal(t, []int{0, 2}, indexes)
		require.Len(t, geoms, 2)

		require.IsType(t, &geom.Point{}, geoms[0])
		require.IsType(t, &geom.LineString{}, geoms[1])
		for i, g := range geoms {
			require.Equal(t, tc.expected[i], g.FlatCoords(), "config: %+v", tc.config)
		}
	}

	// nothing in tile
	indexes, geoms, err := array.ToTile(tiles.NewTileID(1, 0, 1), nil)
	require.NoError(t, err)
	require.Empty(t, indexes)
	require.Empty(t, geoms)
}

func Test_GeometryArray_ToTile_Buffer(t *testing.T) {
	ctx := newTestContext(t)
	// 20 pixels (at extent 4096) east of tile 1/0/0, inside tile 1/1/0
	pixel := tiles.CE / 2 / 4096
	array := newTestArray(t, ctx, []string{
		fmt.Sprintf("POINT (%f 10018754.171394)", 20*pixel),
	})
	tile := tiles.NewTileID(1, 0, 0)

	indexes, _, err := array.ToTile(tile, tiles.NewEncodingConfig(4096, 0, 1, 0))
	require.NoError(t, err)
	require.Empty(t, indexes)

	indexes, geoms, err := array.ToTile(tile, tiles.NewEncodingConfig(4096, 64, 1, 0))
	require.NoError(t, err)
	require.Equal(t, []int{0}, indexes)
	require.Equal(t, []float64{4116, 2048}, geoms[0].FlatCoords())

	// beyond the buffer
	indexes, _, err = array.ToTile(tile, tiles.NewEncodingConfig(4096, 16, 1, 0))
	require.NoError(t, err)
	require.Empty(t, indexes)
}

func Test_GeometryArray_ToTile_Concurrent(t *testing.T) {
	ctx := newTestContext(t)
	array := newTestArray(t, ctx, tileTestWKTs)
	config := tiles.NewEncodingConfig(4096, 0, 1, 0)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for x := uint32(0); x < 2; x++ {
				indexes, _, err := array.ToTile(tiles.NewTileID(1, x, 0), config)
				if err != nil {
					return err
				}
				if len(indexes) != 2 {
					t.Errorf("tile %v: expected 2 geometries, got %v", tiles.NewTileID(1, x, 0), indexes)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
