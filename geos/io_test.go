package geos

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_WKTWriter(t *testing.T) {
	ctx := newTestContext(t)

	writer, err := NewWKTWriter(ctx)
	require.NoError(t, err)
	defer writer.Release()

	require.NoError(t, writer.SetOutputDimension(3))
	dim, err := writer.OutputDimension()
	require.NoError(t, err)
	require.Equal(t, 3, dim)

	g, err := NewGeometryFromWKT(ctx, "POINT Z (1.123456 2 3)")
	require.NoError(t, err)
	defer g.Release()

	require.NoError(t, writer.SetTrim(true))
	require.NoError(t, writer.SetRoundingPrecision(2))
	wkt, err := writer.Write(g)
	require.NoError(t, err)
	require.Equal(t, "POINT Z (1.12 2 3)", wkt)

	require.NoError(t, writer.SetOutputDimension(2))
	wkt, err = writer.Write(g)
	require.NoError(t, err)
	require.Equal(t, "POINT (1.12 2)", wkt)

	writer.Release()
	_, err = writer.OutputDimension()
	require.ErrorIs(t, err, ErrReleased)
}

func Test_WKB_RoundTrip(t *testing.T) {
	ctx := newTestContext(t)

	g, err := NewGeometryFromWKT(ctx, "POLYGON ((0 0, 1 0, 1 1, 0 0))")
	require.NoError(t, err)
	defer g.Release()

	writer, err := NewWKBWriter(ctx)
	require.NoError(t, err)
	defer writer.Release()

	order, err := writer.ByteOrder()
	require.NoError(t, err)
	require.Equal(t, LittleEndian, order)

	buf, err := writer.Write(g)
	require.NoError(t, err)
	// little endian byte order marker, then polygon type
	require.Equal(t, []byte{1, 3, 0, 0, 0}, buf[:5])

	require.NoError(t, writer.SetByteOrder(BigEndian))
	hex, err := writer.WriteHEX(g)
	require.NoError(t, err)
	require.Equal(t, "0000000003", hex[:10])

	reader, err := NewWKBReader(ctx)
	require.NoError(t, err)
	defer reader.Release()

	for _, read := range []func() (*Geometry, error){
		func() (*Geometry, error) { return reader.Read(buf) },
		func() (*Geometry, error) { return reader.ReadHEX(hex) },
	} {
		out, err := read()
		require.NoError(t, err)
		wkt, err := out.ToWKT()
		require.NoError(t, err)
		require.Equal(t, "POLYGON ((0 0, 1 0, 1 1, 0 0))", wkt)
		out.Release()
	}

	_, err = reader.Read(nil)
	require.Error(t, err)

	_, err = reader.Read([]byte{1, 2, 3})
	require.Error(t, err)
	var geosErr GEOSError
	require.ErrorAs(t, err, &geosErr)
}

func Test_WKBWriter_Settings(t *testing.T) {
	ctx := newTestContext(t)

	writer, err := NewWKBWriter(ctx)
	require.NoError(t, err)
	defer writer.Release()

	require.NoError(t, writer.SetOutputDimension(3))
	dim, err := writer.OutputDimension()
	require.NoError(t, err)
	require.Equal(t, 3, dim)

	require.NoError(t, writer.SetIncludeSRID(true))
	include, err := writer.IncludeSRID()
	require.NoError(t, err)
	require.True(t, include)

	g, err := NewPoint(ctx, 1, 2)
	require.NoError(t, err)
	defer g.Release()
	require.NoError(t, g.SetSRID(4326))

	buf, err := writer.Write(g)
	require.NoError(t, err)

	reader, err := NewWKBReader(ctx)
	require.NoError(t, err)
	defer reader.Release()

	out, err := reader.Read(buf)
	require.NoError(t, err)
	defer out.Release()

	srid, err := out.SRID()
	require.NoError(t, err)
	require.Equal(t, 4326, srid)
}

func Test_CoordSeq(t *testing.T) {
	ctx := newTestContext(t)

	seq, err := NewCoordSeqFromXY(ctx, [][2]float64{{0, 1}, {2, 3}})
	require.NoError(t, err)
	defer seq.Release()

	size, err := seq.Size()
	require.NoError(t, err)
	require.EqualValues(t, 2, size)

	require.NoError(t, seq.SetXY(1, 5, 6))
	x, y, err := seq.XY(1)
	require.NoError(t, err)
	require.Equal(t, 5.0, x)
	require.Equal(t, 6.0, y)

	_, _, err = seq.XY(2)
	require.Error(t, err)
}

func Test_STRtree(t *testing.T) {
	ctx := newTestContext(t)

	wkts := []string{
		"POINT (0 0)",
		"POLYGON ((10 10, 20 10, 20 20, 10 20, 10 10))",
		"LINESTRING (5 5, 15 5)",
		"POINT (100 100)",
	}

	tree, err := NewSTRtree(ctx, 10)
	require.NoError(t, err)
	defer tree.Release()

	geometries := make([]*Geometry, len(wkts))
	for i, wkt := range wkts {
		geometries[i], err = NewGeometryFromWKT(ctx, wkt)
		require.NoError(t, err)
		defer geometries[i].Release()
		require.NoError(t, tree.Insert(geometries[i], i))
	}

	tests := []struct {
		bounds   [4]float64
		expected []int
	}{
		{bounds: [4]float64{-1, -1, 1, 1}, expected: []int{0}},
		{bounds: [4]float64{0, 0, 12, 12}, expected: []int{0, 1, 2}},
		{bounds: [4]float64{12, 4, 16, 16}, expected: []int{1, 2}},
		{bounds: [4]float64{50, 50, 60, 60}, expected: nil},
	}

	for _, tc := range tests {
		hits, err := tree.Query(tc.bounds[0], tc.bounds[1], tc.bounds[2], tc.bounds[3])
		require.NoError(t, err)
		require.Equal(t, tc.expected, hits, "bounds: %v", tc.bounds)
	}

	// the tree is built by the first query and is then read-only
	extra, err := NewPoint(ctx, 1, 1)
	require.NoError(t, err)
	defer extra.Release()
	require.ErrorIs(t, tree.Insert(extra, len(wkts)), ErrTreeBuilt)

	hits, err := tree.Query(0, 0, 2, 2)
	require.NoError(t, err)
	require.Equal(t, []int{0}, hits)

	tree.Release()
	_, err = tree.Query(0, 0, 1, 1)
	require.ErrorIs(t, err, ErrReleased)
}

func Test_STRtree_InsertError(t *testing.T) {
	ctx := newTestContext(t)

	tree, err := NewSTRtree(ctx, 10)
	require.NoError(t, err)
	defer tree.Release()

	point, err := NewPoint(ctx, 1, 1)
	require.NoError(t, err)
	defer point.Release()

	// a message left over from an earlier call is not reported by Insert
	ctx.recordError("stale")
	require.NoError(t, tree.Insert(point, 0))
	_, ok := ctx.LastError()
	require.False(t, ok)

	require.ErrorIs(t, tree.Insert(nil, 1), ErrReleased)
}

func Test_PreparedGeometry(t *testing.T) {
	ctx := newTestContext(t)

	square, err := NewRectangle(ctx, 0, 0, 10, 10)
	require.NoError(t, err)
	defer square.Release()

	prepared, err := square.Prepare()
	require.NoError(t, err)
	defer prepared.Release()

	tests := []struct {
		wkt              string
		intersects       bool
		contains         bool
		containsProperly bool
	}{
		{wkt: "POINT (5 5)", intersects: true, contains: true, containsProperly: true},
		{wkt: "LINESTRING (0 0, 10 0)", intersects: true, contains: false, containsProperly: false},
		{wkt: "LINESTRING (0 5, 5 5)", intersects: true, contains: true, containsProperly: false},
		{wkt: "POINT (20 20)", intersects: false, contains: false, containsProperly: false},
	}

	for _, tc := range tests {
		g, err := NewGeometryFromWKT(ctx, tc.wkt)
		require.NoError(t, err)

		intersects, err := prepared.Intersects(g)
		require.NoError(t, err)
		require.Equal(t, tc.intersects, intersects, tc.wkt)

		contains, err := prepared.Contains(g)
		require.NoError(t, err)
		require.Equal(t, tc.contains, contains, tc.wkt)

		containsProperly, err := prepared.ContainsProperly(g)
		require.NoError(t, err)
		require.Equal(t, tc.containsProperly, containsProperly, tc.wkt)

		g.Release()
	}

	// a released argument is rejected before reaching GEOS
	g, err := NewPoint(ctx, 1, 1)
	require.NoError(t, err)
	g.Release()
	_, err = prepared.Intersects(g)
	require.ErrorIs(t, err, ErrReleased)
}
