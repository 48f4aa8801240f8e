package cmd

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/ipc"
	"github.com/apache/arrow/go/arrow/memory"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

func writeFeather(t *testing.T, geometries []geom.T) string {
	t.Helper()

	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "geometry", Type: arrow.BinaryTypes.Binary},
		{Name: "name", Type: arrow.BinaryTypes.String},
	}, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, g := range geometries {
		buf, err := wkb.Marshal(g, binary.LittleEndian)
		require.NoError(t, err)
		b.Field(0).(*array.BinaryBuilder).Append(buf)
		b.Field(1).(*array.StringBuilder).Append(string(rune('a' + i)))
	}

	rec := b.NewRecord()
	defer rec.Release()

	path := filepath.Join(t.TempDir(), "test.feather")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func Test_Validate(t *testing.T) {
	bowtie := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 10, 10, 10, 0, 0, 10, 0, 0}, []int{10})
	square := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0}, []int{10})
	point := geom.NewPointFlat(geom.XY, []float64{1, 1})
	// outside the Mercator world bounds
	polarBowtie := geom.NewPolygonFlat(geom.XY, []float64{0, 86, 10, 88, 10, 86, 0, 88, 0, 86}, []int{10})

	path := writeFeather(t, []geom.T{square, bowtie, point, polarBowtie})

	invalid, err := validate(path, "geometry")
	require.NoError(t, err)
	require.Equal(t, 2, invalid)

	_, err = validate(path, "name")
	require.Error(t, err)
}

func Test_ValidateCmd_GeometryFromEnv(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	path := writeFeather(t, []geom.T{geom.NewPointFlat(geom.XY, []float64{1, 1})})

	rootCmd.SetArgs([]string{"validate", path})
	require.NoError(t, rootCmd.Execute())

	// a string column is not a geometry column
	t.Setenv("GEOSTILER_GEOMETRY", "name")
	rootCmd.SetArgs([]string{"validate", path})
	require.ErrorContains(t, rootCmd.Execute(), "WKB")
}
