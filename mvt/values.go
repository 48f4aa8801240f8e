package mvt

import (
	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/cockroachdb/errors"
)

// valueEncoder encodes the non-null value at row i of an arrow array as an
// MVT Value.
type valueEncoder func(arr array.Interface, i int) []byte

var errNegativeID = errors.New("cannot use column with negative value for id")

func signedValue(arr array.Interface, i int) (int64, bool) {
	switch a := arr.(type) {
	case *array.Int8:
		return int64(a.Value(i)), true
	case *array.Int16:
		return int64(a.Value(i)), true
	case *array.Int32:
		return int64(a.Value(i)), true
	case *array.Int64:
		return a.Value(i), true
	}
	return 0, false
}

func unsignedValue(arr array.Interface, i int) (uint64, bool) {
	switch a := arr.(type) {
	case *array.Uint8:
		return uint64(a.Value(i)), true
	case *array.Uint16:
		return uint64(a.Value(i)), true
	case *array.Uint32:
		return uint64(a.Value(i)), true
	case *array.Uint64:
		return a.Value(i), true
	}
	return 0, false
}

// encoderFor returns the encoder for values of dt along with the TileJSON
// field type reported in the layer metadata.
func encoderFor(dt arrow.DataType) (valueEncoder, string, error) {
	switch dt.ID() {
	case arrow.BINARY:
		return func(arr array.Interface, i int) []byte {
			return EncodeByteValue(arr.(*array.Binary).Value(i))
		}, "String", nil
	case arrow.STRING:
		return func(arr array.Interface, i int) []byte {
			return EncodeStringValue(arr.(*array.String).Value(i))
		}, "String", nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return func(arr array.Interface, i int) []byte {
			v, _ := signedValue(arr, i)
			return EncodeInt64Value(v)
		}, "Number", nil
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return func(arr array.Interface, i int) []byte {
			v, _ := unsignedValue(arr, i)
			return EncodeUint64Value(v)
		}, "Number", nil
	case arrow.FLOAT32:
		return func(arr array.Interface, i int) []byte {
			return EncodeFloat32Value(arr.(*array.Float32).Value(i))
		}, "Number", nil
	case arrow.FLOAT64:
		return func(arr array.Interface, i int) []byte {
			return EncodeFloat64Value(arr.(*array.Float64).Value(i))
		}, "Number", nil
	case arrow.BOOL:
		return func(arr array.Interface, i int) []byte {
			return EncodeBoolValue(arr.(*array.Boolean).Value(i))
		}, "Boolean", nil
	default:
		return nil, "", errors.Newf("type not supported: %v", dt.ID())
	}
}

// encodeColumn encodes every row of data; null rows are stored as nil.
func encodeColumn(field arrow.Field, data *array.Chunked, size int) (*ByteColumn, error) {
	encode, colType, err := encoderFor(field.Type)
	if err != nil {
		return nil, errors.Wrapf(err, "column '%s'", field.Name)
	}

	values := make([]colValue, 0, size)
	for _, chunk := range data.Chunks() {
		for j := 0; j < chunk.Len(); j++ {
			if chunk.IsNull(j) {
				values = append(values, nil)
				continue
			}
			values = append(values, encode(chunk, j))
		}
	}
	return NewByteColumn(field.Name, colType, values), nil
}

// featureID returns the value at row i of an integer column as a feature id.
func featureID(arr array.Interface, i int) (uint64, error) {
	if arr.IsNull(i) {
		return 0, errors.New("cannot use column with null value for id")
	}
	if v, ok := unsignedValue(arr, i); ok {
		return v, nil
	}
	v, ok := signedValue(arr, i)
	if !ok {
		return 0, errors.New("cannot use non-integer column for id")
	}
	if v < 0 {
		return 0, errNegativeID
	}
	return uint64(v), nil
}
