package mvt

import (
	"encoding/binary"
	"math"
)

// protobuf wire types used by the MVT schema
const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

// fieldKey returns the single byte key of a protobuf field; all MVT field
// numbers used here are below 16.
func fieldKey(num int, wireType int) byte {
	return byte(num<<3 | wireType)
}

// Keys of the fields of vector_tile.proto that are written by the encoder.
var (
	FEATURE_ID_FIELD        = fieldKey(1, wireVarint)
	FEATURE_TAGS_FIELD      = fieldKey(2, wireBytes)
	FEATURE_GEOM_TYPE_FIELD = fieldKey(3, wireVarint)
	FEATURE_GEOMETRY_FIELD  = fieldKey(4, wireBytes)

	LAYER_NAME_FIELD     = fieldKey(1, wireBytes)
	LAYER_FEATURES_FIELD = fieldKey(2, wireBytes)
	LAYER_KEY_FIELD      = fieldKey(3, wireBytes)
	LAYER_VALUE_FIELD    = fieldKey(4, wireBytes)
	LAYER_EXTENT_FIELD   = fieldKey(5, wireVarint)
	LAYER_VERSION_FIELD  = fieldKey(15, wireVarint)

	VALUE_STRING_FIELD    = fieldKey(1, wireBytes)
	VALUE_FLOAT32_FIELD   = fieldKey(2, wireFixed32)
	VALUE_FLOAT64_FIELD   = fieldKey(3, wireFixed64)
	VALUE_INT64_FIELD     = fieldKey(4, wireVarint)
	VALUE_UVARINT64_FIELD = fieldKey(5, wireVarint)
	VALUE_VARINT64_FIELD  = fieldKey(6, wireVarint) // zigzag
	VALUE_BOOL_FIELD      = fieldKey(7, wireVarint)

	TILE_LAYERS_FIELD = fieldKey(3, wireBytes)
)

// MVT_VERSION is written to every layer
const MVT_VERSION byte = 2

// appendMessage appends a length-delimited field to buffer
func appendMessage(buffer []byte, field byte, message []byte) []byte {
	buffer = append(buffer, field)
	buffer = binary.AppendUvarint(buffer, uint64(len(message)))
	return append(buffer, message...)
}

// value builds a Value message from a single field and wraps it in the
// layer values field.
func value(field byte, payload []byte) []byte {
	inner := make([]byte, 0, len(payload)+1)
	inner = append(inner, field)
	inner = append(inner, payload...)
	return appendMessage(make([]byte, 0, len(inner)+3), LAYER_VALUE_FIELD, inner)
}

func lengthPrefixed(v []byte) []byte {
	return append(binary.AppendUvarint(nil, uint64(len(v))), v...)
}

// EncodeByteValue encodes raw bytes as a string Value.
func EncodeByteValue(v []byte) []byte {
	return value(VALUE_STRING_FIELD, lengthPrefixed(v))
}

func EncodeStringValue(v string) []byte {
	return value(VALUE_STRING_FIELD, lengthPrefixed([]byte(v)))
}

func EncodeUint64Value(v uint64) []byte {
	return value(VALUE_UVARINT64_FIELD, binary.AppendUvarint(nil, v))
}

// EncodeInt64Value uses the sint64 field so negative values stay short.
func EncodeInt64Value(v int64) []byte {
	return value(VALUE_VARINT64_FIELD, binary.AppendVarint(nil, v))
}

func EncodeFloat32Value(v float32) []byte {
	return value(VALUE_FLOAT32_FIELD, binary.LittleEndian.AppendUint32(nil, math.Float32bits(v)))
}

func EncodeFloat64Value(v float64) []byte {
	return value(VALUE_FLOAT64_FIELD, binary.LittleEndian.AppendUint64(nil, math.Float64bits(v)))
}

func EncodeBoolValue(v bool) []byte {
	var b uint64
	if v {
		b = 1
	}
	return value(VALUE_BOOL_FIELD, binary.AppendUvarint(nil, b))
}

// EncodeKey encodes a layer key field.
func EncodeKey(key string) []byte {
	return appendMessage(nil, LAYER_KEY_FIELD, []byte(key))
}
