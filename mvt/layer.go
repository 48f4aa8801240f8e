package mvt

import "encoding/binary"

// layerBuilder accumulates the features of a single layer. Tag keys and
// values are stored once per layer and referenced by index from features.
type layerBuilder struct {
	name       string
	extent     uint16
	keyIndex   map[string]uint32
	valueIndex map[string]uint32
	keys       []byte
	values     []byte
	features   []byte
	count      int
}

func newLayerBuilder(name string, extent uint16) *layerBuilder {
	return &layerBuilder{
		name:       name,
		extent:     extent,
		keyIndex:   make(map[string]uint32),
		valueIndex: make(map[string]uint32),
	}
}

// appendTag appends the key and value indexes of a tag to tags.
// value must already be encoded as a Value message.
func (b *layerBuilder) appendTag(tags []byte, key string, value []byte) []byte {
	keyIdx, ok := b.keyIndex[key]
	if !ok {
		keyIdx = uint32(len(b.keyIndex))
		b.keyIndex[key] = keyIdx
		b.keys = append(b.keys, EncodeKey(key)...)
	}
	tags = binary.AppendUvarint(tags, uint64(keyIdx))

	valIdx, ok := b.valueIndex[string(value)]
	if !ok {
		valIdx = uint32(len(b.valueIndex))
		b.valueIndex[string(value)] = valIdx
		b.values = append(b.values, value...)
	}
	return binary.AppendUvarint(tags, uint64(valIdx))
}

func (b *layerBuilder) addFeature(id *uint64, geomType byte, tags []byte, commands []uint32) {
	var geometry []byte
	for _, v := range commands {
		// convert uint32 => MVT varint
		geometry = binary.AppendUvarint(geometry, uint64(v))
	}

	var feature []byte
	if id != nil {
		feature = append(feature, FEATURE_ID_FIELD)
		feature = binary.AppendUvarint(feature, *id)
	}

	// tippecanoe encodes geometry type before tags
	feature = append(feature, FEATURE_GEOM_TYPE_FIELD, geomType)
	if len(tags) > 0 {
		feature = appendMessage(feature, FEATURE_TAGS_FIELD, tags)
	}
	feature = appendMessage(feature, FEATURE_GEOMETRY_FIELD, geometry)

	b.features = appendMessage(b.features, LAYER_FEATURES_FIELD, feature)
	b.count++
}

// Len returns the number of features added so far.
func (b *layerBuilder) Len() int {
	return b.count
}

// Bytes returns the layer wrapped as a Tile layers field, so that layers can
// be concatenated to form a tile.
func (b *layerBuilder) Bytes() []byte {
	layer := make([]byte, 0, len(b.name)+len(b.keys)+len(b.values)+len(b.features)+16)
	layer = append(layer, LAYER_VERSION_FIELD, MVT_VERSION)
	layer = appendMessage(layer, LAYER_NAME_FIELD, []byte(b.name))
	layer = append(layer, LAYER_EXTENT_FIELD)
	layer = binary.AppendUvarint(layer, uint64(b.extent))
	layer = append(layer, b.keys...)
	layer = append(layer, b.values...)
	layer = append(layer, b.features...)

	return appendMessage(make([]byte, 0, len(layer)+8), TILE_LAYERS_FIELD, layer)
}
