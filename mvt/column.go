package mvt

// colValue is an encoded MVT Value, or nil for a null value
type colValue []byte

// ByteColumn holds the encoded values of one attribute column.
type ByteColumn struct {
	Name string
	// TileJSON field type: String, Number or Boolean
	Type   string
	values []colValue
}

func NewByteColumn(name string, colType string, values []colValue) *ByteColumn {
	return &ByteColumn{Name: name, Type: colType, values: values}
}

// GetValue returns the encoded value of row i, or nil if it is null.
func (c *ByteColumn) GetValue(i int) []byte {
	return c.values[i]
}

func (c *ByteColumn) Size() int {
	return len(c.values)
}

// Take returns a column with the rows at indexes; encoded values are shared
// with c. Out of range indexes panic.
func (c *ByteColumn) Take(indexes []int) *ByteColumn {
	values := make([]colValue, 0, len(indexes))
	for _, index := range indexes {
		values = append(values, c.values[index])
	}
	return NewByteColumn(c.Name, c.Type, values)
}
