package zarr

// Endian is the byte order a bytes codec stores multi-byte elements in
type Endian string

const (
	LittleEndian Endian = "little"
	BigEndian    Endian = "big"
)

// BytesCodec serializes an array as its fixed-width elements in C order
type BytesCodec struct {
	// Endian may be empty only for single byte data types
	Endian Endian
}

var _ ArrayBytesCodec = (*BytesCodec)(nil)

// NewBytesCodec creates a bytes codec with the given byte order
func NewBytesCodec(endian Endian) *BytesCodec {
	return &BytesCodec{Endian: endian}
}

func newBytesCodecFromConfig(conf map[string]interface{}) (Codec, error) {
	c := &BytesCodec{}
	if v, ok := conf["endian"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, configErrorf("bytes: endian must be a string, got %T", v)
		}
		c.Endian = Endian(s)
	}
	switch c.Endian {
	case "", LittleEndian, BigEndian:
	default:
		return nil, configErrorf("bytes: invalid endian %q", c.Endian)
	}
	return c, nil
}

func (c *BytesCodec) Name() string    { return "bytes" }
func (c *BytesCodec) Kind() CodecKind { return ArrayToBytes }

func (c *BytesCodec) Configuration() map[string]interface{} {
	if c.Endian == "" {
		return nil
	}
	return map[string]interface{}{"endian": string(c.Endian)}
}

func (c *BytesCodec) ComputeEncodedSize(n int64, _ *CoreArrayMetadata) (int64, error) {
	return n, nil
}

func (c *BytesCodec) ResolveArrayMetadata(m *CoreArrayMetadata) *CoreArrayMetadata { return m }

func (c *BytesCodec) Validate(m *CoreArrayMetadata) error {
	if c.Endian == "" && m.DataType.Size() > 1 {
		return configErrorf("bytes: endian is required for %s", m.DataType)
	}
	return nil
}

func (c *BytesCodec) EncodeArray(a *NDArray, m *CoreArrayMetadata) ([]byte, error) {
	if err := c.checkLength(len(a.Data), m); err != nil {
		return nil, err
	}
	out := append([]byte(nil), a.Data...)
	if c.Endian == BigEndian {
		swapBytes(out, m.DataType.componentSize())
	}
	return out, nil
}

func (c *BytesCodec) DecodeBytes(b []byte, m *CoreArrayMetadata) (*NDArray, error) {
	if err := c.checkLength(len(b), m); err != nil {
		return nil, err
	}
	data := append([]byte(nil), b...)
	if c.Endian == BigEndian {
		swapBytes(data, m.DataType.componentSize())
	}
	return &NDArray{
		Shape:    append([]int(nil), m.ChunkShape...),
		DataType: m.DataType,
		Data:     data,
	}, nil
}

func (c *BytesCodec) checkLength(n int, m *CoreArrayMetadata) error {
	want, err := m.ChunkByteLength()
	if err != nil {
		return err
	}
	if n != want {
		return decodingErrorf("bytes: expected %d bytes for chunk shape %v of %s, got %d", want, m.ChunkShape, m.DataType, n)
	}
	return nil
}

// swapBytes reverses the byte order of every width-sized unit in b
func swapBytes(b []byte, width int) {
	if width < 2 {
		return
	}
	for off := 0; off+width <= len(b); off += width {
		reverse(b[off : off+width])
	}
}
