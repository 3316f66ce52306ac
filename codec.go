package zarr

// CoreArrayMetadata is the immutable view of an array every codec call
// receives. Codecs that change the array's shape (eg. transpose) hand
// downstream codecs a resolved copy; the original is never mutated.
type CoreArrayMetadata struct {
	Shape      []int
	ChunkShape []int
	DataType   DataType
	// FillValue holds one little-endian encoded element
	FillValue []byte
}

// NewCoreArrayMetadata copies its arguments into a new instance
func NewCoreArrayMetadata(shape, chunkShape []int, dt DataType, fill []byte) *CoreArrayMetadata {
	return &CoreArrayMetadata{
		Shape:      append([]int(nil), shape...),
		ChunkShape: append([]int(nil), chunkShape...),
		DataType:   dt,
		FillValue:  append([]byte(nil), fill...),
	}
}

// WithChunkShape returns a copy of m in which both the array and chunk shape
// are chunkShape: the view a codec nested inside a single chunk has.
func (m *CoreArrayMetadata) WithChunkShape(chunkShape []int) *CoreArrayMetadata {
	return NewCoreArrayMetadata(chunkShape, chunkShape, m.DataType, m.FillValue)
}

// Rank is the number of dimensions
func (m *CoreArrayMetadata) Rank() int { return len(m.Shape) }

// ChunkByteLength is the decoded size of one chunk in bytes
func (m *CoreArrayMetadata) ChunkByteLength() (int, error) {
	n, err := ShapeProduct(m.ChunkShape)
	if err != nil {
		return 0, err
	}
	return n * m.DataType.Size(), nil
}

// CodecKind discriminates the three codec roles
type CodecKind int

const (
	// ArrayToArray codecs transform a typed array into another typed array
	ArrayToArray CodecKind = iota
	// ArrayToBytes codecs serialize a typed array
	ArrayToBytes
	// BytesToBytes codecs transform a byte sequence
	BytesToBytes
)

func (k CodecKind) String() string {
	switch k {
	case ArrayToArray:
		return "array->array"
	case ArrayToBytes:
		return "array->bytes"
	case BytesToBytes:
		return "bytes->bytes"
	default:
		return "unknown"
	}
}

// Codec is the behaviour shared by every codec. Kind determines which of the
// role interfaces (ArrayArrayCodec, ArrayBytesCodec, BytesBytesCodec) the
// codec also implements.
type Codec interface {
	Name() string
	Kind() CodecKind
	// Configuration is the codec's "configuration" metadata object
	Configuration() map[string]interface{}
	// ComputeEncodedSize predicts the output length for an input of n bytes
	ComputeEncodedSize(n int64, m *CoreArrayMetadata) (int64, error)
	// ResolveArrayMetadata returns the metadata the next codec will see
	ResolveArrayMetadata(m *CoreArrayMetadata) *CoreArrayMetadata
	// Validate checks the codec can process arrays described by m
	Validate(m *CoreArrayMetadata) error
}

// ArrayArrayCodec transforms one chunk-shaped typed array into another
type ArrayArrayCodec interface {
	Codec
	EncodeArray(a *NDArray, m *CoreArrayMetadata) (*NDArray, error)
	DecodeArray(a *NDArray, m *CoreArrayMetadata) (*NDArray, error)
}

// ArrayBytesCodec serializes a chunk-shaped typed array
type ArrayBytesCodec interface {
	Codec
	EncodeArray(a *NDArray, m *CoreArrayMetadata) ([]byte, error)
	DecodeBytes(b []byte, m *CoreArrayMetadata) (*NDArray, error)
}

// BytesBytesCodec transforms an encoded byte sequence
type BytesBytesCodec interface {
	Codec
	EncodeBytes(b []byte, m *CoreArrayMetadata) ([]byte, error)
	DecodeBytes(b []byte, m *CoreArrayMetadata) ([]byte, error)
}

// PartialDecoder is implemented by array->bytes codecs able to decode a
// region of a chunk by reading only parts of its encoded bytes
type PartialDecoder interface {
	DecodePartial(src ByteSource, offset, shape []int, m *CoreArrayMetadata) (*NDArray, error)
}
