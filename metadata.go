package zarr

import (
	"encoding/json"

	"github.com/pkg/errors"
)

const (
	// ZarrFormat is the storage specification version this library writes
	ZarrFormat = 3
	// MetadataKey is the key array metadata is stored under, relative to the
	// array's path
	MetadataKey = "zarr.json"

	nodeTypeArray = "array"
	gridRegular   = "regular"
)

// Attributes stores userland metadata
type Attributes map[string]interface{}

// Each array requires essential configuration metadata to be stored,
// enabling correct interpretation of the stored data.
// This metadata is encoded using JSON and stored as the value of the
// "zarr.json" key within an array store.
type ArrayMetadata struct {
	// An integer defining the version of the storage specification to which
	// the array store adheres.
	ZarrFormat int `json:"zarr_format"`
	// Always "array"
	NodeType string `json:"node_type"`
	// A list of integers defining the length of each dimension of the array.
	Shape []int `json:"shape"`
	// The data type of array elements
	DataType DataType `json:"data_type"`
	// The partition of the array into chunks. Only the "regular" grid is
	// supported; every chunk has the same shape, trailing chunks may
	// extend past the array bounds.
	ChunkGrid ChunkGrid `json:"chunk_grid"`
	// How chunk coordinates are turned into store keys
	ChunkKeyEncoding ChunkKeyEncoding `json:"chunk_key_encoding"`
	// A scalar value providing the default value to use for uninitialized
	// portions of the array. See ParseFillValue for accepted forms.
	FillValue json.RawMessage `json:"fill_value"`
	// The codecs chunks are encoded with, in encoding order
	Codecs []CodecMeta `json:"codecs"`

	// optional fields

	Attributes     Attributes `json:"attributes,omitempty"`
	DimensionNames []*string  `json:"dimension_names,omitempty"`
}

// ChunkGrid is the chunk_grid metadata object
type ChunkGrid struct {
	Name          string          `json:"name"`
	Configuration ChunkGridConfig `json:"configuration"`
}

// ChunkGridConfig configures a regular chunk grid
type ChunkGridConfig struct {
	ChunkShape []int `json:"chunk_shape"`
}

// NewArrayMetadata describes an array with a regular chunk grid, default
// chunk key encoding and the given codec pipeline. fillValue is marshaled
// to JSON; nil means the zero value.
func NewArrayMetadata(shape, chunkShape []int, dt DataType, fillValue interface{}, codecs *CodecPipeline) (*ArrayMetadata, error) {
	fv, err := json.Marshal(fillValue)
	if err != nil {
		return nil, configErrorf("fill value: %s", err)
	}
	if codecs == nil {
		if codecs, err = NewCodecPipeline(NewBytesCodec(LittleEndian)); err != nil {
			return nil, err
		}
	}
	return &ArrayMetadata{
		ZarrFormat: ZarrFormat,
		NodeType:   nodeTypeArray,
		Shape:      append([]int(nil), shape...),
		DataType:   dt,
		ChunkGrid: ChunkGrid{
			Name:          gridRegular,
			Configuration: ChunkGridConfig{ChunkShape: append([]int(nil), chunkShape...)},
		},
		ChunkKeyEncoding: DefaultChunkKeyEncoding(),
		FillValue:        fv,
		Codecs:           codecs.ToMetadata(),
	}, nil
}

// ParseArrayMetadata decodes a zarr.json document
func ParseArrayMetadata(d []byte) (*ArrayMetadata, error) {
	m := &ArrayMetadata{}
	if err := json.Unmarshal(d, m); err != nil {
		return nil, errors.Wrap(ErrConfiguration, err.Error())
	}
	return m, nil
}

// Build validates the metadata and produces the immutable core metadata and
// codec pipeline an array is read and written with. All configuration errors
// (codec composition, shard shapes, fill value) surface here.
func (m *ArrayMetadata) Build() (*CoreArrayMetadata, *CodecPipeline, error) {
	if m.ZarrFormat != ZarrFormat {
		return nil, nil, configErrorf("unsupported zarr_format %d", m.ZarrFormat)
	}
	if m.NodeType != nodeTypeArray {
		return nil, nil, configErrorf("node_type must be %q, got %q", nodeTypeArray, m.NodeType)
	}
	if _, err := ParseDataType(string(m.DataType)); err != nil {
		return nil, nil, err
	}
	if _, err := ShapeProduct(m.Shape); err != nil {
		return nil, nil, configErrorf("shape %v: %s", m.Shape, err)
	}

	if m.ChunkGrid.Name != gridRegular {
		return nil, nil, configErrorf("unsupported chunk grid %q", m.ChunkGrid.Name)
	}
	chunkShape := m.ChunkGrid.Configuration.ChunkShape
	if len(chunkShape) != len(m.Shape) {
		return nil, nil, configErrorf("chunk shape %v does not match rank of shape %v", chunkShape, m.Shape)
	}
	for _, s := range chunkShape {
		if s <= 0 {
			return nil, nil, configErrorf("chunk shape must be positive, got %v", chunkShape)
		}
	}
	if m.DimensionNames != nil && len(m.DimensionNames) != len(m.Shape) {
		return nil, nil, configErrorf("%d dimension names for %d dimensions", len(m.DimensionNames), len(m.Shape))
	}
	if err := m.ChunkKeyEncoding.validate(); err != nil {
		return nil, nil, err
	}

	fill, err := ParseFillValue(m.FillValue, m.DataType)
	if err != nil {
		return nil, nil, err
	}
	core := NewCoreArrayMetadata(m.Shape, chunkShape, m.DataType, fill)

	pipeline, err := BuildCodecPipeline(m.Codecs)
	if err != nil {
		return nil, nil, err
	}
	if err := pipeline.Validate(core); err != nil {
		return nil, nil, err
	}
	return core, pipeline, nil
}

// WithShape returns a copy of the metadata with a new array shape
func (m *ArrayMetadata) WithShape(shape []int) *ArrayMetadata {
	cp := *m
	cp.Shape = append([]int(nil), shape...)
	return &cp
}
