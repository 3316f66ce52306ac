package zarr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func sequentialInt32(shape []int) *NDArray {
	n := mustProduct(shape)
	v := make([]int32, n)
	for i := range v {
		v[i] = int32(i)
	}
	a, err := NewNDArrayFromSlice(shape, v)
	if err != nil {
		panic(err)
	}
	return a
}

func TestNewCodecPipelineValidation(t *testing.T) {
	le := NewBytesCodec(LittleEndian)
	cases := []struct {
		description string
		codecs      []Codec
	}{
		{"empty", nil},
		{"two array->bytes codecs", []Codec{le, NewBytesCodec(BigEndian)}},
		{"array->array after array->bytes", []Codec{le, NewTransposeCodec(1, 0)}},
		{"bytes->bytes before array->array", []Codec{Crc32cCodec{}, NewTransposeCodec(1, 0), le}},
		{"bytes->bytes before array->bytes", []Codec{Crc32cCodec{}, le}},
		{"only bytes->bytes", []Codec{Crc32cCodec{}}},
		{"nil codec", []Codec{le, nil}},
	}
	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			_, err := NewCodecPipeline(c.codecs...)
			require.ErrorIs(t, err, ErrConfiguration)
		})
	}

	p, err := NewCodecPipeline(NewTransposeCodec(1, 0), le, &GzipCodec{Level: 5}, Crc32cCodec{})
	require.NoError(t, err)
	require.Len(t, p.Codecs(), 4)
	require.False(t, p.SupportsPartialDecode())
}

func TestCodecPipelineRoundTrip(t *testing.T) {
	m := NewCoreArrayMetadata([]int{6, 8}, []int{3, 4}, Int32, make([]byte, 4))
	p, err := NewCodecPipeline(
		NewTransposeCodec(1, 0),
		NewBytesCodec(BigEndian),
		&ZstdCodec{Level: 3, Checksum: true},
		Crc32cCodec{},
	)
	require.NoError(t, err)
	require.NoError(t, p.Validate(m))

	in := sequentialInt32(m.ChunkShape)
	enc, err := p.Encode(in, m)
	require.NoError(t, err)

	out, err := p.Decode(enc, m)
	require.NoError(t, err)
	require.True(t, in.Equal(out), "decoded chunk differs from input")
}

func TestCodecPipelineEncodedSize(t *testing.T) {
	m := NewCoreArrayMetadata([]int{4, 4}, []int{4, 4}, Float64, make([]byte, 8))
	p, err := NewCodecPipeline(NewBytesCodec(LittleEndian), Crc32cCodec{}, Crc32cCodec{})
	require.NoError(t, err)
	size, err := p.ComputeEncodedSize(m)
	require.NoError(t, err)
	require.Equal(t, int64(16*8+8), size)

	p, err = NewCodecPipeline(NewBytesCodec(LittleEndian), SnappyCodec{})
	require.NoError(t, err)
	_, err = p.ComputeEncodedSize(m)
	require.ErrorIs(t, err, ErrUnknownSize)
}

// nilCodec is a bytes->bytes stage that forgets to return a result
type nilCodec struct{ compressor }

func (nilCodec) Name() string                                           { return "nil" }
func (nilCodec) Configuration() map[string]interface{}                  { return nil }
func (nilCodec) EncodeBytes([]byte, *CoreArrayMetadata) ([]byte, error) { return nil, nil }
func (nilCodec) DecodeBytes([]byte, *CoreArrayMetadata) ([]byte, error) { return nil, nil }

func TestCodecPipelineMissingResult(t *testing.T) {
	m := NewCoreArrayMetadata([]int{2}, []int{2}, Uint8, []byte{0})
	p, err := NewCodecPipeline(NewBytesCodec(""), nilCodec{})
	require.NoError(t, err)

	_, err = p.Encode(sequentialUint8(2), m)
	require.ErrorIs(t, err, ErrInternal)
	require.False(t, errors.Is(err, ErrDecoding))

	_, err = p.Decode([]byte{1, 2}, m)
	require.ErrorIs(t, err, ErrInternal)
}

func sequentialUint8(n int) *NDArray {
	v := make([]uint8, n)
	for i := range v {
		v[i] = uint8(i)
	}
	a, _ := NewNDArrayFromSlice([]int{n}, v)
	return a
}

func TestBuildCodecPipelineFromMetadata(t *testing.T) {
	p, err := BuildCodecPipeline([]CodecMeta{
		{Name: "transpose", Configuration: map[string]interface{}{"order": []interface{}{1.0, 0.0}}},
		{Name: "bytes", Configuration: map[string]interface{}{"endian": "little"}},
		{Name: "gzip", Configuration: map[string]interface{}{"level": 1.0}},
	})
	require.NoError(t, err)
	require.Equal(t, "bytes", p.ArrayBytesCodec().Name())

	_, err = BuildCodecPipeline([]CodecMeta{{Name: "blosc"}})
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = BuildCodecPipeline([]CodecMeta{{Name: "bytes", Configuration: map[string]interface{}{"endian": "middle"}}})
	require.ErrorIs(t, err, ErrConfiguration)

	require.Contains(t, CodecNames(), "sharding_indexed")
}
