package zarr

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/pkg/errors"
)

const checksumSize = 4

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Crc32cCodec appends a little-endian CRC32C checksum of its input
type Crc32cCodec struct{}

var _ BytesBytesCodec = Crc32cCodec{}

func newCrc32cCodecFromConfig(map[string]interface{}) (Codec, error) {
	return Crc32cCodec{}, nil
}

func (Crc32cCodec) Name() string                                                 { return "crc32c" }
func (Crc32cCodec) Kind() CodecKind                                              { return BytesToBytes }
func (Crc32cCodec) Configuration() map[string]interface{}                        { return nil }
func (Crc32cCodec) ResolveArrayMetadata(m *CoreArrayMetadata) *CoreArrayMetadata { return m }
func (Crc32cCodec) Validate(*CoreArrayMetadata) error                            { return nil }

func (Crc32cCodec) ComputeEncodedSize(n int64, _ *CoreArrayMetadata) (int64, error) {
	return n + checksumSize, nil
}

func (Crc32cCodec) EncodeBytes(b []byte, _ *CoreArrayMetadata) ([]byte, error) {
	out := make([]byte, len(b)+checksumSize)
	copy(out, b)
	binary.LittleEndian.PutUint32(out[len(b):], crc32.Checksum(b, castagnoli))
	return out, nil
}

func (Crc32cCodec) DecodeBytes(b []byte, _ *CoreArrayMetadata) ([]byte, error) {
	if len(b) < checksumSize {
		return nil, decodingErrorf("crc32c: %d bytes is too short to hold a checksum", len(b))
	}
	body := b[:len(b)-checksumSize]
	stored := binary.LittleEndian.Uint32(b[len(body):])
	if computed := crc32.Checksum(body, castagnoli); computed != stored {
		return nil, errors.Wrapf(ErrIntegrity, "crc32c: stored checksum %08x does not match computed %08x", stored, computed)
	}
	return body, nil
}
