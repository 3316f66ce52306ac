package zarr

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/qri-io/dataset/compression"
)

// compressors delegate to library implementations; their encoded size
// depends on content so ComputeEncodedSize always reports ErrUnknownSize.
type compressor struct{}

func (compressor) Kind() CodecKind                                              { return BytesToBytes }
func (compressor) ResolveArrayMetadata(m *CoreArrayMetadata) *CoreArrayMetadata { return m }
func (compressor) Validate(*CoreArrayMetadata) error                            { return nil }

func (compressor) ComputeEncodedSize(int64, *CoreArrayMetadata) (int64, error) {
	return 0, ErrUnknownSize
}

// decompress reads all of b through a format decompressor
func decompress(name string, b []byte, open func(io.Reader) (io.ReadCloser, error)) ([]byte, error) {
	rc, err := open(bytes.NewReader(b))
	if err != nil {
		return nil, decodingErrorf("%s: %s", name, err)
	}
	defer rc.Close()
	out, err := io.ReadAll(rc)
	if err != nil {
		return nil, decodingErrorf("%s: %s", name, err)
	}
	return out, nil
}

func compress(b []byte, open func(io.Writer) (io.WriteCloser, error)) ([]byte, error) {
	buf := &bytes.Buffer{}
	w, err := open(buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func intConfig(conf map[string]interface{}, key string, def int) (int, error) {
	v, ok := conf[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	case int:
		return n, nil
	}
	return 0, configErrorf("%s must be an integer, got %v", key, v)
}

// GzipCodec compresses with gzip at Level (0-9)
type GzipCodec struct {
	compressor
	Level int
}

var _ BytesBytesCodec = (*GzipCodec)(nil)

func newGzipCodecFromConfig(conf map[string]interface{}) (Codec, error) {
	level, err := intConfig(conf, "level", gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, configErrorf("gzip: invalid level %d", level)
	}
	return &GzipCodec{Level: level}, nil
}

func (c *GzipCodec) Name() string { return "gzip" }

func (c *GzipCodec) Configuration() map[string]interface{} {
	return map[string]interface{}{"level": c.Level}
}

func (c *GzipCodec) EncodeBytes(b []byte, _ *CoreArrayMetadata) ([]byte, error) {
	return compress(b, func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriterLevel(w, c.Level)
	})
}

func (c *GzipCodec) DecodeBytes(b []byte, _ *CoreArrayMetadata) ([]byte, error) {
	return decompress(c.Name(), b, func(r io.Reader) (io.ReadCloser, error) {
		return compression.Decompressor(string(compression.FmtGZip), r)
	})
}

// ZstdCodec compresses with zstandard
type ZstdCodec struct {
	compressor
	Level    int
	Checksum bool
}

var _ BytesBytesCodec = (*ZstdCodec)(nil)

func newZstdCodecFromConfig(conf map[string]interface{}) (Codec, error) {
	level, err := intConfig(conf, "level", 3)
	if err != nil {
		return nil, err
	}
	c := &ZstdCodec{Level: level}
	if v, ok := conf["checksum"]; ok {
		if c.Checksum, ok = v.(bool); !ok {
			return nil, configErrorf("zstd: checksum must be a boolean, got %v", v)
		}
	}
	return c, nil
}

func (c *ZstdCodec) Name() string { return "zstd" }

func (c *ZstdCodec) Configuration() map[string]interface{} {
	return map[string]interface{}{"level": c.Level, "checksum": c.Checksum}
}

func (c *ZstdCodec) EncodeBytes(b []byte, _ *CoreArrayMetadata) ([]byte, error) {
	return compress(b, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.Level)),
			zstd.WithEncoderCRC(c.Checksum),
		)
	})
}

func (c *ZstdCodec) DecodeBytes(b []byte, _ *CoreArrayMetadata) ([]byte, error) {
	return decompress(c.Name(), b, func(r io.Reader) (io.ReadCloser, error) {
		return compression.Decompressor(string(compression.FmtZStandard), r)
	})
}

// SnappyCodec compresses with the snappy block format
type SnappyCodec struct {
	compressor
}

var _ BytesBytesCodec = SnappyCodec{}

func newSnappyCodecFromConfig(map[string]interface{}) (Codec, error) {
	return SnappyCodec{}, nil
}

func (SnappyCodec) Name() string                          { return "snappy" }
func (SnappyCodec) Configuration() map[string]interface{} { return nil }

func (SnappyCodec) EncodeBytes(b []byte, _ *CoreArrayMetadata) ([]byte, error) {
	return snappy.Encode(nil, b), nil
}

func (SnappyCodec) DecodeBytes(b []byte, _ *CoreArrayMetadata) ([]byte, error) {
	out, err := snappy.Decode(nil, b)
	if err != nil {
		return nil, decodingErrorf("snappy: %s", err)
	}
	return out, nil
}

// Lz4Codec compresses with the lz4 frame format
type Lz4Codec struct {
	compressor
}

var _ BytesBytesCodec = Lz4Codec{}

func newLz4CodecFromConfig(map[string]interface{}) (Codec, error) {
	return Lz4Codec{}, nil
}

func (Lz4Codec) Name() string                          { return "lz4" }
func (Lz4Codec) Configuration() map[string]interface{} { return nil }

func (Lz4Codec) EncodeBytes(b []byte, _ *CoreArrayMetadata) ([]byte, error) {
	return compress(b, func(w io.Writer) (io.WriteCloser, error) {
		return lz4.NewWriter(w), nil
	})
}

func (Lz4Codec) DecodeBytes(b []byte, _ *CoreArrayMetadata) ([]byte, error) {
	return decompress("lz4", b, func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(lz4.NewReader(r)), nil
	})
}
