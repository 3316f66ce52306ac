package zarr

import (
	"github.com/pkg/errors"
)

// CodecPipeline is an ordered, validated composition of codecs converting a
// chunk-shaped array to bytes and back. It is immutable once constructed.
type CodecPipeline struct {
	codecs     []Codec
	arrayArray []ArrayArrayCodec
	arrayBytes ArrayBytesCodec
	bytesBytes []BytesBytesCodec
}

// NewCodecPipeline checks codecs hold exactly one array->bytes codec, with
// array->array codecs only before it and bytes->bytes codecs only after it
func NewCodecPipeline(codecs ...Codec) (*CodecPipeline, error) {
	p := &CodecPipeline{codecs: append([]Codec(nil), codecs...)}

	for i, c := range codecs {
		if c == nil {
			return nil, configErrorf("codec %d is nil", i)
		}
		switch c.Kind() {
		case ArrayToArray:
			if p.arrayBytes != nil {
				return nil, configErrorf("array->array codec %q follows the array->bytes codec", c.Name())
			}
			aa, ok := c.(ArrayArrayCodec)
			if !ok {
				return nil, configErrorf("codec %q does not implement the array->array role", c.Name())
			}
			p.arrayArray = append(p.arrayArray, aa)
		case ArrayToBytes:
			if p.arrayBytes != nil {
				return nil, configErrorf("more than one array->bytes codec: %q and %q", p.arrayBytes.Name(), c.Name())
			}
			ab, ok := c.(ArrayBytesCodec)
			if !ok {
				return nil, configErrorf("codec %q does not implement the array->bytes role", c.Name())
			}
			p.arrayBytes = ab
		case BytesToBytes:
			if p.arrayBytes == nil {
				return nil, configErrorf("bytes->bytes codec %q precedes the array->bytes codec", c.Name())
			}
			bb, ok := c.(BytesBytesCodec)
			if !ok {
				return nil, configErrorf("codec %q does not implement the bytes->bytes role", c.Name())
			}
			p.bytesBytes = append(p.bytesBytes, bb)
		default:
			return nil, configErrorf("codec %q has unknown kind %d", c.Name(), c.Kind())
		}
	}

	if p.arrayBytes == nil {
		return nil, configErrorf("pipeline has no array->bytes codec")
	}
	return p, nil
}

// Codecs returns the pipeline's codecs in order
func (p *CodecPipeline) Codecs() []Codec {
	return append([]Codec(nil), p.codecs...)
}

// ArrayBytesCodec returns the pipeline's serializing codec
func (p *CodecPipeline) ArrayBytesCodec() ArrayBytesCodec {
	return p.arrayBytes
}

// Validate checks every codec against the metadata it will see. Metadata is
// resolved through the array->array codecs first so nested codecs are
// validated against their actual input shape.
func (p *CodecPipeline) Validate(m *CoreArrayMetadata) error {
	for _, c := range p.arrayArray {
		if err := c.Validate(m); err != nil {
			return err
		}
		m = c.ResolveArrayMetadata(m)
	}
	if err := p.arrayBytes.Validate(m); err != nil {
		return err
	}
	for _, c := range p.bytesBytes {
		if err := c.Validate(m); err != nil {
			return err
		}
	}
	return nil
}

// SupportsPartialDecode reports whether regions of a chunk can be decoded
// straight from ranged reads of its stored bytes
func (p *CodecPipeline) SupportsPartialDecode() bool {
	_, ok := p.arrayBytes.(PartialDecoder)
	return ok && len(p.arrayArray) == 0 && len(p.bytesBytes) == 0
}

// ComputeEncodedSize predicts the encoded length of one chunk of m. Codecs
// with content-dependent output (compressors) make the size unknown.
func (p *CodecPipeline) ComputeEncodedSize(m *CoreArrayMetadata) (int64, error) {
	n, err := m.ChunkByteLength()
	if err != nil {
		return 0, err
	}
	size := int64(n)
	for _, c := range p.arrayArray {
		if size, err = c.ComputeEncodedSize(size, m); err != nil {
			return 0, err
		}
		m = c.ResolveArrayMetadata(m)
	}
	if size, err = p.arrayBytes.ComputeEncodedSize(size, m); err != nil {
		return 0, err
	}
	m = p.arrayBytes.ResolveArrayMetadata(m)
	for _, c := range p.bytesBytes {
		if size, err = c.ComputeEncodedSize(size, m); err != nil {
			return 0, err
		}
	}
	return size, nil
}

// Encode converts a chunk-shaped array into its stored bytes
func (p *CodecPipeline) Encode(a *NDArray, m *CoreArrayMetadata) ([]byte, error) {
	var err error
	for _, c := range p.arrayArray {
		if a, err = c.EncodeArray(a, m); err != nil {
			return nil, errors.Wrapf(err, "encoding %s", c.Name())
		}
		if a == nil {
			return nil, errors.Wrapf(ErrInternal, "codec %s produced no array", c.Name())
		}
		m = c.ResolveArrayMetadata(m)
	}

	b, err := p.arrayBytes.EncodeArray(a, m)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s", p.arrayBytes.Name())
	}
	if b == nil {
		return nil, errors.Wrapf(ErrInternal, "codec %s produced no bytes", p.arrayBytes.Name())
	}
	m = p.arrayBytes.ResolveArrayMetadata(m)

	for _, c := range p.bytesBytes {
		if b, err = c.EncodeBytes(b, m); err != nil {
			return nil, errors.Wrapf(err, "encoding %s", c.Name())
		}
		if b == nil {
			return nil, errors.Wrapf(ErrInternal, "codec %s produced no bytes", c.Name())
		}
	}
	return b, nil
}

// Decode converts stored bytes back into a chunk-shaped array
func (p *CodecPipeline) Decode(b []byte, m *CoreArrayMetadata) (*NDArray, error) {
	// metadata as seen by each array->array codec, in encode order
	resolved := make([]*CoreArrayMetadata, len(p.arrayArray))
	for i, c := range p.arrayArray {
		resolved[i] = m
		m = c.ResolveArrayMetadata(m)
	}
	abMeta := m
	bbMeta := p.arrayBytes.ResolveArrayMetadata(m)

	var err error
	for i := len(p.bytesBytes) - 1; i >= 0; i-- {
		c := p.bytesBytes[i]
		if b, err = c.DecodeBytes(b, bbMeta); err != nil {
			return nil, errors.Wrapf(err, "decoding %s", c.Name())
		}
		if b == nil {
			return nil, errors.Wrapf(ErrInternal, "codec %s produced no bytes", c.Name())
		}
	}

	a, err := p.arrayBytes.DecodeBytes(b, abMeta)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", p.arrayBytes.Name())
	}
	if a == nil {
		return nil, errors.Wrapf(ErrInternal, "codec %s produced no array", p.arrayBytes.Name())
	}

	for i := len(p.arrayArray) - 1; i >= 0; i-- {
		c := p.arrayArray[i]
		if a, err = c.DecodeArray(a, resolved[i]); err != nil {
			return nil, errors.Wrapf(err, "decoding %s", c.Name())
		}
		if a == nil {
			return nil, errors.Wrapf(ErrInternal, "codec %s produced no array", c.Name())
		}
	}
	return a, nil
}

// DecodePartial decodes the region [offset, offset+shape) of one chunk from
// src. Pipelines that can't decode partially read the whole chunk.
func (p *CodecPipeline) DecodePartial(src ByteSource, offset, shape []int, m *CoreArrayMetadata) (*NDArray, error) {
	if pd, ok := p.arrayBytes.(PartialDecoder); ok && p.SupportsPartialDecode() {
		return pd.DecodePartial(src, offset, shape, m)
	}
	b, err := src.ReadAll()
	if err != nil {
		return nil, err
	}
	chunk, err := p.Decode(b, m)
	if err != nil {
		return nil, err
	}
	return chunk.SubArray(offset, shape)
}

// ToMetadata describes the pipeline as codec metadata objects
func (p *CodecPipeline) ToMetadata() []CodecMeta {
	metas := make([]CodecMeta, len(p.codecs))
	for i, c := range p.codecs {
		metas[i] = CodecMeta{Name: c.Name(), Configuration: c.Configuration()}
	}
	return metas
}
