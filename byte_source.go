package zarr

import (
	"context"

	"github.com/pkg/errors"
)

// ByteSource provides ranged access to the encoded bytes of one chunk
type ByteSource interface {
	// ReadRange returns length bytes starting at offset
	ReadRange(offset, length int64) ([]byte, error)
	// ReadSuffix returns the last length bytes
	ReadSuffix(length int64) ([]byte, error)
	// ReadAll returns every byte
	ReadAll() ([]byte, error)
}

// bufferSource serves reads from bytes already in memory
type bufferSource []byte

var _ ByteSource = bufferSource(nil)

// NewBufferSource wraps an in-memory encoded chunk
func NewBufferSource(b []byte) ByteSource {
	return bufferSource(b)
}

func (s bufferSource) ReadRange(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset > int64(len(s))-length {
		return nil, decodingErrorf("range of %d bytes at %d exceeds %d bytes", length, offset, len(s))
	}
	return s[offset : offset+length], nil
}

func (s bufferSource) ReadSuffix(length int64) ([]byte, error) {
	if length < 0 || length > int64(len(s)) {
		return nil, decodingErrorf("suffix of %d bytes exceeds %d bytes", length, len(s))
	}
	return s[int64(len(s))-length:], nil
}

func (s bufferSource) ReadAll() ([]byte, error) {
	return s, nil
}

// storeSource serves reads with ranged gets against one store key
type storeSource struct {
	get func(r ByteRange) ([]byte, error)
	key string
}

var _ ByteSource = (*storeSource)(nil)

// NewStoreSource reads the value under key through ranged store requests.
// Reads report ErrNotfound when the key is absent.
func NewStoreSource(ctx context.Context, s Store, key string) ByteSource {
	return &storeSource{
		key: key,
		get: func(r ByteRange) ([]byte, error) {
			return s.GetRange(ctx, key, r)
		},
	}
}

func (s *storeSource) ReadRange(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, decodingErrorf("invalid range of %d bytes at %d in %q", length, offset, s.key)
	}
	b, err := s.get(ByteRange{Offset: offset, Length: length})
	if err != nil {
		return nil, err
	}
	if int64(len(b)) != length {
		return nil, decodingErrorf("short read of %q: wanted %d bytes at %d, got %d", s.key, length, offset, len(b))
	}
	return b, nil
}

func (s *storeSource) ReadSuffix(length int64) ([]byte, error) {
	if length < 0 {
		return nil, decodingErrorf("invalid suffix of %d bytes in %q", length, s.key)
	}
	b, err := s.get(ByteRange{Length: length, Suffix: true})
	if err != nil {
		return nil, err
	}
	if int64(len(b)) != length {
		return nil, decodingErrorf("short suffix read of %q: wanted %d bytes, got %d", s.key, length, len(b))
	}
	return b, nil
}

func (s *storeSource) ReadAll() ([]byte, error) {
	b, err := s.get(ByteRange{Offset: 0, Length: -1})
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %q", s.key)
	}
	return b, nil
}
