package zarr

import "github.com/pkg/errors"

var (
	// ErrNotfound is returned by stores when a key is absent
	ErrNotfound = errors.New("not found")
	// ErrConfiguration flags an invalid codec pipeline, chunk/shard shape
	// relationship or fill value. It is raised when metadata is built, never
	// during I/O.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrIndex flags an offset or shape outside the array's (or chunk's) domain
	ErrIndex = errors.New("index out of bounds")
	// ErrIntegrity flags a checksum mismatch
	ErrIntegrity = errors.New("integrity check failed")
	// ErrDecoding flags malformed encoded bytes
	ErrDecoding = errors.New("decoding failed")
	// ErrOverflow is returned when a shape product can't be represented as int
	ErrOverflow = errors.New("integer overflow")
	// ErrInternal marks a codec stage that produced no result without an error
	ErrInternal = errors.New("internal error")
	// ErrReadOnly is returned when writing to an array opened in ModeRead
	ErrReadOnly = errors.New("array is read only")
	// ErrUnknownSize is returned by codecs whose output size depends on content
	ErrUnknownSize = errors.New("encoded size is not known in advance")
)

func configErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}

func indexErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrIndex, format, args...)
}

func decodingErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDecoding, format, args...)
}
