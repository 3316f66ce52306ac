// Package blobstore keeps zarr arrays in a gocloud blob bucket: local
// directories, memory, S3 or GCS
package blobstore

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	// bucket drivers selected by URL scheme
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	zarr "github.com/qri-io/zarr3-go"
)

// StoreType identifies blob-backed stores
const StoreType = "BlobStore"

// Store is a zarr.Store backed by a blob bucket. Ranged reads are served by
// the bucket, so sharded arrays fetch only the bytes they decode.
type Store struct {
	bucket *blob.Bucket
}

var _ zarr.Store = (*Store)(nil)

// OpenURL opens the bucket at url, eg. "s3://my-bucket?region=us-east-2",
// "gs://my-bucket", "file:///tmp/data" or "mem://". A non-empty prefix
// scopes every key.
func OpenURL(ctx context.Context, url, prefix string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "opening bucket %q", url)
	}
	if prefix != "" {
		bucket = blob.PrefixedBucket(bucket, prefix)
	}
	return New(bucket), nil
}

// New wraps an open bucket. The store takes ownership of bucket.
func New(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

// Close closes the underlying bucket
func (s *Store) Close() error {
	return s.bucket.Close()
}

func (s *Store) Type() string { return StoreType }

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.bucket.Exists(ctx, key)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	d, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, wrapErr(err, key)
	}
	return d, nil
}

func (s *Store) GetRange(ctx context.Context, key string, r zarr.ByteRange) ([]byte, error) {
	offset, length := r.Offset, r.Length
	if r.Suffix {
		attrs, err := s.bucket.Attributes(ctx, key)
		if err != nil {
			return nil, wrapErr(err, key)
		}
		offset, _ = r.Resolve(attrs.Size)
		length = attrs.Size - offset
	}

	rd, err := s.bucket.NewRangeReader(ctx, key, offset, length, nil)
	if err != nil {
		return nil, wrapErr(err, key)
	}
	defer rd.Close()
	return io.ReadAll(rd)
}

func (s *Store) Set(ctx context.Context, key string, val []byte) error {
	return s.bucket.WriteAll(ctx, key, val, nil)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

// List returns keys with prefix in lexical order
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		if !obj.IsDir {
			keys = append(keys, obj.Key)
		}
	}
	return keys, nil
}

func wrapErr(err error, key string) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return zarr.NotFound(key)
	}
	return err
}
