// Package boltstore keeps zarr arrays in a single bbolt database file
package boltstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	zarr "github.com/qri-io/zarr3-go"
)

const (
	// StoreType identifies bbolt-backed stores
	StoreType = "BoltStore"
	// DefaultBucket holds every key unless another bucket is named
	DefaultBucket = "zarr"
)

// Store is a zarr.Store backed by one bucket of a bbolt database
type Store struct {
	db     *bolt.DB
	bucket []byte
}

var _ zarr.Store = (*Store)(nil)

// Open opens or creates the database file at path, creating bucket if it
// doesn't exist. An empty bucket name uses DefaultBucket.
func Open(path, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return nil, errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}
	db, err := bolt.Open(path, 0666, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening bolt file %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "creating bucket %s", bucket)
	}

	return &Store{db: db, bucket: []byte(bucket)}, nil
}

// Close releases the database file
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Type() string { return StoreType }

func (s *Store) Exists(_ context.Context, key string) (ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(s.bucket).Get([]byte(key)) != nil
		return nil
	})
	return ok, err
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.GetRange(ctx, key, zarr.ByteRange{Length: -1})
}

func (s *Store) GetRange(_ context.Context, key string, r zarr.ByteRange) (val []byte, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return zarr.NotFound(key)
		}
		start, end := r.Resolve(int64(len(v)))
		// values are only valid for the life of the transaction
		val = append([]byte{}, v[start:end]...)
		return nil
	})
	return val, err
}

func (s *Store) Set(_ context.Context, key string, val []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), val)
	})
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

// List returns keys with prefix in byte order
func (s *Store) List(_ context.Context, prefix string) (keys []string, err error) {
	p := []byte(prefix)
	err = s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}
