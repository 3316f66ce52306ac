// Package leveldbstore keeps zarr arrays in a goleveldb database
package leveldbstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	zarr "github.com/qri-io/zarr3-go"
)

// StoreType identifies leveldb-backed stores
const StoreType = "LevelDBStore"

// Store is a zarr.Store backed by a leveldb database
type Store struct {
	db *leveldb.DB
}

var (
	_ zarr.Store         = (*Store)(nil)
	_ zarr.PrefixDeleter = (*Store)(nil)
)

// OpenFile opens or creates a database in the directory at path
func OpenFile(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb %s", path)
	}
	return &Store{db: db}, nil
}

// OpenMem opens a database that lives only in memory
func OpenMem() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Type() string { return StoreType }

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	return s.db.Has([]byte(key), nil)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, zarr.NotFound(key)
	}
	return v, err
}

// GetRange reads the whole value and slices it. leveldb has no ranged
// value reads.
func (s *Store) GetRange(ctx context.Context, key string, r zarr.ByteRange) ([]byte, error) {
	v, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	start, end := r.Resolve(int64(len(v)))
	return v[start:end], nil
}

func (s *Store) Set(_ context.Context, key string, val []byte) error {
	return s.db.Put([]byte(key), val, nil)
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Delete([]byte(key), nil)
}

// List returns keys with prefix in byte order
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}

// DeletePrefix removes every key with prefix in one batch
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	batch := &leveldb.Batch{}
	for _, k := range keys {
		batch.Delete([]byte(k))
	}
	return s.db.Write(batch, nil)
}
