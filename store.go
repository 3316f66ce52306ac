package zarr

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	MemoryStoreType   = "MemoryStore"
	LocalStoreType    = "LocalStore"
	dirPermissionBits = 0755
)

// Store is the key-value backing store arrays persist chunks and metadata
// in. Get and GetRange return an error matching ErrNotfound for absent
// keys. Implementations must be safe for concurrent use.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	GetRange(ctx context.Context, key string, r ByteRange) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Type() string
}

// ByteRange selects part of a stored value. A negative Length reads to the
// end of the value. Suffix ranges select the last Length bytes and ignore
// Offset.
type ByteRange struct {
	Offset int64
	Length int64
	Suffix bool
}

// Resolve converts r to absolute [start, end) bounds within a value of size
// bytes, clipping at the end of the value
func (r ByteRange) Resolve(size int64) (start, end int64) {
	if r.Suffix {
		start = size - r.Length
		if r.Length < 0 || start < 0 {
			start = 0
		}
		return start, size
	}
	start, end = r.Offset, size
	if start < 0 {
		start = 0
	}
	if start > size {
		start = size
	}
	if r.Length >= 0 && r.Length < end-start {
		end = start + r.Length
	}
	return start, end
}

// NotFound wraps ErrNotfound with the missing key
func NotFound(key string) error {
	return errors.Wrap(ErrNotfound, key)
}

// MemoryStore keeps values in a map. It is mostly useful for tests.
type MemoryStore struct {
	lk   sync.Mutex
	data map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: map[string][]byte{},
	}
}

func (s *MemoryStore) Type() string { return MemoryStoreType }

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.GetRange(ctx, key, ByteRange{Length: -1})
}

func (s *MemoryStore) GetRange(_ context.Context, key string, r ByteRange) ([]byte, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	d, ok := s.data[key]
	if !ok {
		return nil, NotFound(key)
	}
	start, end := r.Resolve(int64(len(d)))
	return append([]byte(nil), d[start:end]...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, val []byte) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.data[key] = append([]byte(nil), val...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// LocalStore keeps one file per key beneath a base directory
type LocalStore struct {
	base string
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(base string) (*LocalStore, error) {
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(base, dirPermissionBits); err != nil {
		return nil, err
	}

	return &LocalStore{
		base: base,
	}, nil
}

func (s *LocalStore) Type() string { return LocalStoreType }

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.base, filepath.FromSlash(key))
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	d, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, NotFound(key)
	}
	return d, err
}

func (s *LocalStore) GetRange(_ context.Context, key string, r ByteRange) ([]byte, error) {
	f, err := os.Open(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, NotFound(key)
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	start, end := r.Resolve(fi.Size())
	buf := make([]byte, end-start)
	if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

func (s *LocalStore) Set(_ context.Context, key string, val []byte) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), dirPermissionBits); err != nil {
		return err
	}
	// write to a temporary sibling first so readers never see a torn value
	tmp := path + ".partial"
	if err := os.WriteFile(tmp, val, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".partial") {
			return nil
		}
		rel, err := filepath.Rel(s.base, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
