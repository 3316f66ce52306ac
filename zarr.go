// Package zarr reads and writes chunked, N-dimensional typed arrays stored
// in key-value stores following the zarr v3 storage specification.
package zarr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Version is the current version of this library.
	Version = "0.1.0"
)

// Array is a handle on one stored array. Arrays are safe for concurrent
// reads; concurrent writes touching the same chunk race at the store.
type Array struct {
	path   Path
	store  Store
	mode   PersistenceMode
	meta   *ArrayMetadata
	core   *CoreArrayMetadata
	codecs *CodecPipeline

	concurrency int
}

// Option configures an Array
type Option func(*Array)

// WithConcurrency processes up to n chunks of a read or write in parallel.
// The default of 1 processes chunks serially in row-major order.
func WithConcurrency(n int) Option {
	return func(a *Array) {
		if n < 1 {
			n = 1
		}
		a.concurrency = n
	}
}

// Create writes array metadata at path and returns the new array. mode must
// be one of ModeWrite (overwrite any existing array), ModeWriteFail (fail
// if an array exists) or ModeReadWriteCreate (open the existing array if
// there is one).
func Create(ctx context.Context, store Store, path string, m *ArrayMetadata, mode PersistenceMode, opts ...Option) (*Array, error) {
	p, err := NewPath(path)
	if err != nil {
		return nil, err
	}
	core, codecs, err := m.Build()
	if err != nil {
		return nil, err
	}

	mk := p.Join(MetadataKey).String()
	exists, err := store.Exists(ctx, mk)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeWrite:
		if err := clearPrefix(ctx, store, p); err != nil {
			return nil, err
		}
	case ModeWriteFail:
		if exists {
			return nil, errors.Errorf("array already exists at %q", p.String())
		}
	case ModeReadWriteCreate:
		if exists {
			return Open(ctx, store, path, mode, opts...)
		}
	default:
		return nil, configErrorf("mode %q can't create an array", mode)
	}

	a := newArray(p, store, mode, m, core, codecs, opts)
	if err := a.writeMetadata(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Open reads array metadata at path. mode must be ModeRead, ModeReadWrite or
// ModeReadWriteCreate, and the array must exist.
func Open(ctx context.Context, store Store, path string, mode PersistenceMode, opts ...Option) (*Array, error) {
	switch mode {
	case ModeRead, ModeReadWrite, ModeReadWriteCreate:
	default:
		return nil, configErrorf("mode %q can't open an existing array, use Create", mode)
	}

	p, err := NewPath(path)
	if err != nil {
		return nil, err
	}

	d, err := store.Get(ctx, p.Join(MetadataKey).String())
	if err != nil {
		return nil, errors.WithMessagef(err, "opening array %q", p.String())
	}
	m, err := ParseArrayMetadata(d)
	if err != nil {
		return nil, err
	}
	core, codecs, err := m.Build()
	if err != nil {
		return nil, err
	}
	return newArray(p, store, mode, m, core, codecs, opts), nil
}

func newArray(p Path, store Store, mode PersistenceMode, m *ArrayMetadata, core *CoreArrayMetadata, codecs *CodecPipeline, opts []Option) *Array {
	a := &Array{
		path:        p,
		store:       store,
		mode:        mode,
		meta:        m,
		core:        core,
		codecs:      codecs,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Array) writeMetadata(ctx context.Context) error {
	d, err := json.MarshalIndent(a.meta, "", "  ")
	if err != nil {
		return err
	}
	return a.store.Set(ctx, a.path.Join(MetadataKey).String(), d)
}

// PrefixDeleter is implemented by stores that can remove every key beneath
// a prefix in one operation
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// clearPrefix deletes every key beneath p
func clearPrefix(ctx context.Context, store Store, p Path) error {
	prefix := p.String()
	if prefix != "" {
		prefix += "/"
	}
	if d, ok := store.(PrefixDeleter); ok {
		return d.DeletePrefix(ctx, prefix)
	}
	keys, err := store.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (a *Array) Info() string {
	return fmt.Sprintf("<zarr-go.Array %q shape=%v chunks=%v dtype=%s>", a.Path(), a.core.Shape, a.core.ChunkShape, a.core.DataType)
}

// Path is the array's location within its store
func (a *Array) Path() string {
	return a.path.String()
}

// Shape is the array's extent in every dimension
func (a *Array) Shape() []int { return append([]int(nil), a.core.Shape...) }

// ChunkShape is the shape of each stored chunk
func (a *Array) ChunkShape() []int { return append([]int(nil), a.core.ChunkShape...) }

// DataType is the type of array elements
func (a *Array) DataType() DataType { return a.core.DataType }

// Metadata returns the array's metadata document
func (a *Array) Metadata() *ArrayMetadata {
	cp := *a.meta
	return &cp
}

// CoreMetadata returns the immutable metadata codecs are run with
func (a *Array) CoreMetadata() *CoreArrayMetadata { return a.core }

// Codecs returns the array's codec pipeline
func (a *Array) Codecs() *CodecPipeline { return a.codecs }

func (a *Array) chunkKey(coords []int) string {
	return a.path.Join(a.meta.ChunkKeyEncoding.ChunkKey(coords)).String()
}

type PersistenceMode string

const (
	// Persistence mode:
	// ‘r’ means read only (must exist);
	ModeRead PersistenceMode = "r"
	//‘r+’ means read/write (must exist)
	ModeReadWrite PersistenceMode = "r+"
	// ‘a’ means read/write (create if doesn’t exist)
	ModeReadWriteCreate PersistenceMode = "a"
	// ‘w’ means create (overwrite if exists)
	ModeWrite PersistenceMode = "w"
	// ‘w-’ means create (fail if exists).
	ModeWriteFail PersistenceMode = "w-"
)

// Path is a normalized logical path within a store
type Path []string

// NewPath normalizes a logical path:
// * Replace all backward slash characters ("\") with forward slash characters ("/")
// * Strip any leading "/" characters
// * Strip any trailing "/" characters
// * Collapse any sequence of more than one "/" character into a single "/" character
// Path segments "." and ".." are rejected.
func NewPath(posix string) (Path, error) {
	posix = strings.ReplaceAll(posix, `\`, "/")
	var p Path
	for _, seg := range strings.Split(posix, "/") {
		switch seg {
		case "":
			continue
		case ".", "..":
			return nil, errors.Errorf("invalid path %q: relative segment %q", posix, seg)
		}
		p = append(p, seg)
	}
	return p, nil
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

// Join returns a new path with elems appended
func (p Path) Join(elems ...string) Path {
	out := make(Path, 0, len(p)+len(elems))
	out = append(out, p...)
	return append(out, elems...)
}
