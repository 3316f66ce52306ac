package zarr

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func mustPipeline(t *testing.T, codecs ...Codec) *CodecPipeline {
	t.Helper()
	p, err := NewCodecPipeline(codecs...)
	require.NoError(t, err)
	return p
}

func createArray(t *testing.T, s Store, shape, chunks []int, dt DataType, fill interface{}, codecs *CodecPipeline, opts ...Option) *Array {
	t.Helper()
	m, err := NewArrayMetadata(shape, chunks, dt, fill, codecs)
	require.NoError(t, err)
	a, err := Create(context.Background(), s, "foo/bar", m, ModeWrite, opts...)
	require.NoError(t, err)
	return a
}

func TestZarr(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := createArray(t, s, []int{16, 16, 16}, []int{2, 4, 8}, Int32, 0, nil)

	in := sequentialInt32([]int{16, 16, 16})
	require.NoError(t, a.Write(ctx, []int{0, 0, 0}, in))

	out, err := a.ReadAll(ctx)
	require.NoError(t, err)
	v, err := out.Values()
	require.NoError(t, err)
	for i, x := range v.([]int32) {
		if x != int32(i) {
			t.Fatalf("element %d: expected %d, got %d", i, i, x)
		}
	}

	opened, err := Open(ctx, s, "foo/bar", ModeRead)
	require.NoError(t, err)
	require.Equal(t, a.Shape(), opened.Shape())
	out, err = opened.Read(ctx, []int{3, 5, 7}, []int{4, 4, 4})
	require.NoError(t, err)
	want, _ := in.SubArray([]int{3, 5, 7}, []int{4, 4, 4})
	require.True(t, want.Equal(out))
}

func TestShardedZarr(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sc, err := NewShardingCodec([]int{2, 2, 4}, nil, nil, IndexEnd)
	require.NoError(t, err)
	a := createArray(t, s, []int{16, 16, 16}, []int{2, 4, 8}, Int32, 0, mustPipeline(t, sc))

	in := sequentialInt32([]int{16, 16, 16})
	require.NoError(t, a.Write(ctx, []int{0, 0, 0}, in))

	out, err := a.ReadAll(ctx)
	require.NoError(t, err)
	require.True(t, in.Equal(out))

	count := (2 / 2) * (4 / 2) * (8 / 4)
	payload := 2 * 4 * 8 * 4
	shard, err := s.Get(ctx, "foo/bar/c/0/0/0")
	require.NoError(t, err)
	require.Len(t, shard, payload+4+16*count)

	// partial reads go through ranged store reads
	out, err = a.Read(ctx, []int{1, 3, 5}, []int{3, 6, 9})
	require.NoError(t, err)
	want, _ := in.SubArray([]int{1, 3, 5}, []int{3, 6, 9})
	require.True(t, want.Equal(out))
}

func TestRoundTripRandomWindows(t *testing.T) {
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(11))

	configs := map[string]func(t *testing.T) *CodecPipeline{
		"bytes": func(t *testing.T) *CodecPipeline { return nil },
		"big endian gzip": func(t *testing.T) *CodecPipeline {
			return mustPipeline(t, NewBytesCodec(BigEndian), &GzipCodec{Level: 1})
		},
		"transpose crc32c": func(t *testing.T) *CodecPipeline {
			return mustPipeline(t, NewTransposeCodec(1, 0), NewBytesCodec(LittleEndian), Crc32cCodec{})
		},
		"sharded": func(t *testing.T) *CodecPipeline {
			inner := mustPipeline(t, NewBytesCodec(LittleEndian), SnappyCodec{})
			sc, err := NewShardingCodec([]int{2, 3}, inner, nil, IndexStart)
			require.NoError(t, err)
			return mustPipeline(t, sc)
		},
	}

	for name, mk := range configs {
		t.Run(name, func(t *testing.T) {
			s := NewMemoryStore()
			shape := []int{13, 17}
			a := createArray(t, s, shape, []int{4, 6}, Int32, -1, mk(t), WithConcurrency(4))
			expect, err := NewFilledNDArray(Int32, shape, []byte{0xff, 0xff, 0xff, 0xff})
			require.NoError(t, err)

			for i := 0; i < 40; i++ {
				offset := []int{rnd.Intn(shape[0]), rnd.Intn(shape[1])}
				wshape := []int{1 + rnd.Intn(shape[0]-offset[0]), 1 + rnd.Intn(shape[1]-offset[1])}
				n := wshape[0] * wshape[1]
				vals := make([]int32, n)
				for j := range vals {
					vals[j] = rnd.Int31n(1000)
				}
				w, err := NewNDArrayFromSlice(wshape, vals)
				require.NoError(t, err)

				require.NoError(t, a.Write(ctx, offset, w))
				require.NoError(t, expect.SetRegion(offset, w))

				got, err := a.Read(ctx, offset, wshape)
				require.NoError(t, err)
				require.True(t, w.Equal(got), "write %d at %v shape %v", i, offset, wshape)
			}

			all, err := a.ReadAll(ctx)
			require.NoError(t, err)
			require.True(t, expect.Equal(all))
		})
	}
}

// countingStore counts store requests
type countingStore struct {
	Store
	mu   sync.Mutex
	gets int
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.Store.Get(ctx, key)
}

func (s *countingStore) GetRange(ctx context.Context, key string, r ByteRange) ([]byte, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.Store.GetRange(ctx, key, r)
}

func TestFillValueAndSparseWrites(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{Store: NewMemoryStore()}
	a := createArray(t, s, []int{10, 10}, []int{5, 5}, Float64, "NaN", nil)

	out, err := a.Read(ctx, []int{2, 2}, []int{6, 6})
	require.NoError(t, err)
	v, _ := out.Values()
	for _, x := range v.([]float64) {
		require.True(t, x != x, "expected NaN, got %v", x)
	}

	w, err := NewNDArrayFromSlice([]int{2, 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, a.Write(ctx, []int{4, 4}, w))
	keys, err := s.List(ctx, "foo/bar/c/")
	require.NoError(t, err)
	require.Equal(t, []string{"foo/bar/c/0/0", "foo/bar/c/0/1", "foo/bar/c/1/0", "foo/bar/c/1/1"}, keys)

	// overwriting with fill value deletes the chunks again
	nan, err := NewFilledNDArray(Float64, []int{2, 2}, a.CoreMetadata().FillValue)
	require.NoError(t, err)
	require.NoError(t, a.Write(ctx, []int{4, 4}, nan))
	keys, err = s.List(ctx, "foo/bar/c/")
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestReadBoundsCheckedBeforeIO(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{Store: NewMemoryStore()}
	a := createArray(t, s, []int{10, 10}, []int{5, 5}, Uint8, 0, nil)
	s.gets = 0

	_, err := a.Read(ctx, []int{8, 8}, []int{3, 1})
	require.ErrorIs(t, err, ErrIndex)
	_, err = a.Read(ctx, []int{-1, 0}, []int{1, 1})
	require.ErrorIs(t, err, ErrIndex)
	_, err = a.Read(ctx, []int{0}, []int{1})
	require.ErrorIs(t, err, ErrIndex)

	w, _ := NewNDArrayFromSlice([]int{2, 2}, []uint8{1, 2, 3, 4})
	require.ErrorIs(t, a.Write(ctx, []int{9, 9}, w), ErrIndex)
	require.Equal(t, 0, s.gets)
}

func TestAlignedChunkFastPath(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{Store: NewMemoryStore()}
	a := createArray(t, s, []int{8, 8}, []int{4, 4}, Int32, 0, nil)
	in := sequentialInt32([]int{8, 8})
	require.NoError(t, a.Write(ctx, []int{0, 0}, in))
	s.gets = 0

	out, err := a.Read(ctx, []int{4, 0}, []int{4, 4})
	require.NoError(t, err)
	want, _ := in.SubArray([]int{4, 0}, []int{4, 4})
	require.True(t, want.Equal(out))
	require.Equal(t, 1, s.gets)

	chunk, err := a.ReadChunk(ctx, []int{1, 0})
	require.NoError(t, err)
	require.True(t, want.Equal(chunk))
	_, err = a.ReadChunk(ctx, []int{2, 0})
	require.ErrorIs(t, err, ErrIndex)
}

func TestWriteChunk(t *testing.T) {
	ctx := context.Background()
	a := createArray(t, NewMemoryStore(), []int{6}, []int{4}, Int16, 0, nil)
	chunk, err := NewNDArrayFromSlice([]int{4}, []int16{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, a.WriteChunk(ctx, []int{1}, chunk))

	out, err := a.ReadAll(ctx)
	require.NoError(t, err)
	v, _ := out.Values()
	require.Equal(t, []int16{0, 0, 0, 0, 1, 2}, v)

	short, _ := NewNDArrayFromSlice([]int{2}, []int16{1, 2})
	require.ErrorIs(t, a.WriteChunk(ctx, []int{0}, short), ErrIndex)
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	createArray(t, s, []int{4}, []int{2}, Uint8, 0, nil)

	a, err := Open(ctx, s, "foo/bar", ModeRead)
	require.NoError(t, err)
	w, _ := NewNDArrayFromSlice([]int{1}, []uint8{1})
	require.ErrorIs(t, a.Write(ctx, []int{0}, w), ErrReadOnly)
	_, err = a.Resize(ctx, []int{8})
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestOpenModes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := Open(ctx, s, "missing", ModeReadWrite)
	require.ErrorIs(t, err, ErrNotfound)
	_, err = Open(ctx, s, "missing", ModeWrite)
	require.ErrorIs(t, err, ErrConfiguration)

	m, err := NewArrayMetadata([]int{4}, []int{2}, Uint8, 7, nil)
	require.NoError(t, err)
	a, err := Create(ctx, s, "/a//b/", m, ModeWriteFail)
	require.NoError(t, err)
	require.Equal(t, "a/b", a.Path())

	_, err = Create(ctx, s, "a/b", m, ModeWriteFail)
	require.Error(t, err)

	w, _ := NewNDArrayFromSlice([]int{2}, []uint8{1, 2})
	require.NoError(t, a.Write(ctx, []int{0}, w))

	// append mode opens the existing array rather than replacing it
	other, err := NewArrayMetadata([]int{100}, []int{10}, Uint8, 0, nil)
	require.NoError(t, err)
	b, err := Create(ctx, s, "a/b", other, ModeReadWriteCreate)
	require.NoError(t, err)
	require.Equal(t, []int{4}, b.Shape())

	// write mode clears existing chunks
	c, err := Create(ctx, s, "a/b", m, ModeWrite)
	require.NoError(t, err)
	out, err := c.ReadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte{7, 7, 7, 7}, out.Data)

	_, err = Create(ctx, s, "a/b", m, ModeRead)
	require.ErrorIs(t, err, ErrConfiguration)
	_, err = NewPath("a/../b")
	require.Error(t, err)
}

func TestCreateWithTranspose(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := createArray(t, s, []int{4, 6}, []int{2, 3}, Int32, 0, mustPipeline(t, NewTransposeCodec(1, 0), NewBytesCodec(LittleEndian)))

	in := sequentialInt32([]int{4, 6})
	require.NoError(t, a.Write(ctx, []int{0, 0}, in))
	b, err := a.Resize(ctx, []int{4, 3})
	require.NoError(t, err)

	out, err := b.ReadAll(ctx)
	require.NoError(t, err)
	want, _ := in.SubArray([]int{0, 0}, []int{4, 3})
	require.True(t, want.Equal(out))
}

func TestResize(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := createArray(t, s, []int{8, 8}, []int{4, 4}, Int32, 0, nil)
	require.NoError(t, a.Write(ctx, []int{0, 0}, sequentialInt32([]int{8, 8})))

	b, err := a.Resize(ctx, []int{4, 6})
	require.NoError(t, err)
	require.Equal(t, []int{8, 8}, a.Shape(), "resize must not mutate the receiver")
	require.Equal(t, []int{4, 6}, b.Shape())

	keys, err := s.List(ctx, "foo/bar/c/")
	require.NoError(t, err)
	require.Equal(t, []string{"foo/bar/c/0/0", "foo/bar/c/0/1"}, keys)

	reopened, err := Open(ctx, s, "foo/bar", ModeRead)
	require.NoError(t, err)
	require.Equal(t, []int{4, 6}, reopened.Shape())
	out, err := reopened.ReadAll(ctx)
	require.NoError(t, err)
	want, _ := sequentialInt32([]int{8, 8}).SubArray([]int{0, 0}, []int{4, 6})
	require.True(t, want.Equal(out))
}

func TestLocalStoreArray(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	sc, err := NewShardingCodec([]int{2, 2}, nil, nil, IndexEnd)
	require.NoError(t, err)
	a := createArray(t, s, []int{6, 6}, []int{4, 4}, Int32, 0, mustPipeline(t, sc))

	in := sequentialInt32([]int{6, 6})
	require.NoError(t, a.Write(ctx, []int{0, 0}, in))
	out, err := a.Read(ctx, []int{1, 1}, []int{4, 4})
	require.NoError(t, err)
	want, _ := in.SubArray([]int{1, 1}, []int{4, 4})
	require.True(t, want.Equal(out))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg))

	ctx := context.Background()
	a := createArray(t, NewMemoryStore(), []int{4}, []int{2}, Uint8, 0, nil)
	writes := testutil.ToFloat64(chunkWrites)
	fills := testutil.ToFloat64(chunkFills)

	w, _ := NewNDArrayFromSlice([]int{2}, []uint8{1, 2})
	require.NoError(t, a.Write(ctx, []int{0}, w))
	_, err := a.ReadAll(ctx)
	require.NoError(t, err)

	require.Equal(t, writes+1, testutil.ToFloat64(chunkWrites))
	require.Equal(t, fills+1, testutil.ToFloat64(chunkFills))
}
