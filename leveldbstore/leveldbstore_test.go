package leveldbstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	zarr "github.com/qri-io/zarr3-go"
	"github.com/qri-io/zarr3-go/internal/storetest"
)

func TestMemStore(t *testing.T) {
	s, err := OpenMem()
	require.NoError(t, err)
	defer s.Close()
	storetest.Run(t, s)
}

func TestFileStore(t *testing.T) {
	s, err := OpenFile(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	storetest.Run(t, s)
}

func TestDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s, err := OpenMem()
	require.NoError(t, err)
	defer s.Close()

	for _, k := range []string{"a/1", "a/2", "b/1"} {
		require.NoError(t, s.Set(ctx, k, []byte(k)))
	}
	require.NoError(t, s.DeletePrefix(ctx, "a/"))
	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"b/1"}, keys)
}

func TestCreateOverwriteClearsChunks(t *testing.T) {
	ctx := context.Background()
	s, err := OpenMem()
	require.NoError(t, err)
	defer s.Close()

	m, err := zarr.NewArrayMetadata([]int{4}, []int{2}, zarr.Uint8, 0, nil)
	require.NoError(t, err)
	a, err := zarr.Create(ctx, s, "arr", m, zarr.ModeWrite)
	require.NoError(t, err)
	w, err := zarr.NewNDArrayFromSlice([]int{4}, []uint8{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, a.Write(ctx, []int{0}, w))
	require.NoError(t, s.Set(ctx, "arrow/keep", []byte("x")))

	_, err = zarr.Create(ctx, s, "arr", m, zarr.ModeWrite)
	require.NoError(t, err)
	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"arr/zarr.json", "arrow/keep"}, keys)
}

func TestShardedArray(t *testing.T) {
	ctx := context.Background()
	s, err := OpenMem()
	require.NoError(t, err)
	defer s.Close()

	sc, err := zarr.NewShardingCodec([]int{2, 2}, nil, nil, zarr.IndexEnd)
	require.NoError(t, err)
	codecs, err := zarr.NewCodecPipeline(sc)
	require.NoError(t, err)
	m, err := zarr.NewArrayMetadata([]int{8, 8}, []int{4, 4}, zarr.Uint16, 0, codecs)
	require.NoError(t, err)
	a, err := zarr.Create(ctx, s, "sharded", m, zarr.ModeWrite, zarr.WithConcurrency(4))
	require.NoError(t, err)

	vals := make([]uint16, 64)
	for i := range vals {
		vals[i] = uint16(i)
	}
	in, err := zarr.NewNDArrayFromSlice([]int{8, 8}, vals)
	require.NoError(t, err)
	require.NoError(t, a.Write(ctx, []int{0, 0}, in))

	got, err := a.Read(ctx, []int{3, 3}, []int{2, 2})
	require.NoError(t, err)
	v, err := got.Values()
	require.NoError(t, err)
	require.Equal(t, []uint16{27, 28, 35, 36}, v)
}
