// Package storetest checks Store implementations against the behaviour
// arrays depend on
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	zarr "github.com/qri-io/zarr3-go"
)

// Run exercises s. s must start empty.
func Run(t *testing.T, s zarr.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing keys", func(t *testing.T) {
		ok, err := s.Exists(ctx, "nope")
		require.NoError(t, err)
		require.False(t, ok)
		_, err = s.Get(ctx, "nope")
		require.ErrorIs(t, err, zarr.ErrNotfound)
		_, err = s.GetRange(ctx, "nope", zarr.ByteRange{Length: 1})
		require.ErrorIs(t, err, zarr.ErrNotfound)
		require.NoError(t, s.Delete(ctx, "nope"))
	})

	t.Run("set get delete", func(t *testing.T) {
		val := []byte("0123456789")
		require.NoError(t, s.Set(ctx, "a/b/c", val))
		ok, err := s.Exists(ctx, "a/b/c")
		require.NoError(t, err)
		require.True(t, ok)

		got, err := s.Get(ctx, "a/b/c")
		require.NoError(t, err)
		require.Equal(t, val, got)

		// callers may reuse their buffers
		val[0] = 'x'
		got, err = s.Get(ctx, "a/b/c")
		require.NoError(t, err)
		require.Equal(t, []byte("0123456789"), got)

		require.NoError(t, s.Set(ctx, "a/b/c", []byte("new")))
		got, err = s.Get(ctx, "a/b/c")
		require.NoError(t, err)
		require.Equal(t, []byte("new"), got)

		require.NoError(t, s.Delete(ctx, "a/b/c"))
		_, err = s.Get(ctx, "a/b/c")
		require.ErrorIs(t, err, zarr.ErrNotfound)
	})

	t.Run("ranges", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "r", []byte("0123456789")))
		defer s.Delete(ctx, "r")

		cases := []struct {
			r    zarr.ByteRange
			want string
		}{
			{zarr.ByteRange{Offset: 0, Length: 3}, "012"},
			{zarr.ByteRange{Offset: 4, Length: 2}, "45"},
			{zarr.ByteRange{Offset: 7, Length: -1}, "789"},
			{zarr.ByteRange{Offset: 8, Length: 10}, "89"},
			{zarr.ByteRange{Length: 4, Suffix: true}, "6789"},
			{zarr.ByteRange{Length: 20, Suffix: true}, "0123456789"},
		}
		for _, c := range cases {
			got, err := s.GetRange(ctx, "r", c.r)
			require.NoError(t, err, "%+v", c.r)
			require.Equal(t, c.want, string(got), "%+v", c.r)
		}
	})

	t.Run("list", func(t *testing.T) {
		for _, k := range []string{"l/b", "l/a/0", "l/a/1", "m/x"} {
			require.NoError(t, s.Set(ctx, k, []byte(k)))
		}
		keys, err := s.List(ctx, "l/")
		require.NoError(t, err)
		require.Equal(t, []string{"l/a/0", "l/a/1", "l/b"}, keys)

		keys, err = s.List(ctx, "l/a/")
		require.NoError(t, err)
		require.Equal(t, []string{"l/a/0", "l/a/1"}, keys)

		keys, err = s.List(ctx, "zzz")
		require.NoError(t, err)
		require.Empty(t, keys)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("conc/%d", i)
				if err := s.Set(ctx, key, []byte(key)); err != nil {
					t.Error(err)
				}
			}(i)
		}
		wg.Wait()
		keys, err := s.List(ctx, "conc/")
		require.NoError(t, err)
		require.Len(t, keys, 16)
	})
}
