package zarr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	zarr "github.com/qri-io/zarr3-go"
	"github.com/qri-io/zarr3-go/internal/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, zarr.NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	s, err := zarr.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	storetest.Run(t, s)
}

func TestByteRangeResolve(t *testing.T) {
	cases := []struct {
		r          zarr.ByteRange
		size       int64
		start, end int64
	}{
		{zarr.ByteRange{Offset: 2, Length: 3}, 10, 2, 5},
		{zarr.ByteRange{Offset: 12, Length: 3}, 10, 10, 10},
		{zarr.ByteRange{Offset: 2, Length: -1}, 10, 2, 10},
		{zarr.ByteRange{Length: 3, Suffix: true}, 10, 7, 10},
		{zarr.ByteRange{Length: 30, Suffix: true}, 10, 0, 10},
		{zarr.ByteRange{Offset: -5, Length: 3}, 10, 0, 3},
		{zarr.ByteRange{Offset: 4, Length: 1 << 62}, 10, 4, 10},
		{zarr.ByteRange{Length: -1, Suffix: true}, 10, 0, 10},
	}
	for _, c := range cases {
		start, end := c.r.Resolve(c.size)
		if start != c.start || end != c.end {
			t.Errorf("%+v in %d: expected [%d, %d), got [%d, %d)", c.r, c.size, c.start, c.end, start, end)
		}
	}
}
