package zarr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNDArrayValues(t *testing.T) {
	in := []float64{1.5, -2, 3.25, 0, 7, 8}
	a, err := NewNDArrayFromSlice([]int{2, 3}, in)
	require.NoError(t, err)
	require.Equal(t, Float64, a.DataType)
	require.Equal(t, 6, a.Len())

	out, err := a.Values()
	require.NoError(t, err)
	require.Equal(t, in, out)

	_, err = NewNDArrayFromSlice([]int{4}, []int16{1, 2})
	require.ErrorIs(t, err, ErrIndex)
	_, err = NewNDArrayFromSlice([]int{1}, []string{"a"})
	require.Error(t, err)
}

func TestNDArrayFill(t *testing.T) {
	a, err := NewFilledNDArray(Int16, []int{3, 5}, []byte{0x34, 0x12})
	require.NoError(t, err)
	v, _ := a.Values()
	for _, x := range v.([]int16) {
		require.Equal(t, int16(0x1234), x)
	}
	require.True(t, a.IsFill([]byte{0x34, 0x12}))
	a.Data[7] = 0
	require.False(t, a.IsFill([]byte{0x34, 0x12}))
}

func TestNDArrayRegions(t *testing.T) {
	a := sequentialInt32([]int{4, 5})
	sub, err := a.SubArray([]int{1, 2}, []int{2, 3})
	require.NoError(t, err)
	v, _ := sub.Values()
	require.Equal(t, []int32{7, 8, 9, 12, 13, 14}, v)

	dst, err := NewNDArray(Int32, []int{3, 4})
	require.NoError(t, err)
	require.NoError(t, dst.SetRegion([]int{1, 1}, sub))
	v, _ = dst.Values()
	require.Equal(t, []int32{
		0, 0, 0, 0,
		0, 7, 8, 9,
		0, 12, 13, 14,
	}, v)

	require.ErrorIs(t, dst.SetRegion([]int{2, 2}, sub), ErrIndex)
	_, err = a.SubArray([]int{0}, []int{1})
	require.ErrorIs(t, err, ErrIndex)
}

func TestNDArrayScalar(t *testing.T) {
	a, err := NewNDArrayFromSlice([]int{}, []uint32{42})
	require.NoError(t, err)
	b, err := NewNDArray(Uint32, []int{})
	require.NoError(t, err)
	require.NoError(t, b.SetRegion([]int{}, a))
	require.True(t, a.Equal(b))
}
