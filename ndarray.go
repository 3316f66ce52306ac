package zarr

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// NDArray is an in-memory, C-ordered block of typed values. Elements are kept
// in little-endian byte order regardless of the host or the storage format;
// the bytes codec converts on the way in and out of storage.
type NDArray struct {
	Shape    []int
	DataType DataType
	Data     []byte
}

// NewNDArray allocates a zero-valued array
func NewNDArray(dt DataType, shape []int) (*NDArray, error) {
	n, err := ShapeProduct(shape)
	if err != nil {
		return nil, err
	}
	if dt.Size() == 0 {
		return nil, configErrorf("unsupported data type: %q", dt)
	}
	return &NDArray{
		Shape:    append([]int(nil), shape...),
		DataType: dt,
		Data:     make([]byte, n*dt.Size()),
	}, nil
}

// NewFilledNDArray allocates an array with every element set to fill, which
// must be a single encoded element
func NewFilledNDArray(dt DataType, shape []int, fill []byte) (*NDArray, error) {
	a, err := NewNDArray(dt, shape)
	if err != nil {
		return nil, err
	}
	a.Fill(fill)
	return a, nil
}

// NewNDArrayFromSlice wraps a typed slice (eg. []int32, []float64) of values
// laid out in row-major order
func NewNDArrayFromSlice(shape []int, values interface{}) (*NDArray, error) {
	dt, ok := dataTypeOf(values)
	if !ok {
		return nil, errors.Errorf("unsupported value type %T", values)
	}
	n, err := ShapeProduct(shape)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, n*dt.Size()))
	if err := binary.Write(buf, binary.LittleEndian, values); err != nil {
		return nil, err
	}
	if buf.Len() != n*dt.Size() {
		return nil, indexErrorf("%d values don't fill shape %v", buf.Len()/dt.Size(), shape)
	}
	return &NDArray{
		Shape:    append([]int(nil), shape...),
		DataType: dt,
		Data:     buf.Bytes(),
	}, nil
}

// Len is the number of elements
func (a *NDArray) Len() int {
	return len(a.Data) / a.DataType.Size()
}

// Values decodes the array into a typed slice matching its data type, eg.
// []int32 for an Int32 array
func (a *NDArray) Values() (interface{}, error) {
	v, err := a.DataType.newSlice(a.Len())
	if err != nil {
		return nil, err
	}
	if err := binary.Read(bytes.NewReader(a.Data), binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Fill sets every element to the encoded element value
func (a *NDArray) Fill(value []byte) {
	size := a.DataType.Size()
	if len(a.Data) == 0 {
		return
	}
	copy(a.Data, value[:size])
	// double the filled prefix until the buffer is full
	for filled := size; filled < len(a.Data); filled *= 2 {
		copy(a.Data[filled:], a.Data[:filled])
	}
}

// IsFill reports whether every element equals the encoded value
func (a *NDArray) IsFill(value []byte) bool {
	size := a.DataType.Size()
	for off := 0; off < len(a.Data); off += size {
		if !bytes.Equal(a.Data[off:off+size], value[:size]) {
			return false
		}
	}
	return true
}

// Equal reports whether two arrays have the same type, shape and contents
func (a *NDArray) Equal(b *NDArray) bool {
	if a.DataType != b.DataType || len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return bytes.Equal(a.Data, b.Data)
}

// SubArray copies the region [offset, offset+shape) into a new array
func (a *NDArray) SubArray(offset, shape []int) (*NDArray, error) {
	if err := checkBounds(a.Shape, offset, shape); err != nil {
		return nil, err
	}
	out, err := NewNDArray(a.DataType, shape)
	if err != nil {
		return nil, err
	}
	copyRegion(out.Data, out.Shape, make([]int, len(shape)), a.Data, a.Shape, offset, shape, a.DataType.Size())
	return out, nil
}

// SetRegion copies all of src into a at offset
func (a *NDArray) SetRegion(offset []int, src *NDArray) error {
	if src.DataType != a.DataType {
		return errors.Errorf("data type mismatch: %s into %s", src.DataType, a.DataType)
	}
	if err := checkBounds(a.Shape, offset, src.Shape); err != nil {
		return err
	}
	copyRegion(a.Data, a.Shape, offset, src.Data, src.Shape, make([]int, len(src.Shape)), src.Shape, a.DataType.Size())
	return nil
}

func checkBounds(shape, offset, region []int) error {
	if len(offset) != len(shape) || len(region) != len(shape) {
		return indexErrorf("rank mismatch: expected %d dimensions, got offset %v shape %v", len(shape), offset, region)
	}
	for d := range shape {
		if offset[d] < 0 || region[d] < 0 || offset[d]+region[d] > shape[d] {
			return indexErrorf("region %v+%v exceeds shape %v", offset, region, shape)
		}
	}
	return nil
}

// copyRegion copies a region of the given shape from src (at srcOffset) into
// dst (at dstOffset). Runs along the last dimension are copied contiguously.
// Callers copying into disjoint regions of the same dst may run concurrently.
func copyRegion(dst []byte, dstShape, dstOffset []int, src []byte, srcShape, srcOffset, region []int, elemSize int) {
	rank := len(region)
	for _, r := range region {
		if r == 0 {
			return
		}
	}
	if rank == 0 {
		copy(dst[:elemSize], src[:elemSize])
		return
	}

	dstStrides := cStrides(dstShape)
	srcStrides := cStrides(srcShape)
	run := region[rank-1] * elemSize

	idx := make([]int, rank-1)
	for {
		di, si := dstOffset[rank-1], srcOffset[rank-1]
		for d := 0; d < rank-1; d++ {
			di += (dstOffset[d] + idx[d]) * dstStrides[d]
			si += (srcOffset[d] + idx[d]) * srcStrides[d]
		}
		copy(dst[di*elemSize:di*elemSize+run], src[si*elemSize:si*elemSize+run])

		d := rank - 2
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < region[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}

// cStrides returns row-major element strides for shape
func cStrides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = s
		s *= shape[d]
	}
	return strides
}
