package zarr

import (
	"github.com/pkg/errors"
)

// TransposeCodec permutes the axes of a chunk. Order[i] names the input
// dimension that becomes output dimension i.
type TransposeCodec struct {
	Order []int
}

var _ ArrayArrayCodec = (*TransposeCodec)(nil)

// NewTransposeCodec creates a transpose codec for the permutation order
func NewTransposeCodec(order ...int) *TransposeCodec {
	return &TransposeCodec{Order: append([]int(nil), order...)}
}

func newTransposeCodecFromConfig(conf map[string]interface{}) (Codec, error) {
	var raw []interface{}
	switch v := conf["order"].(type) {
	case []int:
		return NewTransposeCodec(v...), nil
	case []interface{}:
		raw = v
	default:
		return nil, configErrorf("transpose: order must be a list of integers, got %T", conf["order"])
	}
	order := make([]int, len(raw))
	for i, v := range raw {
		ax, err := intConfig(map[string]interface{}{"axis": v}, "axis", 0)
		if err != nil {
			return nil, errors.WithMessage(err, "transpose order")
		}
		order[i] = ax
	}
	return NewTransposeCodec(order...), nil
}

func (c *TransposeCodec) Name() string    { return "transpose" }
func (c *TransposeCodec) Kind() CodecKind { return ArrayToArray }

func (c *TransposeCodec) Configuration() map[string]interface{} {
	return map[string]interface{}{"order": append([]int(nil), c.Order...)}
}

func (c *TransposeCodec) ComputeEncodedSize(n int64, _ *CoreArrayMetadata) (int64, error) {
	return n, nil
}

func (c *TransposeCodec) Validate(m *CoreArrayMetadata) error {
	if len(c.Order) != m.Rank() {
		return configErrorf("transpose: order %v does not match rank %d", c.Order, m.Rank())
	}
	seen := make([]bool, len(c.Order))
	for _, ax := range c.Order {
		if ax < 0 || ax >= len(c.Order) || seen[ax] {
			return configErrorf("transpose: order %v is not a permutation", c.Order)
		}
		seen[ax] = true
	}
	return nil
}

func (c *TransposeCodec) ResolveArrayMetadata(m *CoreArrayMetadata) *CoreArrayMetadata {
	return NewCoreArrayMetadata(c.permute(m.Shape), c.permute(m.ChunkShape), m.DataType, m.FillValue)
}

func (c *TransposeCodec) permute(shape []int) []int {
	out := make([]int, len(shape))
	for i, ax := range c.Order {
		out[i] = shape[ax]
	}
	return out
}

func (c *TransposeCodec) inverse() []int {
	inv := make([]int, len(c.Order))
	for i, ax := range c.Order {
		inv[ax] = i
	}
	return inv
}

func (c *TransposeCodec) EncodeArray(a *NDArray, _ *CoreArrayMetadata) (*NDArray, error) {
	return transpose(a, c.Order), nil
}

func (c *TransposeCodec) DecodeArray(a *NDArray, _ *CoreArrayMetadata) (*NDArray, error) {
	return transpose(a, c.inverse()), nil
}

// transpose returns a copy of a whose dimension i is a's dimension order[i]
func transpose(a *NDArray, order []int) *NDArray {
	rank := len(order)
	size := a.DataType.Size()
	outShape := make([]int, rank)
	for i, ax := range order {
		outShape[i] = a.Shape[ax]
	}
	out := &NDArray{Shape: outShape, DataType: a.DataType, Data: make([]byte, len(a.Data))}
	n := a.Len()
	if n == 0 {
		return out
	}

	inStrides := cStrides(a.Shape)
	// stride through the input for a unit step along each output dimension
	walk := make([]int, rank)
	for i, ax := range order {
		walk[i] = inStrides[ax]
	}

	idx := make([]int, rank)
	src := 0
	for dst := 0; dst < n; dst++ {
		copy(out.Data[dst*size:(dst+1)*size], a.Data[src*size:(src+1)*size])
		for d := rank - 1; d >= 0; d-- {
			idx[d]++
			src += walk[d]
			if idx[d] < outShape[d] {
				break
			}
			src -= walk[d] * outShape[d]
			idx[d] = 0
		}
	}
	return out
}
