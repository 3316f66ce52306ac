package zarr

import (
	"math"
)

// ChunkProjection is a mapping of items from a chunk to an output array. It
// can be used to extract items from the chunk array for loading into an
// output array, or to extract items from a value array for setting/updating
// a chunk array.
//
// For every dimension d:
//   OutOffset[d] + Shape[d] <= requested shape[d]
//   ChunkOffset[d] + Shape[d] <= chunk shape[d]
type ChunkProjection struct {
	// Indices of chunk
	ChunkCoords []int
	// Start of the selected region within the chunk
	ChunkOffset []int
	// Start of the selected region within the target (output) array
	OutOffset []int
	// Extent of the selected region
	Shape []int
}

// ShapeProduct returns the number of elements in shape, failing with
// ErrOverflow when it can't be represented as int. The empty shape (a scalar)
// holds one element.
func ShapeProduct(shape []int) (int, error) {
	n := 1
	for _, s := range shape {
		if s < 0 {
			return 0, indexErrorf("negative extent %d", s)
		}
		if s != 0 && n > math.MaxInt/s {
			return 0, ErrOverflow
		}
		n *= s
	}
	return n, nil
}

func mustProduct(shape []int) int {
	n, err := ShapeProduct(shape)
	if err != nil {
		panic(err)
	}
	return n
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ComputeChunkCoords lists the coordinates of every chunk overlapping the
// selection [selOffset, selOffset+selShape) in row-major order (last
// dimension varies fastest). An empty selection touches no chunks.
func ComputeChunkCoords(arrayShape, chunkShape, selOffset, selShape []int) ([][]int, error) {
	rank := len(chunkShape)
	if len(selOffset) != rank || len(selShape) != rank || len(arrayShape) != rank {
		return nil, indexErrorf("rank mismatch: array %d, chunk %d, offset %d, shape %d",
			len(arrayShape), rank, len(selOffset), len(selShape))
	}

	start := make([]int, rank)
	counts := make([]int, rank)
	for d := 0; d < rank; d++ {
		if chunkShape[d] <= 0 {
			return nil, configErrorf("chunk shape must be positive, got %v", chunkShape)
		}
		if selShape[d] == 0 {
			return nil, nil
		}
		start[d] = floorDiv(selOffset[d], chunkShape[d])
		end := floorDiv(selOffset[d]+selShape[d]-1, chunkShape[d])
		counts[d] = end - start[d] + 1
	}

	total, err := ShapeProduct(counts)
	if err != nil {
		return nil, err
	}

	coords := make([][]int, 0, total)
	cur := make([]int, rank)
	copy(cur, start)
	for i := 0; i < total; i++ {
		c := make([]int, rank)
		copy(c, cur)
		coords = append(coords, c)

		// odometer increment, last dimension fastest
		for d := rank - 1; d >= 0; d-- {
			cur[d]++
			if cur[d] < start[d]+counts[d] {
				break
			}
			cur[d] = start[d]
		}
	}
	return coords, nil
}

// ComputeProjection describes the overlap of the chunk at chunkCoords with the
// selection [selOffset, selOffset+selShape). The trailing partial chunk of each
// dimension is clipped to the array shape.
func ComputeProjection(chunkCoords, arrayShape, chunkShape, selOffset, selShape []int) ChunkProjection {
	rank := len(chunkCoords)
	p := ChunkProjection{
		ChunkCoords: append([]int(nil), chunkCoords...),
		ChunkOffset: make([]int, rank),
		OutOffset:   make([]int, rank),
		Shape:       make([]int, rank),
	}

	for d := 0; d < rank; d++ {
		dimOffset := chunkShape[d] * chunkCoords[d]
		dimLimit := (chunkCoords[d] + 1) * chunkShape[d]
		if arrayShape[d] < dimLimit {
			dimLimit = arrayShape[d]
		}
		selEnd := selOffset[d] + selShape[d]

		if selOffset[d] < dimOffset {
			p.ChunkOffset[d] = 0
			p.OutOffset[d] = dimOffset - selOffset[d]
		} else {
			p.ChunkOffset[d] = selOffset[d] - dimOffset
			p.OutOffset[d] = 0
		}

		if selEnd > dimLimit {
			p.Shape[d] = chunkShape[d] - p.ChunkOffset[d]
		} else {
			p.Shape[d] = selEnd - dimOffset - p.ChunkOffset[d]
		}
		// a selection reaching beyond the array (only allowed for chunks
		// entirely outside the domain) must still stay inside the window
		if p.OutOffset[d]+p.Shape[d] > selShape[d] {
			p.Shape[d] = selShape[d] - p.OutOffset[d]
		}
	}
	return p
}

// COrderIndex flattens coords with row-major strides over shape
func COrderIndex(coords, shape []int) int {
	idx := 0
	for d := 0; d < len(shape); d++ {
		idx = idx*shape[d] + coords[d]
	}
	return idx
}

// FOrderIndex flattens coords with column-major strides over shape
func FOrderIndex(coords, shape []int) int {
	idx := 0
	for d := len(shape) - 1; d >= 0; d-- {
		idx = idx*shape[d] + coords[d]
	}
	return idx
}

// ChunkInDomain reports whether any part of the chunk at coords lies inside
// an array of arrayShape
func ChunkInDomain(coords, arrayShape, chunkShape []int) bool {
	for d := range coords {
		if coords[d] < 0 || coords[d]*chunkShape[d] >= arrayShape[d] {
			return false
		}
	}
	return true
}

// coversChunk reports whether a projection spans its whole chunk
func (p ChunkProjection) coversChunk(chunkShape []int) bool {
	for d := range chunkShape {
		if p.ChunkOffset[d] != 0 || p.Shape[d] != chunkShape[d] {
			return false
		}
	}
	return true
}
