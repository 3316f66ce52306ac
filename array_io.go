package zarr

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Read returns the region [offset, offset+shape) of the array. Chunks that
// were never written read as fill value.
func (a *Array) Read(ctx context.Context, offset, shape []int) (*NDArray, error) {
	if err := checkBounds(a.core.Shape, offset, shape); err != nil {
		return nil, err
	}

	if coords, ok := a.alignedChunk(offset, shape); ok {
		return a.readChunk(ctx, coords)
	}

	out, err := NewNDArray(a.core.DataType, shape)
	if err != nil {
		return nil, err
	}
	coords, err := ComputeChunkCoords(a.core.Shape, a.core.ChunkShape, offset, shape)
	if err != nil {
		return nil, err
	}

	err = a.forEachChunk(ctx, coords, func(ctx context.Context, coord []int) error {
		proj := ComputeProjection(coord, a.core.Shape, a.core.ChunkShape, offset, shape)
		if !ChunkInDomain(coord, a.core.Shape, a.core.ChunkShape) {
			fillRegion(out, proj.OutOffset, proj.Shape, a.core.FillValue)
			return nil
		}

		if a.codecs.SupportsPartialDecode() && !proj.coversChunk(a.core.ChunkShape) {
			return a.readPartial(ctx, coord, proj, out)
		}

		chunk, err := a.readChunk(ctx, coord)
		if err != nil {
			return err
		}
		copyRegion(out.Data, out.Shape, proj.OutOffset, chunk.Data, chunk.Shape, proj.ChunkOffset, proj.Shape, a.core.DataType.Size())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadAll reads the entire array
func (a *Array) ReadAll(ctx context.Context) (*NDArray, error) {
	return a.Read(ctx, make([]int, len(a.core.Shape)), a.core.Shape)
}

// Write stores arr at offset. Chunks left holding only fill value are
// deleted from the store.
func (a *Array) Write(ctx context.Context, offset []int, arr *NDArray) error {
	if a.mode == ModeRead {
		return ErrReadOnly
	}
	if arr.DataType != a.core.DataType {
		return errors.Errorf("can't write %s values to a %s array", arr.DataType, a.core.DataType)
	}
	if err := checkBounds(a.core.Shape, offset, arr.Shape); err != nil {
		return err
	}

	coords, err := ComputeChunkCoords(a.core.Shape, a.core.ChunkShape, offset, arr.Shape)
	if err != nil {
		return err
	}

	return a.forEachChunk(ctx, coords, func(ctx context.Context, coord []int) error {
		proj := ComputeProjection(coord, a.core.Shape, a.core.ChunkShape, offset, arr.Shape)

		var (
			chunk *NDArray
			err   error
		)
		if a.coversChunkInDomain(proj) {
			// no need to read what is about to be overwritten
			chunk, err = NewFilledNDArray(a.core.DataType, a.core.ChunkShape, a.core.FillValue)
		} else {
			chunk, err = a.readChunk(ctx, coord)
		}
		if err != nil {
			return err
		}
		copyRegion(chunk.Data, chunk.Shape, proj.ChunkOffset, arr.Data, arr.Shape, proj.OutOffset, proj.Shape, a.core.DataType.Size())
		return a.writeChunk(ctx, coord, chunk)
	})
}

// WriteChunk replaces one whole chunk
func (a *Array) WriteChunk(ctx context.Context, coords []int, chunk *NDArray) error {
	if a.mode == ModeRead {
		return ErrReadOnly
	}
	if len(coords) != len(a.core.Shape) || !ChunkInDomain(coords, a.core.Shape, a.core.ChunkShape) {
		return indexErrorf("chunk %v is outside the array's domain", coords)
	}
	if chunk.DataType != a.core.DataType {
		return errors.Errorf("can't write %s values to a %s array", chunk.DataType, a.core.DataType)
	}
	if err := checkBounds(a.core.ChunkShape, make([]int, len(coords)), chunk.Shape); err != nil {
		return err
	}
	for d := range chunk.Shape {
		if chunk.Shape[d] != a.core.ChunkShape[d] {
			return indexErrorf("chunk shape %v, expected %v", chunk.Shape, a.core.ChunkShape)
		}
	}
	return a.writeChunk(ctx, coords, chunk)
}

// ReadChunk decodes one whole chunk
func (a *Array) ReadChunk(ctx context.Context, coords []int) (*NDArray, error) {
	if len(coords) != len(a.core.Shape) || !ChunkInDomain(coords, a.core.Shape, a.core.ChunkShape) {
		return nil, indexErrorf("chunk %v is outside the array's domain", coords)
	}
	return a.readChunk(ctx, coords)
}

// Resize changes the array's shape, deleting chunks that fall entirely
// outside the new shape. The receiver is unchanged; the resized array is
// returned.
func (a *Array) Resize(ctx context.Context, shape []int) (*Array, error) {
	if a.mode == ModeRead {
		return nil, ErrReadOnly
	}
	meta := a.meta.WithShape(shape)
	core, codecs, err := meta.Build()
	if err != nil {
		return nil, err
	}

	old := a.core.Shape
	coords, err := ComputeChunkCoords(old, a.core.ChunkShape, make([]int, len(old)), old)
	if err != nil {
		return nil, err
	}
	for _, coord := range coords {
		if ChunkInDomain(coord, shape, a.core.ChunkShape) {
			continue
		}
		if err := a.store.Delete(ctx, a.chunkKey(coord)); err != nil {
			return nil, err
		}
	}

	resized := &Array{
		path:        a.path,
		store:       a.store,
		mode:        a.mode,
		meta:        meta,
		core:        core,
		codecs:      codecs,
		concurrency: a.concurrency,
	}
	if err := resized.writeMetadata(ctx); err != nil {
		return nil, err
	}
	return resized, nil
}

// alignedChunk reports whether [offset, offset+shape) is exactly one whole
// chunk, returning its coordinates
func (a *Array) alignedChunk(offset, shape []int) ([]int, bool) {
	coords := make([]int, len(offset))
	for d := range offset {
		cs := a.core.ChunkShape[d]
		if shape[d] != cs || offset[d]%cs != 0 {
			return nil, false
		}
		coords[d] = offset[d] / cs
	}
	return coords, true
}

// coversChunkInDomain reports whether a projection spans every element of
// its chunk that lies inside the array
func (a *Array) coversChunkInDomain(p ChunkProjection) bool {
	for d, cs := range a.core.ChunkShape {
		extent := a.core.Shape[d] - p.ChunkCoords[d]*cs
		if extent > cs {
			extent = cs
		}
		if p.ChunkOffset[d] != 0 || p.Shape[d] != extent {
			return false
		}
	}
	return true
}

// readChunk fetches and decodes one chunk, or materializes fill value when
// the chunk isn't stored
func (a *Array) readChunk(ctx context.Context, coords []int) (*NDArray, error) {
	key := a.chunkKey(coords)
	b, err := a.store.Get(ctx, key)
	if errors.Is(err, ErrNotfound) {
		chunkFills.Inc()
		return NewFilledNDArray(a.core.DataType, a.core.ChunkShape, a.core.FillValue)
	} else if err != nil {
		return nil, err
	}
	chunkReads.Inc()
	bytesRead.Add(float64(len(b)))

	chunk, err := a.codecs.Decode(b, a.core)
	if err != nil {
		return nil, errors.WithMessagef(err, "chunk %q", key)
	}
	return chunk, nil
}

// readPartial decodes only the projected region of a chunk through ranged
// store reads and copies it into out
func (a *Array) readPartial(ctx context.Context, coords []int, proj ChunkProjection, out *NDArray) error {
	key := a.chunkKey(coords)
	region, err := a.codecs.DecodePartial(NewStoreSource(ctx, a.store, key), proj.ChunkOffset, proj.Shape, a.core)
	if errors.Is(err, ErrNotfound) {
		chunkFills.Inc()
		fillRegion(out, proj.OutOffset, proj.Shape, a.core.FillValue)
		return nil
	} else if err != nil {
		return errors.WithMessagef(err, "chunk %q", key)
	}
	chunkReads.Inc()
	Logger().Debug("partial chunk read", zap.String("key", key), zap.Ints("offset", proj.ChunkOffset), zap.Ints("shape", proj.Shape))
	copyRegion(out.Data, out.Shape, proj.OutOffset, region.Data, region.Shape, make([]int, len(region.Shape)), proj.Shape, a.core.DataType.Size())
	return nil
}

// writeChunk encodes and stores a chunk, deleting its key instead when the
// chunk holds only fill value
func (a *Array) writeChunk(ctx context.Context, coords []int, chunk *NDArray) error {
	key := a.chunkKey(coords)
	if chunk.IsFill(a.core.FillValue) {
		if err := a.store.Delete(ctx, key); err != nil {
			return err
		}
		chunkDeletes.Inc()
		Logger().Debug("deleted fill value chunk", zap.String("key", key))
		return nil
	}

	b, err := a.codecs.Encode(chunk, a.core)
	if err != nil {
		return errors.WithMessagef(err, "chunk %q", key)
	}
	if err := a.store.Set(ctx, key, b); err != nil {
		return err
	}
	chunkWrites.Inc()
	bytesWritten.Add(float64(len(b)))
	return nil
}

// forEachChunk calls fn for every chunk coordinate, using up to
// a.concurrency goroutines. The first error fails the whole call.
func (a *Array) forEachChunk(ctx context.Context, coords [][]int, fn func(context.Context, []int) error) error {
	if a.concurrency <= 1 || len(coords) < 2 {
		for _, c := range coords {
			if err := fn(ctx, c); err != nil {
				return err
			}
		}
		return nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.concurrency)
	for _, c := range coords {
		c := c
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, c)
		})
	}
	return eg.Wait()
}

// fillRegion sets [offset, offset+shape) of out to the fill value
func fillRegion(out *NDArray, offset, shape []int, fill []byte) {
	region, err := NewFilledNDArray(out.DataType, shape, fill)
	if err != nil {
		return
	}
	copyRegion(out.Data, out.Shape, offset, region.Data, region.Shape, make([]int, len(shape)), shape, out.DataType.Size())
}
