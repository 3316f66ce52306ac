package zarr

import (
	"encoding/json"
	"math"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// IndexLocation says where a shard keeps its index block
type IndexLocation string

const (
	IndexStart IndexLocation = "start"
	IndexEnd   IndexLocation = "end"
)

// shardIndexAbsent marks an index row for an inner chunk that was not
// stored and reads as fill value
const shardIndexAbsent = math.MaxUint64

// ShardingCodec stores one physical chunk (a shard) as a grid of inner
// chunks, each encoded by a nested pipeline, plus a binary index of
// (offset, length) pairs locating the inner chunks in the shard.
type ShardingCodec struct {
	// ChunkShape is the inner chunk shape; it must evenly divide the shard shape
	ChunkShape    []int
	Codecs        *CodecPipeline
	IndexCodecs   *CodecPipeline
	IndexLocation IndexLocation

	concurrency int
}

var (
	_ ArrayBytesCodec = (*ShardingCodec)(nil)
	_ PartialDecoder  = (*ShardingCodec)(nil)
)

// ShardingOption configures a ShardingCodec
type ShardingOption func(*ShardingCodec)

// WithShardConcurrency encodes up to n inner chunks in parallel. Inner chunks
// are appended to the shard in completion order when n > 1.
func WithShardConcurrency(n int) ShardingOption {
	return func(c *ShardingCodec) {
		c.concurrency = n
	}
}

// DefaultIndexCodecs returns the index pipeline used when none is configured:
// little-endian uint64 pairs followed by a crc32c checksum
func DefaultIndexCodecs() *CodecPipeline {
	p, err := NewCodecPipeline(NewBytesCodec(LittleEndian), Crc32cCodec{})
	if err != nil {
		panic(err)
	}
	return p
}

// NewShardingCodec creates a sharding codec. A nil inner pipeline defaults to
// a little-endian bytes codec, a nil index pipeline to DefaultIndexCodecs.
func NewShardingCodec(chunkShape []int, codecs, indexCodecs *CodecPipeline, loc IndexLocation, opts ...ShardingOption) (*ShardingCodec, error) {
	if codecs == nil {
		var err error
		if codecs, err = NewCodecPipeline(NewBytesCodec(LittleEndian)); err != nil {
			return nil, err
		}
	}
	if indexCodecs == nil {
		indexCodecs = DefaultIndexCodecs()
	}
	if loc == "" {
		loc = IndexEnd
	}
	if loc != IndexStart && loc != IndexEnd {
		return nil, configErrorf("sharding_indexed: invalid index_location %q", loc)
	}
	for _, s := range chunkShape {
		if s <= 0 {
			return nil, configErrorf("sharding_indexed: chunk shape must be positive, got %v", chunkShape)
		}
	}

	c := &ShardingCodec{
		ChunkShape:    append([]int(nil), chunkShape...),
		Codecs:        codecs,
		IndexCodecs:   indexCodecs,
		IndexLocation: loc,
		concurrency:   1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type shardingConfig struct {
	ChunkShape    []int         `json:"chunk_shape"`
	Codecs        []CodecMeta   `json:"codecs"`
	IndexCodecs   []CodecMeta   `json:"index_codecs"`
	IndexLocation IndexLocation `json:"index_location"`
}

func newShardingCodecFromConfig(conf map[string]interface{}) (Codec, error) {
	d, err := json.Marshal(conf)
	if err != nil {
		return nil, err
	}
	sc := shardingConfig{}
	if err := json.Unmarshal(d, &sc); err != nil {
		return nil, configErrorf("sharding_indexed: %s", err)
	}
	if len(sc.ChunkShape) == 0 {
		return nil, configErrorf("sharding_indexed: chunk_shape is required")
	}

	var codecs, indexCodecs *CodecPipeline
	if len(sc.Codecs) > 0 {
		if codecs, err = BuildCodecPipeline(sc.Codecs); err != nil {
			return nil, errors.WithMessage(err, "sharding_indexed codecs")
		}
	}
	if len(sc.IndexCodecs) > 0 {
		if indexCodecs, err = BuildCodecPipeline(sc.IndexCodecs); err != nil {
			return nil, errors.WithMessage(err, "sharding_indexed index_codecs")
		}
	}
	return NewShardingCodec(sc.ChunkShape, codecs, indexCodecs, sc.IndexLocation)
}

func (c *ShardingCodec) Name() string    { return "sharding_indexed" }
func (c *ShardingCodec) Kind() CodecKind { return ArrayToBytes }

func (c *ShardingCodec) Configuration() map[string]interface{} {
	return map[string]interface{}{
		"chunk_shape":    append([]int(nil), c.ChunkShape...),
		"codecs":         c.Codecs.ToMetadata(),
		"index_codecs":   c.IndexCodecs.ToMetadata(),
		"index_location": string(c.IndexLocation),
	}
}

func (c *ShardingCodec) ResolveArrayMetadata(m *CoreArrayMetadata) *CoreArrayMetadata { return m }

// ComputeEncodedSize is unknown: absent inner chunks are omitted
func (c *ShardingCodec) ComputeEncodedSize(int64, *CoreArrayMetadata) (int64, error) {
	return 0, ErrUnknownSize
}

// Validate checks the inner chunk shape evenly divides the shard shape and
// validates the nested pipelines, recursing into nested sharding codecs
func (c *ShardingCodec) Validate(m *CoreArrayMetadata) error {
	if len(c.ChunkShape) != m.Rank() {
		return configErrorf("sharding_indexed: chunk shape %v does not match rank %d", c.ChunkShape, m.Rank())
	}
	for d, s := range c.ChunkShape {
		if s > m.ChunkShape[d] || m.ChunkShape[d]%s != 0 {
			return configErrorf("sharding_indexed: inner chunk shape %v must evenly divide shard shape %v", c.ChunkShape, m.ChunkShape)
		}
	}
	if err := c.Codecs.Validate(c.innerMeta(m)); err != nil {
		return errors.WithMessage(err, "sharding_indexed codecs")
	}
	im := c.indexMeta(m)
	if err := c.IndexCodecs.Validate(im); err != nil {
		return errors.WithMessage(err, "sharding_indexed index_codecs")
	}
	if _, err := c.IndexCodecs.ComputeEncodedSize(im); err != nil {
		return configErrorf("sharding_indexed: index codecs must produce a fixed size: %s", err)
	}
	return nil
}

func (c *ShardingCodec) innerMeta(m *CoreArrayMetadata) *CoreArrayMetadata {
	return m.WithChunkShape(c.ChunkShape)
}

// chunksPerShard is the inner chunk grid shape of one shard
func (c *ShardingCodec) chunksPerShard(m *CoreArrayMetadata) []int {
	n := make([]int, len(c.ChunkShape))
	for d := range n {
		n[d] = m.ChunkShape[d] / c.ChunkShape[d]
	}
	return n
}

// indexMeta describes the index as a uint64 array of shape chunksPerShard+[2]
func (c *ShardingCodec) indexMeta(m *CoreArrayMetadata) *CoreArrayMetadata {
	shape := append(c.chunksPerShard(m), 2)
	fill := make([]byte, Uint64.Size())
	putUint(fill, shardIndexAbsent)
	return NewCoreArrayMetadata(shape, shape, Uint64, fill)
}

// IndexSize is the byte length of an encoded shard index for m
func (c *ShardingCodec) IndexSize(m *CoreArrayMetadata) (int64, error) {
	return c.IndexCodecs.ComputeEncodedSize(c.indexMeta(m))
}

func (c *ShardingCodec) EncodeArray(a *NDArray, m *CoreArrayMetadata) ([]byte, error) {
	shardShape := m.ChunkShape
	inner := c.innerMeta(m)
	grid := c.chunksPerShard(m)

	coords, err := ComputeChunkCoords(shardShape, c.ChunkShape, make([]int, len(shardShape)), shardShape)
	if err != nil {
		return nil, err
	}
	count, err := ShapeProduct(grid)
	if err != nil {
		return nil, err
	}

	index := make([]uint64, 2*count)
	for i := range index {
		index[i] = shardIndexAbsent
	}

	var (
		mu   sync.Mutex
		body []byte
	)
	encodeInner := func(coord []int) error {
		offset := make([]int, len(coord))
		for d := range coord {
			offset[d] = coord[d] * c.ChunkShape[d]
		}
		sub, err := a.SubArray(offset, c.ChunkShape)
		if err != nil {
			return err
		}
		if sub.IsFill(m.FillValue) {
			return nil
		}
		enc, err := c.Codecs.Encode(sub, inner)
		if err != nil {
			return err
		}

		row := COrderIndex(coord, grid)
		mu.Lock()
		index[2*row] = uint64(len(body))
		index[2*row+1] = uint64(len(enc))
		body = append(body, enc...)
		mu.Unlock()
		return nil
	}

	if c.concurrency > 1 {
		eg := &errgroup.Group{}
		eg.SetLimit(c.concurrency)
		for _, coord := range coords {
			coord := coord
			eg.Go(func() error { return encodeInner(coord) })
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, coord := range coords {
			if err := encodeInner(coord); err != nil {
				return nil, err
			}
		}
	}

	indexArr, err := NewNDArrayFromSlice(append(grid, 2), index)
	if err != nil {
		return nil, err
	}
	indexBytes, err := c.IndexCodecs.Encode(indexArr, c.indexMeta(m))
	if err != nil {
		return nil, errors.WithMessage(err, "encoding shard index")
	}

	Logger().Debug("encoded shard",
		zap.Ints("shape", shardShape),
		zap.Int("inner_chunks", count),
		zap.Int("body_bytes", len(body)),
		zap.Int("index_bytes", len(indexBytes)))

	out := make([]byte, 0, len(body)+len(indexBytes))
	if c.IndexLocation == IndexStart {
		out = append(out, indexBytes...)
		return append(out, body...), nil
	}
	out = append(out, body...)
	return append(out, indexBytes...), nil
}

func (c *ShardingCodec) DecodeBytes(b []byte, m *CoreArrayMetadata) (*NDArray, error) {
	return c.DecodePartial(NewBufferSource(b), make([]int, m.Rank()), m.ChunkShape, m)
}

// DecodeIndex reads and decodes the shard index from src. Rows are
// (offset, length) pairs in row-major inner chunk order.
func (c *ShardingCodec) DecodeIndex(src ByteSource, m *CoreArrayMetadata) ([]uint64, error) {
	size, err := c.IndexSize(m)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if c.IndexLocation == IndexStart {
		raw, err = src.ReadRange(0, size)
	} else {
		raw, err = src.ReadSuffix(size)
	}
	if err != nil {
		return nil, err
	}

	arr, err := c.IndexCodecs.Decode(raw, c.indexMeta(m))
	if err != nil {
		return nil, errors.WithMessage(err, "decoding shard index")
	}
	v, err := arr.Values()
	if err != nil {
		return nil, decodingErrorf("shard index: %s", err)
	}
	return v.([]uint64), nil
}

// DecodePartial decodes the region [offset, offset+shape) of a shard, reading
// only the index and the inner chunks overlapping the region from src
func (c *ShardingCodec) DecodePartial(src ByteSource, offset, shape []int, m *CoreArrayMetadata) (*NDArray, error) {
	if err := checkBounds(m.ChunkShape, offset, shape); err != nil {
		return nil, err
	}
	index, err := c.DecodeIndex(src, m)
	if err != nil {
		return nil, err
	}

	var base int64
	if c.IndexLocation == IndexStart {
		if base, err = c.IndexSize(m); err != nil {
			return nil, err
		}
	}

	out, err := NewFilledNDArray(m.DataType, shape, m.FillValue)
	if err != nil {
		return nil, err
	}

	grid := c.chunksPerShard(m)
	inner := c.innerMeta(m)
	coords, err := ComputeChunkCoords(m.ChunkShape, c.ChunkShape, offset, shape)
	if err != nil {
		return nil, err
	}

	for _, coord := range coords {
		row := COrderIndex(coord, grid)
		off, length := index[2*row], index[2*row+1]
		if off == shardIndexAbsent && length == shardIndexAbsent {
			continue
		}
		// base+off+length must fit in an int64
		limit := uint64(math.MaxInt64 - base)
		if off == shardIndexAbsent || length == shardIndexAbsent || off > limit || length > limit-off {
			return nil, decodingErrorf("shard index row %d is malformed: (%d, %d)", row, off, length)
		}

		b, err := src.ReadRange(base+int64(off), int64(length))
		if err != nil {
			return nil, err
		}
		proj := ComputeProjection(coord, m.ChunkShape, c.ChunkShape, offset, shape)
		region, err := c.Codecs.DecodePartial(NewBufferSource(b), proj.ChunkOffset, proj.Shape, inner)
		if err != nil {
			return nil, errors.WithMessagef(err, "inner chunk %v", coord)
		}
		if err := out.SetRegion(proj.OutOffset, region); err != nil {
			return nil, err
		}
	}
	return out, nil
}
