package zarr

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricChunkReads   = "zarr_chunk_reads_total"
	MetricChunkWrites  = "zarr_chunk_writes_total"
	MetricChunkDeletes = "zarr_chunk_deletes_total"
	MetricChunkFills   = "zarr_chunk_fills_total"
	MetricBytesRead    = "zarr_bytes_read_total"
	MetricBytesWritten = "zarr_bytes_written_total"
)

var (
	chunkReads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricChunkReads,
		Help: "Chunks fetched from a store and decoded.",
	})
	chunkWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricChunkWrites,
		Help: "Chunks encoded and stored.",
	})
	chunkDeletes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricChunkDeletes,
		Help: "Chunk keys deleted because the chunk held only fill value.",
	})
	chunkFills = prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricChunkFills,
		Help: "Chunks materialized from fill value without a stored value.",
	})
	bytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricBytesRead,
		Help: "Encoded chunk bytes read from stores.",
	})
	bytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricBytesWritten,
		Help: "Encoded chunk bytes written to stores.",
	})
)

// RegisterMetrics registers the package's collectors with reg
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{chunkReads, chunkWrites, chunkDeletes, chunkFills, bytesRead, bytesWritten} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
