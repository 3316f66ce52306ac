package zarr

import (
	"strconv"
	"strings"
)

// ChunkKeyEncoding maps chunk coordinates to store keys. The "default"
// encoding prefixes keys with "c" ("c/1/4"), "v2" does not ("1.4").
type ChunkKeyEncoding struct {
	Name          string                 `json:"name"`
	Configuration ChunkKeyEncodingConfig `json:"configuration"`
}

// ChunkKeyEncodingConfig holds the dimension separator, "/" or "."
type ChunkKeyEncodingConfig struct {
	Separator string `json:"separator,omitempty"`
}

// DefaultChunkKeyEncoding is the "default" encoding with "/" separators
func DefaultChunkKeyEncoding() ChunkKeyEncoding {
	return ChunkKeyEncoding{Name: "default", Configuration: ChunkKeyEncodingConfig{Separator: "/"}}
}

func (e ChunkKeyEncoding) separator() string {
	if e.Configuration.Separator != "" {
		return e.Configuration.Separator
	}
	if e.Name == "v2" {
		return "."
	}
	return "/"
}

func (e ChunkKeyEncoding) validate() error {
	switch e.Name {
	case "", "default", "v2":
	default:
		return configErrorf("unsupported chunk key encoding %q", e.Name)
	}
	switch e.Configuration.Separator {
	case "", "/", ".":
	default:
		return configErrorf("invalid chunk key separator %q", e.Configuration.Separator)
	}
	return nil
}

// ChunkKey generates the key for a chunk from its coordinates
func (e ChunkKeyEncoding) ChunkKey(coords []int) string {
	sep := e.separator()
	var sb strings.Builder
	if e.Name == "v2" {
		if len(coords) == 0 {
			return "0"
		}
	} else {
		sb.WriteString("c")
		if len(coords) > 0 {
			sb.WriteString(sep)
		}
	}
	for i, c := range coords {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(strconv.Itoa(c))
	}
	return sb.String()
}
