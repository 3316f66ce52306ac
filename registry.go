package zarr

import (
	"encoding/json"
	"sort"
)

// CodecMeta is the metadata representation of one codec:
// {"name": ..., "configuration": {...}}
type CodecMeta struct {
	Name          string                 `json:"name"`
	Configuration map[string]interface{} `json:"configuration,omitempty"`
}

// UnmarshalJSON also accepts the short form of a bare codec name string
func (c *CodecMeta) UnmarshalJSON(d []byte) error {
	var name string
	if err := json.Unmarshal(d, &name); err == nil {
		*c = CodecMeta{Name: name}
		return nil
	}
	type plain CodecMeta
	p := plain{}
	if err := json.Unmarshal(d, &p); err != nil {
		return err
	}
	*c = CodecMeta(p)
	return nil
}

// CodecFactory builds a codec from its configuration object
type CodecFactory func(conf map[string]interface{}) (Codec, error)

// codecRegistry is built once at init and never modified afterwards
var codecRegistry map[string]CodecFactory

func init() {
	// sharding builds nested pipelines through the registry, so the map
	// can't be a plain initialized var
	codecRegistry = map[string]CodecFactory{
		"bytes":            newBytesCodecFromConfig,
		"transpose":        newTransposeCodecFromConfig,
		"crc32c":           newCrc32cCodecFromConfig,
		"gzip":             newGzipCodecFromConfig,
		"zstd":             newZstdCodecFromConfig,
		"snappy":           newSnappyCodecFromConfig,
		"lz4":              newLz4CodecFromConfig,
		"sharding_indexed": newShardingCodecFromConfig,
	}
}

// LookupCodec finds the factory for a codec name
func LookupCodec(name string) (CodecFactory, bool) {
	f, ok := codecRegistry[name]
	return f, ok
}

// CodecNames lists registered codec names in sorted order
func CodecNames() []string {
	names := make([]string, 0, len(codecRegistry))
	for name := range codecRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildCodec instantiates the codec described by meta
func BuildCodec(meta CodecMeta) (Codec, error) {
	f, ok := LookupCodec(meta.Name)
	if !ok {
		return nil, configErrorf("unknown codec %q", meta.Name)
	}
	conf := meta.Configuration
	if conf == nil {
		conf = map[string]interface{}{}
	}
	return f(conf)
}

// BuildCodecPipeline instantiates and validates the composition of metas
func BuildCodecPipeline(metas []CodecMeta) (*CodecPipeline, error) {
	codecs := make([]Codec, len(metas))
	for i, m := range metas {
		c, err := BuildCodec(m)
		if err != nil {
			return nil, err
		}
		codecs[i] = c
	}
	return NewCodecPipeline(codecs...)
}
