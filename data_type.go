package zarr

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// DataType is the set of zarr v3 core data types. The string value is the
// name used in the "data_type" field of array metadata.
type DataType string

const (
	Bool       DataType = "bool"
	Int8       DataType = "int8"
	Int16      DataType = "int16"
	Int32      DataType = "int32"
	Int64      DataType = "int64"
	Uint8      DataType = "uint8"
	Uint16     DataType = "uint16"
	Uint32     DataType = "uint32"
	Uint64     DataType = "uint64"
	Float32    DataType = "float32"
	Float64    DataType = "float64"
	Complex64  DataType = "complex64"
	Complex128 DataType = "complex128"
)

type dataTypeInfo struct {
	size  int
	float bool
	cmplx bool
	slice reflect.Type
}

var dataTypes = map[DataType]dataTypeInfo{
	Bool:       {size: 1, slice: reflect.TypeOf([]bool{})},
	Int8:       {size: 1, slice: reflect.TypeOf([]int8{})},
	Int16:      {size: 2, slice: reflect.TypeOf([]int16{})},
	Int32:      {size: 4, slice: reflect.TypeOf([]int32{})},
	Int64:      {size: 8, slice: reflect.TypeOf([]int64{})},
	Uint8:      {size: 1, slice: reflect.TypeOf([]uint8{})},
	Uint16:     {size: 2, slice: reflect.TypeOf([]uint16{})},
	Uint32:     {size: 4, slice: reflect.TypeOf([]uint32{})},
	Uint64:     {size: 8, slice: reflect.TypeOf([]uint64{})},
	Float32:    {size: 4, float: true, slice: reflect.TypeOf([]float32{})},
	Float64:    {size: 8, float: true, slice: reflect.TypeOf([]float64{})},
	Complex64:  {size: 8, cmplx: true, slice: reflect.TypeOf([]complex64{})},
	Complex128: {size: 16, cmplx: true, slice: reflect.TypeOf([]complex128{})},
}

var (
	_ json.Unmarshaler = (*DataType)(nil)
	_ json.Marshaler   = DataType("")
)

// ParseDataType checks s names a supported data type
func ParseDataType(s string) (DataType, error) {
	dt := DataType(s)
	if _, ok := dataTypes[dt]; !ok {
		return dt, configErrorf("unsupported data type: %q", s)
	}
	return dt, nil
}

// Size is the number of bytes one element occupies
func (dt DataType) Size() int {
	return dataTypes[dt].size
}

// IsFloat reports whether dt is a real floating point type
func (dt DataType) IsFloat() bool { return dataTypes[dt].float }

// IsComplex reports whether dt is a complex floating point type
func (dt DataType) IsComplex() bool { return dataTypes[dt].cmplx }

// componentSize is the width of the unit swapped when changing byte order.
// complex types swap each of their two float components separately.
func (dt DataType) componentSize() int {
	if dt.IsComplex() {
		return dt.Size() / 2
	}
	return dt.Size()
}

func (dt DataType) String() string { return string(dt) }

func (dt DataType) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(dt))
}

func (dt *DataType) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return err
	}
	t, err := ParseDataType(s)
	if err != nil {
		return err
	}
	*dt = t
	return nil
}

// newSlice allocates a typed slice of length n for dt, e.g. []int32 for Int32
func (dt DataType) newSlice(n int) (interface{}, error) {
	info, ok := dataTypes[dt]
	if !ok {
		return nil, fmt.Errorf("unsupported decoding type %q", dt)
	}
	return reflect.MakeSlice(info.slice, n, n).Interface(), nil
}

// dataTypeOf finds the data type matching a typed slice
func dataTypeOf(values interface{}) (DataType, bool) {
	t := reflect.TypeOf(values)
	for dt, info := range dataTypes {
		if info.slice == t {
			return dt, true
		}
	}
	return "", false
}
