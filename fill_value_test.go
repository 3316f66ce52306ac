package zarr

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFillValue(t *testing.T) {
	nan32 := math.Float32bits(float32(math.NaN()))
	cases := []struct {
		raw    string
		dt     DataType
		expect []byte
	}{
		{`null`, Int32, []byte{0, 0, 0, 0}},
		{`0`, Uint8, []byte{0}},
		{`-2`, Int16, []byte{0xfe, 0xff}},
		{`258`, Uint16, []byte{0x02, 0x01}},
		{`true`, Bool, []byte{1}},
		{`1.5`, Float32, []byte{0, 0, 0xc0, 0x3f}},
		{`"NaN"`, Float32, []byte{byte(nan32), byte(nan32 >> 8), byte(nan32 >> 16), byte(nan32 >> 24)}},
		{`"Infinity"`, Float64, []byte{0, 0, 0, 0, 0, 0, 0xf0, 0x7f}},
		{`"-Infinity"`, Float64, []byte{0, 0, 0, 0, 0, 0, 0xf0, 0xff}},
		{`"0x7fc00000"`, Float32, []byte{0, 0, 0xc0, 0x7f}},
		{`"0x0102"`, Int16, []byte{0x02, 0x01}},
		{`"0b00000011"`, Uint8, []byte{3}},
		{`[1, 2]`, Complex64, []byte{0, 0, 0x80, 0x3f, 0, 0, 0, 0x40}},
	}

	for _, c := range cases {
		got, err := ParseFillValue(json.RawMessage(c.raw), c.dt)
		if err != nil {
			t.Errorf("%s as %s: unexpected error: %s", c.raw, c.dt, err)
			continue
		}
		if diff := cmp.Diff(c.expect, got); diff != "" {
			t.Errorf("%s as %s: result mismatch (-want +got):\n%s", c.raw, c.dt, diff)
		}
	}
}

func TestParseFillValueErrors(t *testing.T) {
	cases := []struct {
		raw string
		dt  DataType
	}{
		{`"NaN"`, Int32},
		{`"Infinity"`, Uint8},
		{`"0x01"`, Int16},
		{`"0b0101"`, Uint8},
		{`"0xzz"`, Uint8},
		{`300`, Uint8},
		{`-1`, Uint32},
		{`1.5`, Int32},
		{`true`, Int32},
		{`"hello"`, Float32},
		{`[1, 2, 3]`, Complex128},
		{`{}`, Int8},
	}

	for _, c := range cases {
		if _, err := ParseFillValue(json.RawMessage(c.raw), c.dt); !errors.Is(err, ErrConfiguration) {
			t.Errorf("%s as %s: expected configuration error, got %v", c.raw, c.dt, err)
		}
	}
}
