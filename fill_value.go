package zarr

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"
)

const (
	// Not a Number
	FillValueNaN = "NaN"
	// Infinity
	FillValueInfinity = "Infinity"
	// -Infinity
	FillValueNegativeInfinity = "-Infinity"
)

// ParseFillValue converts a JSON fill value into a single little-endian
// encoded element of dt. Accepted forms are numeric literals, booleans,
// "NaN"/"Infinity"/"-Infinity" for floating point types, "0x..." or "0b..."
// bit patterns exactly as wide as the type, and [re, im] pairs for complex
// types. A nil raw value is the zero value.
func ParseFillValue(raw json.RawMessage, dt DataType) ([]byte, error) {
	size := dt.Size()
	if size == 0 {
		return nil, configErrorf("unsupported data type: %q", dt)
	}
	out := make([]byte, size)
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}

	if dt.IsComplex() {
		var pair []json.RawMessage
		if err := json.Unmarshal(raw, &pair); err == nil {
			if len(pair) != 2 {
				return nil, configErrorf("complex fill value must have two components, got %d", len(pair))
			}
			half := size / 2
			part := Float32
			if half == 8 {
				part = Float64
			}
			for i, c := range pair {
				b, err := ParseFillValue(c, part)
				if err != nil {
					return nil, err
				}
				copy(out[i*half:], b)
			}
			return out, nil
		}
	}

	var v interface{}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, configErrorf("invalid fill value %s: %s", raw, err)
	}

	switch x := v.(type) {
	case bool:
		if dt != Bool {
			return nil, configErrorf("boolean fill value for %s array", dt)
		}
		if x {
			out[0] = 1
		}
		return out, nil
	case json.Number:
		return parseNumericFill(x.String(), dt, out)
	case string:
		return parseStringFill(x, dt, out)
	default:
		return nil, configErrorf("unsupported fill value %s for %s", raw, dt)
	}
}

func parseStringFill(s string, dt DataType, out []byte) ([]byte, error) {
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0b"):
		base, digits := 16, s[2:]
		bitsPerDigit := 4
		if s[1] == 'b' {
			base, bitsPerDigit = 2, 1
		}
		if len(digits)*bitsPerDigit != dt.Size()*8 {
			return nil, configErrorf("fill value %q must have exactly %d bits for %s", s, dt.Size()*8, dt)
		}
		n, ok := new(big.Int).SetString(digits, base)
		if !ok {
			return nil, configErrorf("invalid fill value literal %q", s)
		}
		be := n.FillBytes(make([]byte, dt.Size()))
		if dt.IsComplex() {
			// each component is written most significant byte first
			half := dt.Size() / 2
			reverse(be[:half])
			reverse(be[half:])
			copy(out, be)
			return out, nil
		}
		reverse(be)
		copy(out, be)
		return out, nil
	case s == FillValueNaN, s == FillValueInfinity, s == FillValueNegativeInfinity:
		if !dt.IsFloat() {
			return nil, configErrorf("fill value %q is only valid for floating point types, not %s", s, dt)
		}
		var f float64
		switch s {
		case FillValueNaN:
			f = math.NaN()
		case FillValueInfinity:
			f = math.Inf(1)
		default:
			f = math.Inf(-1)
		}
		putFloat(out, dt, f)
		return out, nil
	default:
		return nil, configErrorf("invalid fill value %q for %s", s, dt)
	}
}

func parseNumericFill(s string, dt DataType, out []byte) ([]byte, error) {
	switch dt {
	case Bool:
		switch s {
		case "0":
		case "1":
			out[0] = 1
		default:
			return nil, configErrorf("invalid bool fill value %s", s)
		}
	case Int8, Int16, Int32, Int64:
		n, err := strconv.ParseInt(s, 10, dt.Size()*8)
		if err != nil {
			return nil, configErrorf("invalid %s fill value %s: %s", dt, s, err)
		}
		putUint(out, uint64(n))
	case Uint8, Uint16, Uint32, Uint64:
		n, err := strconv.ParseUint(s, 10, dt.Size()*8)
		if err != nil {
			return nil, configErrorf("invalid %s fill value %s: %s", dt, s, err)
		}
		putUint(out, n)
	case Float32, Float64:
		f, err := strconv.ParseFloat(s, dt.Size()*8)
		if err != nil {
			return nil, configErrorf("invalid %s fill value %s: %s", dt, s, err)
		}
		putFloat(out, dt, f)
	case Complex64, Complex128:
		part := Float32
		if dt == Complex128 {
			part = Float64
		}
		if _, err := parseNumericFill(s, part, out[:dt.Size()/2]); err != nil {
			return nil, err
		}
	default:
		return nil, configErrorf("unsupported data type: %q", dt)
	}
	return out, nil
}

func putUint(out []byte, n uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], n)
	copy(out, tmp[:len(out)])
}

func putFloat(out []byte, dt DataType, f float64) {
	if dt.Size() == 4 {
		binary.LittleEndian.PutUint32(out, math.Float32bits(float32(f)))
		return
	}
	binary.LittleEndian.PutUint64(out, math.Float64bits(f))
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
