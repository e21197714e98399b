package ulog

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

// Value is a single decoded field, parameter or info value. It holds either a
// scalar, a text string (char arrays in info and parameter keys) or an array
// of scalars (variable-length fields).
type Value struct {
	typ   ScalarType
	bits  uint64
	text  string
	elems []Value
	kind  valueKind
}

type valueKind uint8

const (
	kindScalar valueKind = iota
	kindText
	kindArray
)

// decodeScalar interprets raw, which must be exactly t.Size() bytes.
func decodeScalar(t ScalarType, raw []byte) Value {
	v := Value{typ: t}
	switch t.Size() {
	case 1:
		v.bits = uint64(raw[0])
		if t == TypeInt8 {
			v.bits = uint64(int64(int8(raw[0])))
		}
	case 2:
		u := binary.LittleEndian.Uint16(raw)
		v.bits = uint64(u)
		if t == TypeInt16 {
			v.bits = uint64(int64(int16(u)))
		}
	case 4:
		u := binary.LittleEndian.Uint32(raw)
		v.bits = uint64(u)
		if t == TypeInt32 {
			v.bits = uint64(int64(int32(u)))
		}
	case 8:
		v.bits = binary.LittleEndian.Uint64(raw)
	}
	return v
}

func textValue(s string) Value {
	return Value{typ: TypeChar, text: s, kind: kindText}
}

func arrayValue(t ScalarType, elems []Value) Value {
	return Value{typ: t, elems: elems, kind: kindArray}
}

// Type returns the scalar type of the value, or of its elements for arrays.
func (v Value) Type() ScalarType { return v.typ }

func (v Value) IsText() bool { return v.kind == kindText }

func (v Value) IsArray() bool { return v.kind == kindArray }

// Float64 converts numeric values to float64. Text and arrays yield NaN.
func (v Value) Float64() float64 {
	if v.kind != kindScalar {
		return math.NaN()
	}
	switch {
	case v.typ == TypeFloat32:
		return float64(math.Float32frombits(uint32(v.bits)))
	case v.typ == TypeFloat64:
		return math.Float64frombits(v.bits)
	case v.typ.signed():
		return float64(int64(v.bits))
	default:
		return float64(v.bits)
	}
}

// Int64 converts numeric values to int64, truncating floats.
func (v Value) Int64() int64 {
	if v.kind != kindScalar {
		return 0
	}
	if v.typ.float() {
		return int64(v.Float64())
	}
	return int64(v.bits)
}

// Uint64 converts numeric values to uint64, truncating floats.
func (v Value) Uint64() uint64 {
	if v.kind != kindScalar {
		return 0
	}
	if v.typ.float() {
		return uint64(v.Float64())
	}
	return v.bits
}

func (v Value) Bool() bool {
	return v.kind == kindScalar && v.bits != 0
}

// Text returns the string held by a text value.
func (v Value) Text() string {
	if v.kind == kindText {
		return v.text
	}
	return v.String()
}

// Elems returns a copy of the elements of an array value.
func (v Value) Elems() []Value {
	if v.kind != kindArray {
		return nil
	}
	out := make([]Value, len(v.elems))
	copy(out, v.elems)
	return out
}

// Len is the element count for arrays and 1 otherwise.
func (v Value) Len() int {
	if v.kind == kindArray {
		return len(v.elems)
	}
	return 1
}

// Equal compares type and bit pattern, so NaN payloads compare equal to
// themselves.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.typ != o.typ || v.bits != o.bits || v.text != o.text || len(v.elems) != len(o.elems) {
		return false
	}
	for i := range v.elems {
		if !v.elems[i].Equal(o.elems[i]) {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case kindText:
		return v.text
	case kindArray:
		parts := make([]string, len(v.elems))
		for i, e := range v.elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	switch {
	case v.typ == TypeFloat32:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 32)
	case v.typ == TypeFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case v.typ == TypeBool:
		return strconv.FormatBool(v.Bool())
	case v.typ == TypeChar:
		return string(rune(byte(v.bits)))
	case v.typ.signed():
		return strconv.FormatInt(int64(v.bits), 10)
	default:
		return strconv.FormatUint(v.bits, 10)
	}
}
