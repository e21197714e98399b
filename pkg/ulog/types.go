package ulog

import (
	"fmt"
	"strings"
)

// ScalarType is one of the primitive field types a format can use.
type ScalarType uint8

const (
	TypeInvalid ScalarType = iota
	TypeInt8
	TypeUint8
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeBool
	TypeChar
)

var scalarTypeNames = map[string]ScalarType{
	"int8_t":   TypeInt8,
	"uint8_t":  TypeUint8,
	"int16_t":  TypeInt16,
	"uint16_t": TypeUint16,
	"int32_t":  TypeInt32,
	"uint32_t": TypeUint32,
	"int64_t":  TypeInt64,
	"uint64_t": TypeUint64,
	"float":    TypeFloat32,
	"double":   TypeFloat64,
	"bool":     TypeBool,
	"char":     TypeChar,
}

// LookupScalarType maps a wire type token such as "uint16_t" to its type.
func LookupScalarType(token string) (ScalarType, bool) {
	t, ok := scalarTypeNames[token]
	return t, ok
}

// Size returns the encoded width in bytes.
func (t ScalarType) Size() int {
	switch t {
	case TypeInt8, TypeUint8, TypeBool, TypeChar:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64:
		return 8
	default:
		return 0
	}
}

func (t ScalarType) String() string {
	for name, v := range scalarTypeNames {
		if v == t {
			return name
		}
	}
	return fmt.Sprintf("ScalarType(%d)", uint8(t))
}

func (t ScalarType) signed() bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return true
	}
	return false
}

func (t ScalarType) float() bool {
	return t == TypeFloat32 || t == TypeFloat64
}

// LogLevel is the syslog-style severity carried by logged messages. On the
// wire it is the ASCII digit '0' (emergency) through '7' (debug).
type LogLevel uint8

const (
	LevelEmergency LogLevel = '0'
	LevelAlert     LogLevel = '1'
	LevelCritical  LogLevel = '2'
	LevelError     LogLevel = '3'
	LevelWarning   LogLevel = '4'
	LevelNotice    LogLevel = '5'
	LevelInfo      LogLevel = '6'
	LevelDebug     LogLevel = '7'
)

var logLevelNames = [...]string{"EMERGENCY", "ALERT", "CRITICAL", "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG"}

func (l LogLevel) String() string {
	if l >= LevelEmergency && l <= LevelDebug {
		return logLevelNames[l-LevelEmergency]
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(l))
}

// Valid reports whether l is one of the eight defined levels.
func (l LogLevel) Valid() bool {
	return l >= LevelEmergency && l <= LevelDebug
}

// VariableLength marks a FieldDefinition whose element count is carried in
// each sample as a uint16 prefix.
const VariableLength = -1

// FieldDefinition describes one field of a FormatDefinition. Exactly one of
// Type and Nested is set.
type FieldDefinition struct {
	Name     string
	Type     ScalarType
	Nested   string
	ArrayLen int
}

// IsNested reports whether the field refers to another format by name.
func (f FieldDefinition) IsNested() bool {
	return f.Nested != ""
}

// IsPadding reports whether the field only exists for alignment. Padding is
// consumed while decoding but never surfaces in a Dataset.
func (f FieldDefinition) IsPadding() bool {
	return strings.HasPrefix(f.Name, "_padding")
}

// Padding returns the number of alignment bytes the field occupies, or 0 for
// regular fields.
func (f FieldDefinition) Padding() int {
	if !f.IsPadding() || f.IsNested() {
		return 0
	}
	n := f.ArrayLen
	if n <= 0 {
		n = 1
	}
	return n * f.Type.Size()
}

func (f FieldDefinition) typeName() string {
	if f.IsNested() {
		return f.Nested
	}
	return f.Type.String()
}

func (f FieldDefinition) String() string {
	switch {
	case f.ArrayLen == VariableLength:
		return fmt.Sprintf("%s[] %s", f.typeName(), f.Name)
	case f.ArrayLen > 0:
		return fmt.Sprintf("%s[%d] %s", f.typeName(), f.ArrayLen, f.Name)
	default:
		return fmt.Sprintf("%s %s", f.typeName(), f.Name)
	}
}

// FormatDefinition is a named schema declared inline in the log.
type FormatDefinition struct {
	Name   string
	Fields []FieldDefinition
}

// Field returns the definition of the named field.
func (d *FormatDefinition) Field(name string) (FieldDefinition, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}
