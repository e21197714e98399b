// Package ulogtest builds synthetic ULog byte streams for tests.
package ulogtest

import (
	"encoding/binary"
	"math"
)

const (
	// SampleStartUS is the header timestamp of the Sample log.
	SampleStartUS uint64 = 1_000_000
)

var (
	headerMagic = []byte{'U', 'L', 'o', 'g', 0x01, 0x12, 0x35}
	SyncMagic   = []byte{0x2F, 0x73, 0x13, 0x20, 0x25, 0x0C, 0xBB, 0x12}
)

// Builder appends records to an in-memory log. Methods return the builder so
// calls can be chained.
type Builder struct {
	buf []byte
}

// New starts a log with a file header.
func New(version uint8, timestampUS uint64) *Builder {
	b := &Builder{}
	b.buf = append(b.buf, headerMagic...)
	b.buf = append(b.buf, version)
	b.buf = append(b.buf, U64(timestampUS)...)
	return b
}

// Bytes returns a copy of everything written so far.
func (b *Builder) Bytes() []byte {
	return append([]byte(nil), b.buf...)
}

// Len is the number of bytes written so far.
func (b *Builder) Len() int { return len(b.buf) }

// Record appends a raw record with the given type tag.
func (b *Builder) Record(typ byte, payload ...[]byte) *Builder {
	body := Concat(payload...)
	b.buf = append(b.buf, U16(uint16(len(body)))...)
	b.buf = append(b.buf, typ)
	b.buf = append(b.buf, body...)
	return b
}

func (b *Builder) FlagBits() *Builder {
	return b.Record('B', make([]byte, 40))
}

// Format appends a format definition such as ("Foo", "uint64_t timestamp;float x").
func (b *Builder) Format(name, fields string) *Builder {
	return b.Record('F', []byte(name+":"+fields))
}

func (b *Builder) Subscribe(id uint16, multiID uint8, name string) *Builder {
	return b.Record('A', []byte{multiID}, U16(id), []byte(name))
}

func (b *Builder) Unsubscribe(id uint16) *Builder {
	return b.Record('R', U16(id))
}

// Data appends a data sample for subscription id; fields are concatenated in
// order.
func (b *Builder) Data(id uint16, fields ...[]byte) *Builder {
	return b.Record('D', U16(id), Concat(fields...))
}

// Info appends an information record. key is "type name", e.g. "char[4] sys_name".
func (b *Builder) Info(key string, value []byte) *Builder {
	return b.Record('I', []byte{byte(len(key))}, []byte(key), value)
}

func (b *Builder) InfoMultiple(continued bool, key string, value []byte) *Builder {
	var flag byte
	if continued {
		flag = 1
	}
	return b.Record('M', []byte{flag}, []byte{byte(len(key))}, []byte(key), value)
}

// ParamFloat appends a float parameter.
func (b *Builder) ParamFloat(name string, v float32) *Builder {
	return b.param("float "+name, F32(v))
}

// ParamInt appends an int32_t parameter.
func (b *Builder) ParamInt(name string, v int32) *Builder {
	return b.param("int32_t "+name, U32(uint32(v)))
}

func (b *Builder) param(key string, value []byte) *Builder {
	return b.Record('P', []byte{byte(len(key))}, []byte(key), value)
}

// ParamDefault appends a default-value record for an int32_t parameter.
func (b *Builder) ParamDefault(types uint8, name string, v int32) *Builder {
	key := "int32_t " + name
	return b.Record('Q', []byte{types}, []byte{byte(len(key))}, []byte(key), U32(uint32(v)))
}

// Log appends an untagged message. level is the ASCII digit '0'..'7'.
func (b *Builder) Log(level byte, timestampUS uint64, text string) *Builder {
	return b.Record('L', []byte{level}, U64(timestampUS), []byte(text))
}

func (b *Builder) TaggedLog(level byte, tag uint16, timestampUS uint64, text string) *Builder {
	return b.Record('C', []byte{level}, U16(tag), U64(timestampUS), []byte(text))
}

func (b *Builder) Sync() *Builder {
	return b.Record('S', SyncMagic)
}

func (b *Builder) Dropout(durationMS uint16) *Builder {
	return b.Record('O', U16(durationMS))
}

// Sample builds a small, deterministic log exercising the common record
// types: one format with two instances, parameters before and after data,
// and both kinds of logged message.
func Sample() []byte {
	b := New(1, SampleStartUS).
		FlagBits().
		Info("char[4] sys_name", []byte("PX4\x00")).
		Format("vehicle_attitude", "uint64_t timestamp;float roll;float pitch;uint8_t[3] _padding0").
		ParamInt("SYS_AUTOSTART", 4001).
		ParamFloat("MC_ROLL_P", 6.5).
		Subscribe(0, 0, "vehicle_attitude").
		Subscribe(1, 1, "vehicle_attitude").
		Log('6', SampleStartUS+10, "armed")
	for i := uint64(0); i < 4; i++ {
		ts := SampleStartUS + 100*(i+1)
		b.Data(0, U64(ts), F32(float32(i)*0.5), F32(-float32(i)), []byte{0, 0, 0})
	}
	b.Data(1, U64(SampleStartUS+150), F32(1), F32(2), []byte{0, 0, 0}).
		Sync().
		ParamFloat("MC_ROLL_P", 7).
		TaggedLog('4', 3, SampleStartUS+500, "low battery").
		Dropout(20)
	return b.Bytes()
}

func U16(v uint16) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, v)
	return out
}

func U32(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

func U64(v uint64) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, v)
	return out
}

func F32(v float32) []byte { return U32(math.Float32bits(v)) }

func F64(v float64) []byte { return U64(math.Float64bits(v)) }

// Concat joins byte slices into a new slice.
func Concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
