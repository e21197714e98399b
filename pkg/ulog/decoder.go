package ulog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Record type tags.
const (
	RecordFlagBits           byte = 'B'
	RecordFormat             byte = 'F'
	RecordInfo               byte = 'I'
	RecordInfoMultiple       byte = 'M'
	RecordParameter          byte = 'P'
	RecordParameterDefault   byte = 'Q'
	RecordAddSubscription    byte = 'A'
	RecordRemoveSubscription byte = 'R'
	RecordData               byte = 'D'
	RecordLogging            byte = 'L'
	RecordLoggingTagged      byte = 'C'
	RecordSync               byte = 'S'
	RecordDropout            byte = 'O'
)

const (
	recordHeaderSize       = 3
	flagBitsSize           = 40
	dropoutSize            = 2
	removeSubscriptionSize = 2
	loggingFixedSize       = 9
	loggingTaggedFixedSize = 11
)

var syncMagic = []byte{0x2F, 0x73, 0x13, 0x20, 0x25, 0x0C, 0xBB, 0x12}

// Observer is notified after every record. size includes the record header.
// skipped is set for unknown records passed over in tolerant mode.
type Observer interface {
	ObserveRecord(recordType byte, size int, skipped bool)
}

// Options configures a single decode.
type Options struct {
	// StrictUnknownRecords rejects unknown record types with
	// ErrUnknownRecordType instead of skipping them.
	StrictUnknownRecords bool
	// MaxBufferSize rejects inputs larger than this many bytes. Zero means no
	// limit.
	MaxBufferSize int64
	Observer      Observer
}

type decoder struct {
	opts   Options
	reg    *Registry
	subs   *SubscriptionTable
	res    *resultBuilder
	row    []Value
	offset int64

	dataSeen      bool
	lastTimestamp uint64
}

// Decode parses a complete ULog file held in data. ctx is checked between
// records; a record is always decoded completely or not at all. Every failure
// is a *DecodeError wrapping one of the package sentinel errors.
func Decode(ctx context.Context, data []byte, opts Options) (*Result, error) {
	if opts.MaxBufferSize > 0 && int64(len(data)) > opts.MaxBufferSize {
		return nil, newError(0, ErrBufferTooLarge, "%d bytes, limit %d", len(data), opts.MaxBufferSize)
	}
	c := newCursor(data, 0)
	hdr, err := readHeader(c)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	d := &decoder{
		opts:          opts,
		reg:           reg,
		subs:          NewSubscriptionTable(reg),
		res:           newResultBuilder(hdr),
		lastTimestamp: hdr.Timestamp,
	}
	for c.remaining() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, &DecodeError{Offset: c.offset(), Kind: err}
		}
		if err := d.next(c); err != nil {
			return nil, err
		}
	}
	return d.res.freeze(), nil
}

// DecodeReader reads r to the end and decodes it. With MaxBufferSize set the
// input is rejected as soon as it grows past the limit.
func DecodeReader(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	src := r
	if opts.MaxBufferSize > 0 {
		src = io.LimitReader(r, opts.MaxBufferSize+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read ulog: %w", err)
	}
	if opts.MaxBufferSize > 0 && int64(len(data)) > opts.MaxBufferSize {
		return nil, newError(opts.MaxBufferSize, ErrBufferTooLarge, "limit %d", opts.MaxBufferSize)
	}
	return Decode(ctx, data, opts)
}

func (d *decoder) next(c *cursor) error {
	start := c.offset()
	size, err := c.readU16()
	if err != nil {
		return err
	}
	typ, err := c.readU8()
	if err != nil {
		return err
	}
	payload, err := c.readBytes(int(size))
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.RecordType = typ
		}
		return err
	}
	d.offset = start
	pc := newCursor(payload, start+recordHeaderSize)
	skipped, err := d.dispatch(typ, pc)
	if err != nil {
		return d.recordError(start, typ, err)
	}
	if d.opts.Observer != nil {
		d.opts.Observer.ObserveRecord(typ, recordHeaderSize+int(size), skipped)
	}
	return nil
}

// recordError attaches position information to a failure inside a complete
// record. Running out of payload bytes there means the record contents are
// inconsistent, not that the input was cut short.
func (d *decoder) recordError(start int64, typ byte, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		if errors.Is(de.Kind, ErrTruncatedInput) {
			kind := ErrMalformedRecord
			if typ == RecordData {
				kind = ErrSchemaMismatch
			}
			return &DecodeError{Offset: de.Offset, RecordType: typ, Kind: kind, Detail: "payload too short: " + de.Detail}
		}
		if de.RecordType == 0 {
			de.RecordType = typ
		}
		return de
	}
	return &DecodeError{Offset: start, RecordType: typ, Kind: err}
}

func (d *decoder) dispatch(typ byte, c *cursor) (bool, error) {
	switch typ {
	case RecordFormat:
		return false, d.format(c)
	case RecordAddSubscription:
		return false, d.subscribe(c)
	case RecordData:
		return false, d.data(c)
	case RecordParameter:
		return false, d.parameter(c)
	case RecordParameterDefault:
		return false, d.parameterDefault(c)
	case RecordInfo:
		return false, d.info(c)
	case RecordInfoMultiple:
		return false, d.infoMultiple(c)
	case RecordLogging:
		return false, d.logging(c, false)
	case RecordLoggingTagged:
		return false, d.logging(c, true)
	case RecordSync:
		return false, d.sync(c)
	case RecordFlagBits:
		return false, expectAtLeast(c, flagBitsSize, "flag bits")
	case RecordDropout:
		return false, expectAtLeast(c, dropoutSize, "dropout")
	case RecordRemoveSubscription:
		return false, expectAtLeast(c, removeSubscriptionSize, "remove subscription")
	}
	if d.opts.StrictUnknownRecords {
		return false, newError(d.offset, ErrUnknownRecordType, "type 0x%02x", typ)
	}
	return true, nil
}

func expectAtLeast(c *cursor, n int, what string) error {
	if c.remaining() < n {
		return newError(c.offset(), ErrMalformedRecord, "%s record is %d bytes, want at least %d", what, c.remaining(), n)
	}
	return nil
}

func (d *decoder) format(c *cursor) error {
	text, err := c.readCString(c.remaining())
	if err != nil {
		return err
	}
	name, spec, ok := strings.Cut(text, ":")
	if !ok {
		return newError(d.offset, ErrMalformedFormat, "missing ':' in %q", text)
	}
	_, err = d.reg.Define(name, spec)
	return err
}

func (d *decoder) subscribe(c *cursor) error {
	multiID, err := c.readU8()
	if err != nil {
		return err
	}
	id, err := c.readU16()
	if err != nil {
		return err
	}
	name, err := c.readCString(c.remaining())
	if err != nil {
		return err
	}
	if err := d.subs.Subscribe(id, name, multiID); err != nil {
		return err
	}
	d.res.dataset(name, multiID)
	return nil
}

func (d *decoder) data(c *cursor) error {
	id, err := c.readU16()
	if err != nil {
		return err
	}
	sub, err := d.subs.get(id)
	if err != nil {
		return err
	}
	l, err := d.subs.layout(sub)
	if err != nil {
		return err
	}
	n := c.remaining()
	if !l.variable && n != l.size {
		return newError(d.offset, ErrSchemaMismatch, "format %s is %d bytes, payload has %d", l.format, l.size, n)
	}
	if l.variable && n < l.size {
		return newError(d.offset, ErrSchemaMismatch, "format %s needs at least %d bytes, payload has %d", l.format, l.size, n)
	}
	row, err := l.decodeRow(c, d.row)
	if err != nil {
		return err
	}
	d.row = row
	if c.remaining() != 0 {
		return newError(d.offset, ErrSchemaMismatch, "%d trailing bytes after %s sample", c.remaining(), l.format)
	}
	if sub.dataset == nil {
		sub.dataset = d.res.dataset(sub.Format, sub.MultiID)
	}
	if err := sub.dataset.append(l, row); err != nil {
		return err
	}
	if l.timestamp >= 0 {
		d.lastTimestamp = row[l.timestamp].Uint64()
	}
	d.dataSeen = true
	return nil
}

// readKeyValue reads the "<u8 key length><type name><value>" layout shared by
// parameter and info records.
func readKeyValue(c *cursor) (FieldDefinition, Value, error) {
	keyLen, err := c.readU8()
	if err != nil {
		return FieldDefinition{}, Value{}, err
	}
	key, err := c.readBytes(int(keyLen))
	if err != nil {
		return FieldDefinition{}, Value{}, err
	}
	f, err := parseField(string(key))
	if err != nil {
		return FieldDefinition{}, Value{}, newError(c.offset(), ErrMalformedRecord, "key: %v", err)
	}
	if f.IsNested() || f.ArrayLen == VariableLength {
		return FieldDefinition{}, Value{}, newError(c.offset(), ErrMalformedRecord, "key %q: unsupported value type", key)
	}
	raw := c.rest()
	v, err := decodeKeyedValue(f, raw)
	if err != nil {
		return FieldDefinition{}, Value{}, newError(c.offset(), ErrMalformedRecord, "key %q: %v", key, err)
	}
	return f, v, nil
}

func decodeKeyedValue(f FieldDefinition, raw []byte) (Value, error) {
	width := f.Type.Size()
	n := 1
	if f.ArrayLen > 0 {
		n = f.ArrayLen
	}
	if len(raw) != n*width {
		return Value{}, fmt.Errorf("value is %d bytes, want %d", len(raw), n*width)
	}
	if f.ArrayLen == 0 {
		return decodeScalar(f.Type, raw), nil
	}
	if f.Type == TypeChar {
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			raw = raw[:i]
		}
		return textValue(string(raw)), nil
	}
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = decodeScalar(f.Type, raw[i*width:(i+1)*width])
	}
	return arrayValue(f.Type, elems), nil
}

func (d *decoder) readParameter(c *cursor) (string, Value, error) {
	f, v, err := readKeyValue(c)
	if err != nil {
		return "", Value{}, err
	}
	if f.ArrayLen != 0 || f.Type == TypeChar {
		return "", Value{}, newError(d.offset, ErrMalformedRecord, "parameter %s is not numeric", f.Name)
	}
	return f.Name, v, nil
}

func (d *decoder) parameter(c *cursor) error {
	name, v, err := d.readParameter(c)
	if err != nil {
		return err
	}
	if !d.dataSeen {
		d.res.setInitialParameter(name, v)
		return nil
	}
	d.res.addParameterChange(ParameterChange{Timestamp: d.lastTimestamp, Name: name, Value: v})
	return nil
}

// parameterDefault validates a default-value record. Defaults do not feed the
// result.
func (d *decoder) parameterDefault(c *cursor) error {
	if _, err := c.readU8(); err != nil {
		return err
	}
	_, _, err := d.readParameter(c)
	return err
}

func (d *decoder) info(c *cursor) error {
	f, v, err := readKeyValue(c)
	if err != nil {
		return err
	}
	d.res.setInfo(f.Name, v)
	return nil
}

func (d *decoder) infoMultiple(c *cursor) error {
	continued, err := c.readU8()
	if err != nil {
		return err
	}
	f, v, err := readKeyValue(c)
	if err != nil {
		return err
	}
	d.res.addInfoMultiple(f.Name, continued != 0, v)
	return nil
}

func (d *decoder) logging(c *cursor, tagged bool) error {
	fixed := loggingFixedSize
	if tagged {
		fixed = loggingTaggedFixedSize
	}
	if err := expectAtLeast(c, fixed, "logging"); err != nil {
		return err
	}
	level, err := c.readU8()
	if err != nil {
		return err
	}
	msg := LoggedMessage{Level: LogLevel(level), Tagged: tagged}
	if tagged {
		if msg.Tag, err = c.readU16(); err != nil {
			return err
		}
	}
	if msg.Timestamp, err = c.readU64(); err != nil {
		return err
	}
	msg.Message = string(c.rest())
	d.res.addMessage(msg)
	return nil
}

func (d *decoder) sync(c *cursor) error {
	if err := expectAtLeast(c, len(syncMagic), "sync"); err != nil {
		return err
	}
	magic, err := c.readBytes(len(syncMagic))
	if err != nil {
		return err
	}
	if !bytes.Equal(magic, syncMagic) {
		return newError(d.offset, ErrMalformedRecord, "bad sync magic % x", magic)
	}
	return nil
}
