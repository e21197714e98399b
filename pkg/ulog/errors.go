package ulog

import (
	"errors"
	"fmt"
)

var (
	ErrBadMagic              = errors.New("ulog magic bytes not found")
	ErrUnsupportedVersion    = errors.New("unsupported ulog version")
	ErrTruncatedInput        = errors.New("input truncated")
	ErrMalformedFormat       = errors.New("malformed format definition")
	ErrUnknownFormat         = errors.New("unknown format")
	ErrUnknownSubscription   = errors.New("unknown subscription")
	ErrDuplicateSubscription = errors.New("subscription id already bound")
	ErrSchemaMismatch        = errors.New("payload does not match format")
	ErrUnknownRecordType     = errors.New("unknown record type")
	ErrMalformedRecord       = errors.New("malformed record")
	ErrBufferTooLarge        = errors.New("input exceeds maximum buffer size")
)

// DecodeError reports where in the input a decode failed. Kind is one of the
// package sentinel errors (or a context error) and is exposed via Unwrap.
type DecodeError struct {
	Offset     int64
	RecordType byte
	Kind       error
	Detail     string
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("ulog: offset %d", e.Offset)
	if e.RecordType != 0 {
		msg += fmt.Sprintf(" (record %q)", e.RecordType)
	}
	msg += ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}

func newError(offset int64, kind error, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Offset: offset, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
