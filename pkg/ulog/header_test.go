package ulog

import (
	"errors"
	"testing"

	"example.com/ulogkit/internal/ulogtest"
)

func TestParseHeader(t *testing.T) {
	valid := ulogtest.New(1, 123_456).Bytes()
	tests := []struct {
		name    string
		buf     []byte
		wantErr error
	}{
		{name: "valid", buf: valid},
		{name: "version zero", buf: ulogtest.New(0, 1).Bytes()},
		{name: "empty", buf: nil, wantErr: ErrTruncatedInput},
		{name: "magic prefix", buf: valid[:3], wantErr: ErrTruncatedInput},
		{name: "short garbage", buf: []byte("XYZ"), wantErr: ErrBadMagic},
		{name: "wrong magic", buf: append([]byte("ULog\x01\x12\x36"), valid[7:]...), wantErr: ErrBadMagic},
		{name: "future version", buf: ulogtest.New(2, 1).Bytes(), wantErr: ErrUnsupportedVersion},
		{name: "no version", buf: valid[:7], wantErr: ErrTruncatedInput},
		{name: "short timestamp", buf: valid[:12], wantErr: ErrTruncatedInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hdr, err := ParseHeader(tc.buf)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHeader: %v", err)
			}
			if tc.name == "valid" && (hdr.Version != 1 || hdr.Timestamp != 123_456) {
				t.Fatalf("header = %+v, want version 1 timestamp 123456", hdr)
			}
		})
	}
}

func TestParseHeaderVersionOffset(t *testing.T) {
	_, err := ParseHeader(ulogtest.New(9, 0).Bytes())
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if de.Offset != 7 {
		t.Fatalf("Offset = %d, want 7", de.Offset)
	}
}
