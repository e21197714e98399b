package ulog

import "bytes"

const (
	HeaderSize = 16

	MinVersion = 0
	MaxVersion = 1
)

var headerMagic = []byte{'U', 'L', 'o', 'g', 0x01, 0x12, 0x35}

// Header is the fixed file header. ULog timestamps are absolute on the
// logger clock, so Timestamp is kept as the log start and later timestamps are
// reported unchanged rather than rebased onto it.
type Header struct {
	Version   uint8
	Timestamp uint64
}

// ParseHeader validates the first HeaderSize bytes of buf.
func ParseHeader(buf []byte) (Header, error) {
	return readHeader(newCursor(buf, 0))
}

func readHeader(c *cursor) (Header, error) {
	var hdr Header
	magic, err := c.readBytes(len(headerMagic))
	if err != nil {
		// A short input that still matches the magic prefix is a truncated
		// log, anything else is not a ULog file at all.
		c.rewind()
		avail := c.rest()
		if bytes.HasPrefix(headerMagic, avail) {
			return hdr, err
		}
		return hdr, newError(0, ErrBadMagic, "got % x", avail)
	}
	if !bytes.Equal(magic, headerMagic) {
		return hdr, newError(0, ErrBadMagic, "got % x", magic)
	}
	version, err := c.readU8()
	if err != nil {
		return hdr, err
	}
	if version > MaxVersion {
		return hdr, newError(int64(len(headerMagic)), ErrUnsupportedVersion, "version %d, supported %d..%d", version, MinVersion, MaxVersion)
	}
	ts, err := c.readU64()
	if err != nil {
		return hdr, err
	}
	hdr.Version = version
	hdr.Timestamp = ts
	return hdr, nil
}
