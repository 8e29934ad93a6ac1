package proto

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	// LengthPrefixSize is the size of the i32 that starts every frame.
	LengthPrefixSize = 4

	// DefaultMaxFrameSize is the server's default jute.maxbuffer plus room
	// for the frame headers.
	DefaultMaxFrameSize = 0xfffff + 1024

	requestHeaderSize = 4 + 4
	replyHeaderSize   = 4 + 8 + 4
)

func effectiveMax(maxFrameSize int) int {
	if maxFrameSize <= 0 {
		return DefaultMaxFrameSize
	}
	return maxFrameSize
}

// FrameSize inspects the length prefix at the start of buf. It returns the
// total size of the frame including the prefix and whether buf already holds
// all of it. A negative declared length, or one above maxFrameSize, fails with
// ErrMalformedLength before anything is allocated.
func FrameSize(buf []byte, maxFrameSize int) (int, bool, error) {
	if len(buf) < LengthPrefixSize {
		return 0, false, nil
	}
	declared := int32(binary.BigEndian.Uint32(buf))
	limit := effectiveMax(maxFrameSize)
	if declared < 0 || int64(declared) > int64(limit) {
		return 0, false, errors.Wrapf(ErrMalformedLength, "declared length %d, maximum %d", declared, limit)
	}
	total := LengthPrefixSize + int(declared)
	return total, len(buf) >= total, nil
}

// frameBody returns the bytes after the length prefix of the first frame in
// buf and the number of bytes that frame occupies.
func frameBody(buf []byte, maxFrameSize int) ([]byte, int, error) {
	total, complete, err := FrameSize(buf, maxFrameSize)
	if err != nil {
		return nil, 0, err
	}
	if !complete {
		return nil, 0, errors.Wrapf(ErrIncomplete, "have %d bytes", len(buf))
	}
	return buf[LengthPrefixSize:total], total, nil
}

func checkBodySize(bodyLen, maxFrameSize int) error {
	if limit := effectiveMax(maxFrameSize); bodyLen > limit {
		return errors.Wrapf(ErrFrameTooLarge, "body of %d bytes, maximum %d", bodyLen, limit)
	}
	return nil
}
