// Package jute implements the big-endian primitive encoding used inside
// ZooKeeper frames: fixed width integers, booleans as a single byte, and
// length-prefixed buffers, strings and vectors where a length of -1 means nil.
package jute

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	ErrShortBuffer   = errors.New("jute: insufficient data in buffer")
	ErrInvalidLength = errors.New("jute: invalid length")
)

type Encoder struct {
	buf []byte
}

func NewEncoder(dst []byte) *Encoder {
	return &Encoder{buf: dst}
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) Len() int {
	return len(e.buf)
}

func (e *Encoder) WriteInt32(v int32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(v))
}

func (e *Encoder) WriteInt64(v int64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(v))
}

// WriteRaw appends p without a length prefix.
func (e *Encoder) WriteRaw(p []byte) {
	e.buf = append(e.buf, p...)
}

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
		return
	}
	e.buf = append(e.buf, 0)
}

// WriteBuffer writes a nil slice as length -1.
func (e *Encoder) WriteBuffer(p []byte) {
	if p == nil {
		e.WriteInt32(-1)
		return
	}
	e.WriteInt32(int32(len(p)))
	e.buf = append(e.buf, p...)
}

func (e *Encoder) WriteString(s string) {
	e.WriteInt32(int32(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *Encoder) WriteStrings(ss []string) {
	if ss == nil {
		e.WriteInt32(-1)
		return
	}
	e.WriteInt32(int32(len(ss)))
	for _, s := range ss {
		e.WriteString(s)
	}
}

type Decoder struct {
	data   []byte
	offset int
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

func (d *Decoder) Remaining() int {
	return len(d.data) - d.offset
}

func (d *Decoder) Offset() int {
	return d.offset
}

func (d *Decoder) need(n int) (int, error) {
	if n < 0 || n > d.Remaining() {
		return 0, ErrShortBuffer
	}
	off := d.offset
	d.offset += n
	return off, nil
}

func (d *Decoder) ReadInt32() (int32, error) {
	off, err := d.need(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(d.data[off:])), nil
}

func (d *Decoder) ReadInt64() (int64, error) {
	off, err := d.need(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(d.data[off:])), nil
}

func (d *Decoder) ReadBool() (bool, error) {
	off, err := d.need(1)
	if err != nil {
		return false, err
	}
	return d.data[off] != 0, nil
}

// ReadBuffer copies the bytes out so the result outlives the decoded frame.
func (d *Decoder) ReadBuffer() ([]byte, error) {
	n, err := d.readLength()
	if err != nil || n < 0 {
		return nil, err
	}
	off, err := d.need(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, d.data[off:off+n])
	return out, nil
}

func (d *Decoder) ReadString() (string, error) {
	n, err := d.readLength()
	if err != nil || n < 0 {
		return "", err
	}
	off, err := d.need(n)
	if err != nil {
		return "", err
	}
	return string(d.data[off : off+n]), nil
}

func (d *Decoder) ReadStrings() ([]string, error) {
	n, err := d.readLength()
	if err != nil || n < 0 {
		return nil, err
	}
	// every element carries at least its own 4 byte length
	if n > d.Remaining()/4 {
		return nil, ErrShortBuffer
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// readLength returns -1 for a nil value and rejects any other negative length.
func (d *Decoder) readLength() (int, error) {
	v, err := d.ReadInt32()
	if err != nil {
		return 0, err
	}
	if v == -1 {
		return -1, nil
	}
	if v < 0 {
		return 0, errors.Wrapf(ErrInvalidLength, "length %d", v)
	}
	return int(v), nil
}
