// Package wirebuf holds the byte buffers that sit between the frame codec and
// a non-blocking transport.
package wirebuf

import "fmt"

// DefaultCompactThreshold is the cursor position past which already handled
// bytes are dropped even though the buffer still holds unhandled ones.
const DefaultCompactThreshold = 4096

// Outbox accumulates framed outgoing bytes. Bytes before the cursor have
// been written to the transport.
type Outbox struct {
	buf              []byte
	start            int
	compactThreshold int
}

func NewOutbox(compactThreshold int) *Outbox {
	if compactThreshold <= 0 {
		compactThreshold = DefaultCompactThreshold
	}
	return &Outbox{compactThreshold: compactThreshold}
}

func (o *Outbox) Enqueue(frame []byte) {
	o.buf = append(o.buf, frame...)
}

// Pending returns the bytes not yet written. The slice is only valid until
// the next Enqueue or Advance.
func (o *Outbox) Pending() []byte {
	return o.buf[o.start:]
}

// Advance marks n bytes as written.
func (o *Outbox) Advance(n int) {
	if n < 0 || n > o.Len() {
		panic(fmt.Sprintf("outbox: advance %d with %d bytes pending", n, o.Len()))
	}
	o.start += n
	o.buf, o.start = compact(o.buf, o.start, o.compactThreshold)
}

func (o *Outbox) IsEmpty() bool {
	return o.Len() == 0
}

func (o *Outbox) Len() int {
	return len(o.buf) - o.start
}

// Reset drops everything, written or not.
func (o *Outbox) Reset() {
	o.buf = o.buf[:0]
	o.start = 0
}

func compact(buf []byte, start, threshold int) ([]byte, int) {
	if start == len(buf) {
		return buf[:0], 0
	}
	if start < threshold {
		return buf, start
	}
	n := copy(buf, buf[start:])
	return buf[:n], 0
}
