package wirebuf

import (
	"github.com/zkwire/zkwire/pkg/proto"
)

// Inbox accumulates bytes read from the transport until they form complete
// frames. Bytes before the cursor have been handed out as frames.
type Inbox struct {
	buf              []byte
	start            int
	compactThreshold int
	maxFrameSize     int
}

func NewInbox(compactThreshold, maxFrameSize int) *Inbox {
	if compactThreshold <= 0 {
		compactThreshold = DefaultCompactThreshold
	}
	return &Inbox{
		compactThreshold: compactThreshold,
		maxFrameSize:     maxFrameSize,
	}
}

func (i *Inbox) Append(p []byte) {
	i.buf = append(i.buf, p...)
}

// TryTakeFrame returns the next complete frame, length prefix included. It
// returns ok == false without error when more bytes are needed. A malformed
// length prefix is reported as proto.ErrMalformedLength and nothing is
// consumed.
func (i *Inbox) TryTakeFrame() (frame []byte, ok bool, err error) {
	size, complete, err := proto.FrameSize(i.buf[i.start:], i.maxFrameSize)
	if err != nil || !complete {
		return nil, false, err
	}
	frame = make([]byte, size)
	copy(frame, i.buf[i.start:i.start+size])
	i.start += size
	i.buf, i.start = compact(i.buf, i.start, i.compactThreshold)
	return frame, true, nil
}

// Buffered returns the number of bytes not yet taken as frames.
func (i *Inbox) Buffered() int {
	return len(i.buf) - i.start
}

func (i *Inbox) Reset() {
	i.buf = i.buf[:0]
	i.start = 0
}
