package wirebuf

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	. "gopkg.in/check.v1"

	"github.com/zkwire/zkwire/pkg/proto"
	"github.com/zkwire/zkwire/pkg/types"
)

func Test(t *testing.T) { TestingT(t) }

type TestSuite struct{}

var _ = Suite(&TestSuite{})

func testFrames(c *C) [][]byte {
	var frames [][]byte
	for i, payload := range [][]byte{nil, []byte("a"), bytes.Repeat([]byte("xyz"), 100), []byte("/zk")} {
		frame, err := proto.EncodeResponse(proto.Response{
			ReplyHeader: proto.ReplyHeader{Xid: int32(i + 1), Zxid: int64(i)},
			Payload:     payload,
		}, 0)
		c.Assert(err, IsNil)
		frames = append(frames, frame)
	}
	return frames
}

func (s *TestSuite) TestOutboxPartialWrites(c *C) {
	o := NewOutbox(8)
	c.Assert(o.IsEmpty(), Equals, true)

	o.Enqueue([]byte("first-"))
	o.Enqueue([]byte("second-"))
	o.Enqueue([]byte("third"))
	expected := []byte("first-second-third")
	c.Assert(o.Len(), Equals, len(expected))

	var written []byte
	for !o.IsEmpty() {
		// the transport accepts at most 5 bytes per call
		n := min(5, o.Len())
		written = append(written, o.Pending()[:n]...)
		o.Advance(n)
		o.Enqueue(nil)
	}
	c.Assert(written, DeepEquals, expected)
	c.Assert(o.Len(), Equals, 0)
	c.Assert(o.start, Equals, 0)
	c.Assert(len(o.buf), Equals, 0)
}

func (s *TestSuite) TestOutboxCompaction(c *C) {
	o := NewOutbox(4)
	o.Enqueue([]byte("abcdefgh"))
	o.Advance(3)
	// below the threshold nothing moves
	c.Assert(o.start, Equals, 3)
	c.Assert(string(o.Pending()), Equals, "defgh")

	o.Advance(2)
	c.Assert(o.start, Equals, 0)
	c.Assert(string(o.Pending()), Equals, "fgh")

	o.Enqueue([]byte("ij"))
	c.Assert(string(o.Pending()), Equals, "fghij")
	o.Advance(5)
	c.Assert(o.IsEmpty(), Equals, true)
	c.Assert(o.start, Equals, 0)
}

func (s *TestSuite) TestOutboxAdvanceTooFar(c *C) {
	o := NewOutbox(0)
	o.Enqueue([]byte("ab"))
	c.Assert(func() { o.Advance(3) }, PanicMatches, "outbox: advance 3 with 2 bytes pending")
}

func (s *TestSuite) TestInboxAnyChunking(c *C) {
	frames := testFrames(c)
	all := bytes.Join(frames, nil)

	for chunk := 1; chunk <= len(all); chunk++ {
		in := NewInbox(16, 0)
		var got [][]byte
		for off := 0; off < len(all); off += chunk {
			end := min(off+chunk, len(all))
			in.Append(all[off:end])
			for {
				frame, ok, err := in.TryTakeFrame()
				c.Assert(err, IsNil)
				if !ok {
					break
				}
				got = append(got, frame)
			}
		}
		c.Assert(got, DeepEquals, frames, Commentf("chunk size %d", chunk))
		c.Assert(in.Buffered(), Equals, 0)
	}
}

func (s *TestSuite) TestInboxManyFramesOneRead(c *C) {
	frames := testFrames(c)
	in := NewInbox(0, 0)
	in.Append(bytes.Join(frames, nil))

	for i := range frames {
		frame, ok, err := in.TryTakeFrame()
		c.Assert(err, IsNil)
		c.Assert(ok, Equals, true)
		resp, n, err := proto.DecodeResponse(frame, 0)
		c.Assert(err, IsNil)
		c.Assert(n, Equals, len(frame))
		c.Assert(resp.Xid, Equals, int32(i+1))
	}
	_, ok, err := in.TryTakeFrame()
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, false)
}

func (s *TestSuite) TestInboxFrameIsNotAliased(c *C) {
	frames := testFrames(c)
	in := NewInbox(1, 0)
	in.Append(frames[0])
	frame, ok, err := in.TryTakeFrame()
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
	snapshot := append([]byte(nil), frame...)

	in.Append(frames[2])
	c.Assert(frame, DeepEquals, snapshot)
}

func (s *TestSuite) TestInboxMalformedLength(c *C) {
	in := NewInbox(0, 1024)
	// a declared 1 GiB payload with nothing behind it
	in.Append([]byte{0x40, 0, 0, 0})
	_, ok, err := in.TryTakeFrame()
	c.Assert(ok, Equals, false)
	c.Assert(errors.Is(err, proto.ErrMalformedLength), Equals, true)
	c.Assert(in.Buffered(), Equals, 4)

	in.Reset()
	in.Append([]byte{0x80, 0, 0, 1})
	_, _, err = in.TryTakeFrame()
	c.Assert(errors.Is(err, proto.ErrMalformedLength), Equals, true)
}

func (s *TestSuite) TestInboxRequestFrames(c *C) {
	frame, err := proto.EncodeRequest(proto.Request{Xid: 9, OpCode: types.OpExists, Payload: []byte("p")}, 0)
	c.Assert(err, IsNil)
	in := NewInbox(0, 0)
	in.Append(frame[:3])
	_, ok, err := in.TryTakeFrame()
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, false)
	in.Append(frame[3:])
	got, ok, err := in.TryTakeFrame()
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
	c.Assert(got, DeepEquals, frame)
}
