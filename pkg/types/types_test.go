package types

import (
	"testing"

	"github.com/pkg/errors"
	. "gopkg.in/check.v1"
)

func Test(t *testing.T) { TestingT(t) }

type TestSuite struct{}

var _ = Suite(&TestSuite{})

func (s *TestSuite) TestParseOpCode(c *C) {
	testsets := []struct {
		wire     int32
		expected OpCode
	}{
		{0, OpNotification},
		{1, OpCreate},
		{4, OpGetData},
		{11, OpPing},
		{12, OpGetChildren2},
		{100, OpAuth},
		{102, OpSasl},
		{-10, OpCreateSession},
		{-11, OpCloseSession},
		{-1, OpError},
	}
	for _, t := range testsets {
		op, err := ParseOpCode(t.wire)
		c.Assert(err, IsNil)
		c.Assert(op, Equals, t.expected)
		c.Assert(op.Valid(), Equals, true)
	}

	for _, wire := range []int32{10, 15, 99, 103, -2, -12} {
		_, err := ParseOpCode(wire)
		c.Assert(errors.Is(err, ErrUnknownOpCode), Equals, true, Commentf("wire %d", wire))
	}
	c.Assert(OpCode(10).String(), Equals, "opcode(10)")
	c.Assert(OpGetData.String(), Equals, "getData")
}

func (s *TestSuite) TestReservedXid(c *C) {
	xid, ok := ReservedXid(OpPing)
	c.Assert(ok, Equals, true)
	c.Assert(xid, Equals, PingXid)

	xid, ok = ReservedXid(OpSetWatches)
	c.Assert(ok, Equals, true)
	c.Assert(xid, Equals, SetWatchesXid)

	_, ok = ReservedXid(OpGetData)
	c.Assert(ok, Equals, false)

	c.Assert(IsReservedXid(AuthXid), Equals, true)
	c.Assert(IsReservedXid(NotificationXid), Equals, false)
	c.Assert(IsReservedXid(7), Equals, false)
}

func (s *TestSuite) TestErrCode(c *C) {
	c.Assert(ErrCodeOK.OK(), Equals, true)
	c.Assert(ErrCodeNoNode.OK(), Equals, false)
	c.Assert(ErrCodeNoNode.Error(), Equals, "node does not exist")
	c.Assert(ErrCode(-999).Error(), Equals, "unknown error code -999")
}
