package dataconn

import (
	"github.com/pkg/errors"

	"github.com/zkwire/zkwire/pkg/proto"
	"github.com/zkwire/zkwire/pkg/types"
)

// pendingTable maps xids to the futures waiting for their replies. Replies to
// the reserved xids (ping, auth, set watches) reuse the request's xid, so
// those waiters queue per xid and are answered in order.
type pendingTable struct {
	entries  map[int32]*Future
	reserved map[int32][]*Future
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		entries:  map[int32]*Future{},
		reserved: map[int32][]*Future{},
	}
}

func (t *pendingTable) register(xid int32, f *Future) error {
	if types.IsReservedXid(xid) {
		t.reserved[xid] = append(t.reserved[xid], f)
		return nil
	}
	if _, exists := t.entries[xid]; exists {
		return errors.Wrapf(ErrDuplicateXid, "xid %d", xid)
	}
	t.entries[xid] = f
	return nil
}

// resolve settles the waiter for xid with resp, tagged with the opcode of
// the request it answers.
func (t *pendingTable) resolve(xid int32, resp proto.Response) (*Future, error) {
	var f *Future
	if types.IsReservedXid(xid) {
		queue := t.reserved[xid]
		if len(queue) == 0 {
			return nil, errors.Wrapf(ErrUnknownXid, "no %d request outstanding", xid)
		}
		f = queue[0]
		queue[0] = nil
		if len(queue) == 1 {
			delete(t.reserved, xid)
		} else {
			t.reserved[xid] = queue[1:]
		}
	} else {
		var ok bool
		if f, ok = t.entries[xid]; !ok {
			return nil, errors.Wrapf(ErrUnknownXid, "xid %d", xid)
		}
		delete(t.entries, xid)
	}

	resp.OpCode = f.op
	f.settle(resp, nil)
	return f, nil
}

// abortAll fails every waiter with reason and empties the table.
func (t *pendingTable) abortAll(reason error) []*Future {
	aborted := make([]*Future, 0, t.len())
	for xid, f := range t.entries {
		aborted = append(aborted, f)
		delete(t.entries, xid)
	}
	for xid, queue := range t.reserved {
		aborted = append(aborted, queue...)
		delete(t.reserved, xid)
	}
	for _, f := range aborted {
		f.settle(proto.Response{}, reason)
	}
	return aborted
}

func (t *pendingTable) len() int {
	n := len(t.entries)
	for _, queue := range t.reserved {
		n += len(queue)
	}
	return n
}
