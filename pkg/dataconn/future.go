package dataconn

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/zkwire/zkwire/pkg/proto"
	"github.com/zkwire/zkwire/pkg/types"
)

// Future is the handle returned by Submit. It settles exactly once, when the
// matching reply is routed or when the session is torn down. Any goroutine
// may wait on it.
type Future struct {
	xid       int32
	op        types.OpCode
	submitted time.Time

	done      chan struct{}
	resp      proto.Response
	err       error
	abandoned atomic.Bool
}

func newFuture(xid int32, op types.OpCode) *Future {
	return &Future{
		xid:       xid,
		op:        op,
		submitted: time.Now(),
		done:      make(chan struct{}),
	}
}

func (f *Future) Xid() int32 {
	return f.xid
}

func (f *Future) OpCode() types.OpCode {
	return f.op
}

func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns ErrPending until the future has settled. A reply whose
// header carries a server error code is returned together with a
// *proto.ServerError.
func (f *Future) Result() (proto.Response, error) {
	select {
	case <-f.done:
	default:
		return proto.Response{}, ErrPending
	}
	if f.err != nil {
		return proto.Response{}, f.err
	}
	return f.resp, f.resp.ServerError()
}

// Wait blocks until the future settles or ctx is done. Something else must
// keep driving the Packetizer meanwhile.
func (f *Future) Wait(ctx context.Context) (proto.Response, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return proto.Response{}, ctx.Err()
	}
}

// Abandon tells the engine nobody is interested in the result any more. A
// request already on the wire cannot be retracted; its reply is still
// matched and then dropped.
func (f *Future) Abandon() {
	f.abandoned.Store(true)
}

func (f *Future) Abandoned() bool {
	return f.abandoned.Load()
}

func (f *Future) settle(resp proto.Response, err error) {
	f.resp = resp
	f.err = err
	close(f.done)
}

// ConnectFuture settles with the Packetizer once the handshake is confirmed,
// or with an ErrHandshakeFailed error.
type ConnectFuture struct {
	p    *Packetizer
	done chan struct{}
	err  error
}

// Packetizer gives access to the engine before the handshake completes so
// the caller can drive it.
func (f *ConnectFuture) Packetizer() *Packetizer {
	return f.p
}

func (f *ConnectFuture) Drive() (DriveOutcome, error) {
	return f.p.Drive()
}

func (f *ConnectFuture) Done() <-chan struct{} {
	return f.done
}

func (f *ConnectFuture) Result() (*Packetizer, error) {
	select {
	case <-f.done:
	default:
		return nil, ErrPending
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.p, nil
}

func (f *ConnectFuture) Wait(ctx context.Context) (*Packetizer, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *ConnectFuture) settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *ConnectFuture) settle(err error) {
	f.err = err
	close(f.done)
}
