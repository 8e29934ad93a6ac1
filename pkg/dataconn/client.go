package dataconn

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zkwire/zkwire/pkg/proto"
	"github.com/zkwire/zkwire/pkg/types"
	"github.com/zkwire/zkwire/pkg/util"
	"github.com/zkwire/zkwire/pkg/wirebuf"
)

// Packetizer owns one transport and runs the ZooKeeper framing, handshake
// and reply correlation over it. It is not safe for concurrent use: Submit,
// Drive and Shutdown must be called from one goroutine at a time.
type Packetizer struct {
	id        string
	transport Transport
	opts      Options
	log       logrus.FieldLogger
	metrics   *Metrics

	state     types.SessionState
	outbox    *wirebuf.Outbox
	inbox     *wirebuf.Inbox
	readBuf   []byte
	pending   *pendingTable
	handshake *handshake
	connect   *ConnectFuture

	xid      int32
	lastZxid int64
	session  proto.ConnectResponse
	reason   error
}

// Connect takes ownership of t and queues the Connect request. The returned
// future settles once the server confirms the session; until then the
// packetizer has to be driven through ConnectFuture.Drive.
func Connect(t Transport, opts Options) *ConnectFuture {
	opts = opts.withDefaults()
	id := util.RandomID()

	p := &Packetizer{
		id:        id,
		transport: t,
		opts:      opts,
		metrics:   opts.Metrics,
		log: opts.Logger.WithFields(logrus.Fields{
			"conn":   id,
			"server": opts.ServerAddr,
		}),
		state:   types.SessionStateDisconnected,
		outbox:  wirebuf.NewOutbox(opts.CompactThreshold),
		inbox:   wirebuf.NewInbox(opts.CompactThreshold, opts.MaxFrameSize),
		readBuf: make([]byte, opts.ReadBufferSize),
		pending: newPendingTable(),
	}
	f := &ConnectFuture{p: p, done: make(chan struct{})}
	p.connect = f

	p.handshake = newHandshake(proto.ConnectRequest{
		ProtocolVersion: opts.ProtocolVersion,
		LastZxidSeen:    opts.LastZxidSeen,
		TimeoutMs:       int32(opts.SessionTimeout / time.Millisecond),
		SessionID:       opts.SessionID,
		Passwd:          opts.SessionPasswd,
		ReadOnly:        opts.ReadOnly,
	}, opts.MaxFrameSize)

	p.state = types.SessionStateHandshaking
	if err := p.handshake.start(p.outbox); err != nil {
		p.shutdown(err)
		return f
	}
	p.metrics.frameSent(types.OpCreateSession)
	p.log.WithField("sessionID", hexID(opts.SessionID)).Debug("Queued connect request")
	return f
}

// Submit assigns an xid to req, queues its frame and returns a future for
// the reply. Ping, auth and set-watches requests use their reserved xids.
func (p *Packetizer) Submit(req proto.Request) (*Future, error) {
	if p.state != types.SessionStateEstablished {
		return nil, errors.Wrapf(ErrNotEstablished, "session is %s", p.state)
	}
	switch req.OpCode {
	case types.OpNotification, types.OpError, types.OpCreateSession:
		return nil, errors.Wrapf(ErrInvalidOpCode, "%v", req.OpCode)
	}
	if !req.OpCode.Valid() {
		return nil, errors.Wrapf(ErrInvalidOpCode, "%v", req.OpCode)
	}

	xid, reserved := types.ReservedXid(req.OpCode)
	if !reserved {
		xid = p.nextXid()
	}
	req.Xid = xid

	frame, err := proto.EncodeRequest(req, p.opts.MaxFrameSize)
	if err != nil {
		return nil, err
	}

	f := newFuture(xid, req.OpCode)
	if err := p.pending.register(xid, f); err != nil {
		p.log.WithError(err).Error("Xid generation collided with a pending request")
		p.shutdown(err)
		return nil, err
	}
	p.outbox.Enqueue(frame)
	p.metrics.frameSent(req.OpCode)
	p.metrics.requestRegistered()
	return f, nil
}

func (p *Packetizer) Ping() (*Future, error) {
	return p.Submit(proto.Request{OpCode: types.OpPing})
}

func (p *Packetizer) nextXid() int32 {
	if p.xid == math.MaxInt32 {
		p.xid = 0
	}
	p.xid++
	return p.xid
}

// Drive makes one non-blocking pass: flush what the transport accepts, read
// what it offers, and route every complete frame. Any framing, correlation
// or transport failure shuts the session down and is returned.
func (p *Packetizer) Drive() (DriveOutcome, error) {
	if p.state == types.SessionStateClosed {
		return DriveClosed, newError(ErrConnectionClosed, p.reason)
	}

	written, err := p.flush()
	if err != nil {
		return p.abort(newError(ErrTransport, errors.Wrap(err, "write failed")))
	}

	read, readErr := p.fill()
	frames, err := p.dispatch()
	if err != nil {
		return p.abort(err)
	}
	if readErr != nil {
		return p.abort(newError(ErrTransport, errors.Wrap(readErr, "read failed")))
	}

	if written > 0 || read > 0 || frames > 0 {
		return DriveProgress, nil
	}
	return DriveWouldBlock, nil
}

func (p *Packetizer) flush() (int, error) {
	total := 0
	for !p.outbox.IsEmpty() {
		n, err := p.transport.TryWrite(p.outbox.Pending())
		if n > 0 {
			p.outbox.Advance(n)
			total += n
		}
		if errors.Is(err, ErrWouldBlock) {
			break
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	p.metrics.written(total)
	return total, nil
}

func (p *Packetizer) fill() (int, error) {
	n, err := p.transport.TryRead(p.readBuf)
	if n > 0 {
		p.inbox.Append(p.readBuf[:n])
		p.metrics.read(n)
	}
	if errors.Is(err, ErrWouldBlock) {
		return n, nil
	}
	if err == io.EOF {
		return n, errors.Wrap(err, "server closed the connection")
	}
	return n, err
}

func (p *Packetizer) dispatch() (int, error) {
	frames := 0
	for p.state == types.SessionStateHandshaking || p.state == types.SessionStateEstablished {
		frame, ok, err := p.inbox.TryTakeFrame()
		if err != nil {
			return frames, err
		}
		if !ok {
			break
		}
		frames++

		if p.state == types.SessionStateHandshaking {
			resp, err := p.handshake.receive(frame)
			if err != nil {
				return frames, err
			}
			p.established(resp)
			continue
		}
		if err := p.route(frame); err != nil {
			return frames, err
		}
	}
	return frames, nil
}

func (p *Packetizer) established(resp proto.ConnectResponse) {
	p.session = resp
	p.state = types.SessionStateEstablished
	p.metrics.frameReceived(frameKindHandshake)
	p.metrics.sessionEstablished()
	p.log.WithFields(logrus.Fields{
		"sessionID": hexID(resp.SessionID),
		"timeout":   p.SessionTimeout(),
		"readOnly":  resp.ReadOnly,
	}).Info("Session established")
	p.connect.settle(nil)
}

func (p *Packetizer) route(frame []byte) error {
	resp, _, err := proto.DecodeResponse(frame, p.opts.MaxFrameSize)
	if err != nil {
		return err
	}
	if resp.Zxid > p.lastZxid {
		p.lastZxid = resp.Zxid
	}

	if resp.Xid == types.NotificationXid {
		resp.OpCode = types.OpNotification
		p.metrics.frameReceived(frameKindNotification)
		if p.opts.NotificationHandler == nil {
			p.log.Debug("Dropping notification, no handler registered")
			return nil
		}
		p.opts.NotificationHandler(resp)
		return nil
	}

	f, err := p.pending.resolve(resp.Xid, resp)
	if err != nil {
		return err
	}
	p.metrics.frameReceived(frameKindReply)
	p.metrics.requestSettled(f, true)
	if f.Abandoned() {
		p.log.WithFields(logrus.Fields{
			"xid": f.xid,
			"op":  f.op,
		}).Debug("Discarded reply for abandoned request")
	}
	return nil
}

func (p *Packetizer) abort(err error) (DriveOutcome, error) {
	p.log.WithError(err).Error("Tearing down session")
	p.shutdown(err)
	return DriveClosed, err
}

// Shutdown closes the session: every pending future fails with
// ErrConnectionClosed carrying reason, an unsettled connect future fails
// with ErrHandshakeFailed, and the transport is closed. Calling it again is
// a no-op.
func (p *Packetizer) Shutdown(reason error) error {
	if p.state == types.SessionStateClosed {
		return nil
	}
	return p.shutdown(reason)
}

func (p *Packetizer) shutdown(reason error) error {
	p.state = types.SessionStateClosed
	p.reason = reason

	aborted := p.pending.abortAll(newError(ErrConnectionClosed, reason))
	for _, f := range aborted {
		p.metrics.requestSettled(f, false)
	}

	if !p.connect.settled() {
		p.handshake.fail()
		p.connect.settle(newError(ErrHandshakeFailed, reasonOrClosed(reason)))
	}

	p.outbox.Reset()
	p.inbox.Reset()
	err := p.transport.Close()

	p.metrics.sessionTeardown(teardownCause(reason))
	p.log.WithFields(logrus.Fields{
		"aborted": len(aborted),
		"reason":  reason,
	}).Info("Session closed")
	return err
}

func reasonOrClosed(reason error) error {
	if reason == nil {
		return ErrConnectionClosed
	}
	return reason
}

func teardownCause(reason error) string {
	switch {
	case reason == nil:
		return "requested"
	case errors.Is(reason, ErrHandshakeFailed):
		return "handshake"
	case errors.Is(reason, ErrTransport):
		return "transport"
	case errors.Is(reason, ErrMalformedLength),
		errors.Is(reason, proto.ErrMalformedBody),
		errors.Is(reason, ErrUnknownXid),
		errors.Is(reason, ErrDuplicateXid):
		return "protocol"
	}
	return "requested"
}

func (p *Packetizer) ID() string {
	return p.id
}

func (p *Packetizer) State() types.SessionState {
	return p.state
}

// HandshakeState reports where the Connect exchange stands.
func (p *Packetizer) HandshakeState() types.HandshakeState {
	return p.handshake.state
}

func (p *Packetizer) SessionID() int64 {
	return p.session.SessionID
}

func (p *Packetizer) SessionPasswd() []byte {
	return p.session.Passwd
}

// SessionTimeout is the timeout negotiated by the server.
func (p *Packetizer) SessionTimeout() time.Duration {
	return time.Duration(p.session.TimeoutMs) * time.Millisecond
}

func (p *Packetizer) ReadOnly() bool {
	return p.session.ReadOnly
}

// LastZxid is the highest zxid seen in any reply header, to be handed back
// as LastZxidSeen when the session is resumed on another connection.
func (p *Packetizer) LastZxid() int64 {
	return p.lastZxid
}

func (p *Packetizer) PendingCount() int {
	return p.pending.len()
}

func hexID(id int64) string {
	return fmt.Sprintf("0x%x", id)
}
