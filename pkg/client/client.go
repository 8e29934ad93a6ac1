package client

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/zkwire/zkwire/pkg/config"
	"github.com/zkwire/zkwire/pkg/dataconn"
	"github.com/zkwire/zkwire/pkg/proto"
	"github.com/zkwire/zkwire/pkg/types"
	"github.com/zkwire/zkwire/pkg/util"
)

const eventBufferSize = 64

// Conn runs a Packetizer over one TCP connection. A single loop goroutine
// owns the Packetizer; callers hand it requests through a channel and wait on
// the returned futures.
type Conn struct {
	addr string
	cfg  config.Config
	log  logrus.FieldLogger

	p              *dataconn.Packetizer
	sessionID      int64
	sessionPasswd  []byte
	sessionTimeout time.Duration
	readOnly       bool

	requests chan *call
	end      chan struct{}
	done     chan struct{}
	events   chan proto.WatcherEvent

	closing   atomic.Bool
	closeOnce util.Once
	err       error
}

type call struct {
	req       proto.Request
	future    *dataconn.Future
	err       error
	submitted chan struct{}
}

// Dial connects to cfg.Server and completes the handshake before returning.
// metrics may be nil.
func Dial(ctx context.Context, cfg config.Config, metrics *dataconn.Metrics) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	addr, err := util.GetServerAddress(cfg.Server)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %v", addr)
	}

	c := &Conn{
		addr:     addr,
		cfg:      cfg,
		log:      logrus.WithField("server", addr),
		requests: make(chan *call),
		end:      make(chan struct{}),
		done:     make(chan struct{}),
		events:   make(chan proto.WatcherEvent, eventBufferSize),
	}

	opts := cfg.Options()
	opts.ServerAddr = addr
	opts.Metrics = metrics
	opts.NotificationHandler = c.notify

	f := dataconn.Connect(dataconn.NewConnTransport(conn), opts)
	if err := c.handshake(ctx, f); err != nil {
		return nil, err
	}

	p, err := f.Result()
	if err != nil {
		return nil, err
	}
	c.p = p
	c.sessionID = p.SessionID()
	c.sessionPasswd = p.SessionPasswd()
	c.sessionTimeout = p.SessionTimeout()
	c.readOnly = p.ReadOnly()

	go c.loop()
	return c, nil
}

func (c *Conn) handshake(ctx context.Context, f *dataconn.ConnectFuture) error {
	for {
		select {
		case <-f.Done():
			return nil
		case <-ctx.Done():
			f.Packetizer().Shutdown(ctx.Err())
			return errors.Wrap(ctx.Err(), "handshake did not complete")
		default:
		}

		outcome, err := f.Drive()
		if err != nil {
			return err
		}
		if outcome == dataconn.DriveWouldBlock {
			time.Sleep(c.cfg.PollInterval)
		}
	}
}

func (c *Conn) loop() {
	defer close(c.done)
	defer close(c.events)

	timer := time.NewTimer(c.cfg.PollInterval)
	defer timer.Stop()

	for {
		outcome, err := c.p.Drive()
		if err != nil {
			if c.closing.Load() {
				c.log.WithError(err).Debug("Connection ended while closing")
			} else {
				c.log.WithError(err).Error("Connection lost")
				c.err = err
			}
			return
		}

		if outcome != dataconn.DriveWouldBlock {
			select {
			case <-c.end:
				c.err = c.p.Shutdown(nil)
				return
			case call := <-c.requests:
				c.submit(call)
			default:
			}
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(c.cfg.PollInterval)
		select {
		case <-c.end:
			c.err = c.p.Shutdown(nil)
			return
		case call := <-c.requests:
			c.submit(call)
		case <-timer.C:
		}
	}
}

func (c *Conn) submit(call *call) {
	call.future, call.err = c.p.Submit(call.req)
	close(call.submitted)
}

func (c *Conn) notify(resp proto.Response) {
	ev, err := proto.DecodeWatcherEvent(resp.Payload)
	if err != nil {
		c.log.WithError(err).Warn("Dropping undecodable notification")
		return
	}
	select {
	case c.events <- ev:
	default:
		c.log.WithField("path", ev.Path).Warn("Dropping notification, event buffer is full")
	}
}

// Submit queues req and returns its future without waiting for the reply.
func (c *Conn) Submit(ctx context.Context, req proto.Request) (*dataconn.Future, error) {
	call := &call{req: req, submitted: make(chan struct{})}
	select {
	case c.requests <- call:
	case <-c.done:
		return nil, c.closedError()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	<-call.submitted
	return call.future, call.err
}

// Do submits req and waits for its reply. A reply carrying a server error
// code is returned along with a *proto.ServerError.
func (c *Conn) Do(ctx context.Context, req proto.Request) (proto.Response, error) {
	f, err := c.Submit(ctx, req)
	if err != nil {
		return proto.Response{}, err
	}
	resp, err := f.Wait(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		f.Abandon()
	}
	return resp, err
}

func (c *Conn) Ping(ctx context.Context) error {
	_, err := c.Do(ctx, proto.Request{OpCode: types.OpPing})
	return err
}

func (c *Conn) GetData(ctx context.Context, path string, watch bool) (proto.GetDataResponse, error) {
	resp, err := c.Do(ctx, proto.Request{
		OpCode:  types.OpGetData,
		Payload: proto.PathWatchRequest{Path: path, Watch: watch}.Encode(),
	})
	if err != nil {
		return proto.GetDataResponse{}, err
	}
	return proto.DecodeGetDataResponse(resp.Payload)
}

func (c *Conn) Exists(ctx context.Context, path string, watch bool) (proto.Stat, error) {
	resp, err := c.Do(ctx, proto.Request{
		OpCode:  types.OpExists,
		Payload: proto.PathWatchRequest{Path: path, Watch: watch}.Encode(),
	})
	if err != nil {
		return proto.Stat{}, err
	}
	exists, err := proto.DecodeExistsResponse(resp.Payload)
	return exists.Stat, err
}

func (c *Conn) Children(ctx context.Context, path string, watch bool) ([]string, error) {
	resp, err := c.Do(ctx, proto.Request{
		OpCode:  types.OpGetChildren,
		Payload: proto.PathWatchRequest{Path: path, Watch: watch}.Encode(),
	})
	if err != nil {
		return nil, err
	}
	children, err := proto.DecodeGetChildrenResponse(resp.Payload)
	return children.Children, err
}

// Notifications delivers watch events. The channel is closed when the
// connection ends.
func (c *Conn) Notifications() <-chan proto.WatcherEvent {
	return c.events
}

// Close asks the server to end the session, then tears the connection down.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() error {
		select {
		case <-c.done:
			return nil
		default:
		}

		c.closing.Store(true)
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
		defer cancel()
		if _, cerr := c.Do(ctx, proto.Request{OpCode: types.OpCloseSession}); cerr != nil &&
			!errors.Is(cerr, dataconn.ErrConnectionClosed) {
			err = multierr.Append(err, errors.Wrap(cerr, "failed to close session"))
		}

		close(c.end)
		<-c.done
		err = multierr.Append(err, c.err)
		return nil
	})
	return err
}

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err reports why the connection ended, once Done is closed.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Conn) closedError() error {
	if err := c.Err(); err != nil {
		return err
	}
	return dataconn.ErrConnectionClosed
}

func (c *Conn) Addr() string {
	return c.addr
}

func (c *Conn) SessionID() int64 {
	return c.sessionID
}

func (c *Conn) SessionPasswd() []byte {
	return c.sessionPasswd
}

func (c *Conn) SessionTimeout() time.Duration {
	return c.sessionTimeout
}

func (c *Conn) ReadOnly() bool {
	return c.readOnly
}
