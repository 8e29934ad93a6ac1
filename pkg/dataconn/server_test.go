package dataconn

import (
	"net"
	"time"

	"github.com/pkg/errors"
	. "gopkg.in/check.v1"

	"github.com/zkwire/zkwire/pkg/proto"
	"github.com/zkwire/zkwire/pkg/types"
)

type loopback struct {
	listener net.Listener
	tree     *TreeHandler
	servers  chan *Server
	handled  chan error
}

func startLoopback(c *C) *loopback {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, IsNil)

	lb := &loopback{
		listener: l,
		tree:     NewTreeHandler(),
		servers:  make(chan *Server, 1),
		handled:  make(chan error, 1),
	}
	go func() {
		conn, err := l.Accept()
		if err != nil {
			lb.handled <- err
			return
		}
		server := NewServer(conn, lb.tree)
		lb.servers <- server
		lb.handled <- server.Handle()
	}()
	return lb
}

func (lb *loopback) close() {
	lb.listener.Close()
}

// waitFor drives p until done is closed.
func waitFor(c *C, p *Packetizer, done <-chan struct{}) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-done:
			return
		default:
		}
		outcome, err := p.Drive()
		c.Assert(err, IsNil)
		if outcome == DriveWouldBlock {
			time.Sleep(time.Millisecond)
		}
	}
	c.Fatal("timed out driving the packetizer")
}

func dialLoopback(c *C, lb *loopback, wrap func(net.Conn) Transport) *Packetizer {
	conn, err := net.Dial("tcp", lb.listener.Addr().String())
	c.Assert(err, IsNil)

	f := Connect(wrap(conn), testOptions())
	waitFor(c, f.Packetizer(), f.Done())
	p, err := f.Result()
	c.Assert(err, IsNil)
	return p
}

func (s *TestSuite) TestLoopbackRequests(c *C) {
	lb := startLoopback(c)
	defer lb.close()
	lb.tree.Set("/app/config", []byte("v1"))
	lb.tree.Set("/app/state", nil)

	p := dialLoopback(c, lb, NewConnTransport)
	c.Assert(p.SessionID(), Not(Equals), int64(0))
	c.Assert(p.SessionPasswd(), HasLen, 16)

	get, err := p.Submit(proto.Request{OpCode: types.OpGetData, Payload: proto.PathWatchRequest{Path: "/app/config"}.Encode()})
	c.Assert(err, IsNil)
	ls, err := p.Submit(proto.Request{OpCode: types.OpGetChildren, Payload: proto.PathWatchRequest{Path: "/app"}.Encode()})
	c.Assert(err, IsNil)
	missing, err := p.Submit(proto.Request{OpCode: types.OpExists, Payload: proto.PathWatchRequest{Path: "/nope"}.Encode()})
	c.Assert(err, IsNil)
	ping, err := p.Ping()
	c.Assert(err, IsNil)

	waitFor(c, p, ping.Done())
	waitFor(c, p, missing.Done())

	resp, err := get.Result()
	c.Assert(err, IsNil)
	data, err := proto.DecodeGetDataResponse(resp.Payload)
	c.Assert(err, IsNil)
	c.Assert(string(data.Data), Equals, "v1")
	c.Assert(data.Stat.DataLength, Equals, int32(2))

	resp, err = ls.Result()
	c.Assert(err, IsNil)
	children, err := proto.DecodeGetChildrenResponse(resp.Payload)
	c.Assert(err, IsNil)
	c.Assert(children.Children, DeepEquals, []string{"config", "state"})

	_, err = missing.Result()
	c.Assert(errors.Is(err, types.ErrCodeNoNode), Equals, true)

	closing, err := p.Submit(proto.Request{OpCode: types.OpCloseSession})
	c.Assert(err, IsNil)
	waitFor(c, p, closing.Done())
	_, err = closing.Result()
	c.Assert(err, IsNil)
	c.Assert(<-lb.handled, IsNil)

	c.Assert(p.Shutdown(nil), IsNil)
}

func (s *TestSuite) TestLoopbackNotification(c *C) {
	lb := startLoopback(c)
	defer lb.close()

	events := make(chan proto.WatcherEvent, 1)
	conn, err := net.Dial("tcp", lb.listener.Addr().String())
	c.Assert(err, IsNil)
	opts := testOptions()
	opts.NotificationHandler = func(resp proto.Response) {
		ev, err := proto.DecodeWatcherEvent(resp.Payload)
		c.Check(err, IsNil)
		events <- ev
	}
	f := Connect(NewDeadlineTransport(conn, time.Millisecond), opts)
	waitFor(c, f.Packetizer(), f.Done())
	p, err := f.Result()
	c.Assert(err, IsNil)

	server := <-lb.servers
	ev := proto.WatcherEvent{Type: types.EventNodeDeleted, State: types.KeeperStateSyncConnected, Path: "/gone"}
	c.Assert(server.Notify(7, ev), IsNil)

	deadline := time.Now().Add(5 * time.Second)
	for len(events) == 0 && time.Now().Before(deadline) {
		_, err := p.Drive()
		c.Assert(err, IsNil)
		time.Sleep(time.Millisecond)
	}
	c.Assert(<-events, DeepEquals, ev)
	c.Assert(p.LastZxid(), Equals, int64(7))

	server.Stop()
	c.Assert(<-lb.handled, IsNil)

	// the server hung up, the next drives see the end of the stream
	for i := 0; i < 1000 && p.State() != types.SessionStateClosed; i++ {
		if _, err := p.Drive(); err != nil {
			c.Assert(errors.Is(err, ErrTransport), Equals, true)
		}
		time.Sleep(time.Millisecond)
	}
	c.Assert(p.State(), Equals, types.SessionStateClosed)
}

func (s *TestSuite) TestDeadlineTransportWouldBlock(c *C) {
	client, server := net.Pipe()
	defer server.Close()
	t := NewDeadlineTransport(client, time.Millisecond)

	buf := make([]byte, 8)
	_, err := t.TryRead(buf)
	c.Assert(err, Equals, ErrWouldBlock)

	// nobody reads the other end of the pipe
	_, err = t.TryWrite([]byte("hello"))
	c.Assert(err, Equals, ErrWouldBlock)

	go server.Write([]byte("abc"))
	var n int
	for i := 0; i < 1000; i++ {
		if n, err = t.TryRead(buf); err != ErrWouldBlock {
			break
		}
	}
	c.Assert(err, IsNil)
	c.Assert(string(buf[:n]), Equals, "abc")

	c.Assert(t.Close(), IsNil)
}

func (s *TestSuite) TestTreeHandler(c *C) {
	h := NewTreeHandler()
	h.Set("a/b/c", []byte("deep"))
	h.Set("/a/b/c", []byte("deeper"))

	resp := h.Request(proto.Request{OpCode: types.OpGetData, Payload: proto.PathWatchRequest{Path: "/a/b/c"}.Encode()})
	c.Assert(resp.Code, Equals, types.ErrCodeOK)
	data, err := proto.DecodeGetDataResponse(resp.Payload)
	c.Assert(err, IsNil)
	c.Assert(string(data.Data), Equals, "deeper")
	c.Assert(data.Stat.Version, Equals, int32(1))

	resp = h.Request(proto.Request{OpCode: types.OpExists, Payload: proto.PathWatchRequest{Path: "/a"}.Encode()})
	exists, err := proto.DecodeExistsResponse(resp.Payload)
	c.Assert(err, IsNil)
	c.Assert(exists.Stat.NumChildren, Equals, int32(1))

	resp = h.Request(proto.Request{OpCode: types.OpGetChildren, Payload: proto.PathWatchRequest{Path: "/"}.Encode()})
	children, err := proto.DecodeGetChildrenResponse(resp.Payload)
	c.Assert(err, IsNil)
	c.Assert(children.Children, DeepEquals, []string{"a"})

	resp = h.Request(proto.Request{OpCode: types.OpCreate})
	c.Assert(resp.Code, Equals, types.ErrCodeUnimplemented)

	connResp := h.Connect(proto.ConnectRequest{TimeoutMs: 4000})
	c.Assert(connResp.SessionID, Not(Equals), int64(0))
	c.Assert(connResp.TimeoutMs, Equals, int32(4000))
	c.Assert(connResp.Passwd, HasLen, 16)
	c.Assert(connResp.Passwd, Not(DeepEquals), make([]byte, 16))
	resumed := h.Connect(proto.ConnectRequest{TimeoutMs: 4000, SessionID: connResp.SessionID})
	c.Assert(resumed.SessionID, Equals, connResp.SessionID)
}
