package client

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	. "gopkg.in/check.v1"

	"github.com/zkwire/zkwire/pkg/config"
	"github.com/zkwire/zkwire/pkg/dataconn"
	"github.com/zkwire/zkwire/pkg/proto"
	"github.com/zkwire/zkwire/pkg/types"
)

func Test(t *testing.T) { TestingT(t) }

type TestSuite struct {
	listener net.Listener
	tree     *dataconn.TreeHandler
	servers  chan *dataconn.Server
	handled  chan error
	serving  sync.WaitGroup
}

var _ = Suite(&TestSuite{})

// expiringHandler refuses every session the way a server refuses to resume
// an expired one.
type expiringHandler struct {
	*dataconn.TreeHandler
}

func (h expiringHandler) Connect(req proto.ConnectRequest) proto.ConnectResponse {
	return proto.ConnectResponse{ProtocolVersion: req.ProtocolVersion}
}

func (s *TestSuite) SetUpTest(c *C) {
	var err error
	s.listener, err = net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, IsNil)
	s.tree = dataconn.NewTreeHandler()
	s.tree.Set("/service/leader", []byte("node-1"))
	s.tree.Set("/service/members/node-1", nil)
	s.tree.Set("/service/members/node-2", nil)
	s.servers = make(chan *dataconn.Server, 1)
	s.handled = make(chan error, 1)
}

// serve accepts one connection and answers it with handler.
func (s *TestSuite) serve(handler dataconn.ServerHandler) {
	listener, servers, handled := s.listener, s.servers, s.handled
	s.serving.Add(1)
	go func() {
		defer s.serving.Done()
		conn, err := listener.Accept()
		if err != nil {
			handled <- err
			return
		}
		server := dataconn.NewServer(conn, handler)
		servers <- server
		handled <- server.Handle()
	}()
}

// TearDownTest stops a server the test never claimed and waits for the
// serve goroutine, so it never outlives its test.
func (s *TestSuite) TearDownTest(c *C) {
	s.listener.Close()
	select {
	case server := <-s.servers:
		server.Stop()
	default:
	}
	s.serving.Wait()
}

func (s *TestSuite) config() config.Config {
	cfg := config.Default()
	cfg.Server = s.listener.Addr().String()
	cfg.PollInterval = time.Millisecond
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

func (s *TestSuite) dial(c *C) *Conn {
	s.serve(s.tree)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, s.config(), dataconn.NewMetrics(prometheus.NewRegistry()))
	c.Assert(err, IsNil)
	return conn
}

func (s *TestSuite) TestReadRequests(c *C) {
	conn := s.dial(c)
	c.Assert(conn.SessionID(), Not(Equals), int64(0))
	c.Assert(conn.SessionTimeout(), Equals, 30*time.Second)
	c.Assert(conn.Addr(), Equals, s.listener.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.Assert(conn.Ping(ctx), IsNil)

	data, err := conn.GetData(ctx, "/service/leader", false)
	c.Assert(err, IsNil)
	c.Assert(string(data.Data), Equals, "node-1")

	children, err := conn.Children(ctx, "/service/members", false)
	c.Assert(err, IsNil)
	c.Assert(children, DeepEquals, []string{"node-1", "node-2"})

	stat, err := conn.Exists(ctx, "/service", false)
	c.Assert(err, IsNil)
	c.Assert(stat.NumChildren, Equals, int32(2))

	_, err = conn.Exists(ctx, "/missing", false)
	c.Assert(errors.Is(err, types.ErrCodeNoNode), Equals, true)

	c.Assert(conn.Close(), IsNil)
	c.Assert(<-s.handled, IsNil)
	c.Assert(conn.Err(), IsNil)

	// closing twice is harmless
	c.Assert(conn.Close(), IsNil)

	_, err = conn.Do(ctx, proto.Request{OpCode: types.OpPing})
	c.Assert(errors.Is(err, dataconn.ErrConnectionClosed), Equals, true)
}

func (s *TestSuite) TestPipelinedRequests(c *C) {
	conn := s.dial(c)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var futures []*dataconn.Future
	for i := 0; i < 50; i++ {
		f, err := conn.Submit(ctx, proto.Request{
			OpCode:  types.OpGetData,
			Payload: proto.PathWatchRequest{Path: "/service/leader"}.Encode(),
		})
		c.Assert(err, IsNil)
		futures = append(futures, f)
	}
	for _, f := range futures {
		resp, err := f.Wait(ctx)
		c.Assert(err, IsNil)
		c.Assert(resp.Xid, Equals, f.Xid())
	}
}

func (s *TestSuite) TestNotifications(c *C) {
	conn := s.dial(c)
	defer conn.Close()
	server := <-s.servers

	ev := proto.WatcherEvent{
		Type:  types.EventNodeChildrenChanged,
		State: types.KeeperStateSyncConnected,
		Path:  "/service/members",
	}
	c.Assert(server.Notify(3, ev), IsNil)

	select {
	case got := <-conn.Notifications():
		c.Assert(got, DeepEquals, ev)
	case <-time.After(5 * time.Second):
		c.Fatal("notification not delivered")
	}
}

func (s *TestSuite) TestServerGoesAway(c *C) {
	conn := s.dial(c)
	server := <-s.servers
	server.Stop()

	select {
	case <-conn.Done():
	case <-time.After(5 * time.Second):
		c.Fatal("connection did not notice the server leaving")
	}
	c.Assert(errors.Is(conn.Err(), dataconn.ErrTransport), Equals, true)

	_, ok := <-conn.Notifications()
	c.Assert(ok, Equals, false)

	err := conn.Ping(context.Background())
	c.Assert(errors.Is(err, dataconn.ErrTransport), Equals, true)
	c.Assert(conn.Close(), IsNil)
}

func (s *TestSuite) TestCancelledRequest(c *C) {
	conn := s.dial(c)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := conn.Do(ctx, proto.Request{OpCode: types.OpPing})
	c.Assert(errors.Is(err, context.Canceled), Equals, true)

	// the connection is still usable
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Assert(conn.Ping(ctx), IsNil)
}

func (s *TestSuite) TestExpiredSession(c *C) {
	s.serve(expiringHandler{s.tree})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Dial(ctx, s.config(), nil)
	c.Assert(errors.Is(err, dataconn.ErrHandshakeFailed), Equals, true)
	c.Assert(errors.Is(err, dataconn.ErrSessionExpired), Equals, true)
}

func (s *TestSuite) TestDialErrors(c *C) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := s.config()
	cfg.Server = ""
	_, err := Dial(ctx, cfg, nil)
	c.Assert(err, ErrorMatches, "empty server address")

	l, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, IsNil)
	addr := l.Addr().String()
	l.Close()

	cfg = s.config()
	cfg.Server = addr
	_, err = Dial(ctx, cfg, nil)
	c.Assert(err, ErrorMatches, "failed to dial .*")
}
