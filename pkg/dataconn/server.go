package dataconn

import (
	"bufio"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zkwire/zkwire/pkg/proto"
	"github.com/zkwire/zkwire/pkg/types"
)

// ServerHandler answers the frames a Server reads. Request returns nil when
// the request gets no reply.
type ServerHandler interface {
	Connect(req proto.ConnectRequest) proto.ConnectResponse
	Request(req proto.Request) *proto.Response
}

// Server speaks the server half of the framing over a blocking connection.
// It is a loopback peer for the client, not a ZooKeeper server.
type Server struct {
	conn         net.Conn
	reader       *bufio.Reader
	handler      ServerHandler
	maxFrameSize int
	log          logrus.FieldLogger

	responses  chan []byte
	done       chan struct{}
	writerDone chan struct{}
	stopOnce   sync.Once
}

func NewServer(conn net.Conn, handler ServerHandler) *Server {
	return &Server{
		conn:         conn,
		reader:       bufio.NewReaderSize(conn, DefaultReadBufferSize),
		handler:      handler,
		maxFrameSize: proto.DefaultMaxFrameSize,
		log:          logrus.WithField("peer", conn.RemoteAddr().String()),
		responses:    make(chan []byte, 1024),
		done:         make(chan struct{}),
		writerDone:   make(chan struct{}),
	}
}

// Handle serves the connection until the peer hangs up, closes its session
// or Stop is called. The connection is closed on return.
func (s *Server) Handle() error {
	go s.write()
	err := s.serve()
	s.stop()
	<-s.writerDone
	if cerr := s.conn.Close(); err == nil && cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		err = cerr
	}
	return err
}

func (s *Server) Stop() {
	s.stop()
	s.conn.Close()
}

func (s *Server) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *Server) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Notify pushes a watch event to the client.
func (s *Server) Notify(zxid int64, ev proto.WatcherEvent) error {
	frame, err := proto.EncodeResponse(proto.Response{
		ReplyHeader: proto.ReplyHeader{Xid: types.NotificationXid, Zxid: zxid},
		Payload:     ev.Encode(),
	}, s.maxFrameSize)
	if err != nil {
		return err
	}
	return s.push(frame)
}

func (s *Server) serve() error {
	frame, err := s.readFrame()
	if err != nil {
		return s.readError(err)
	}
	connReq, _, err := proto.DecodeConnectRequest(frame, s.maxFrameSize)
	if err != nil {
		return err
	}
	connResp := s.handler.Connect(connReq)
	out, err := proto.EncodeConnectResponse(connResp, s.maxFrameSize)
	if err != nil {
		return err
	}
	if err := s.push(out); err != nil {
		return err
	}
	if connResp.SessionID == 0 {
		s.log.Info("Rejected session")
		return nil
	}

	for {
		frame, err := s.readFrame()
		if err != nil {
			return s.readError(err)
		}
		req, _, err := proto.DecodeRequest(frame, s.maxFrameSize)
		if err != nil {
			return err
		}

		if resp := s.handler.Request(req); resp != nil {
			resp.Xid = req.Xid
			out, err := proto.EncodeResponse(*resp, s.maxFrameSize)
			if err != nil {
				return err
			}
			if err := s.push(out); err != nil {
				return err
			}
		}
		if req.OpCode == types.OpCloseSession {
			s.log.Debug("Session closed by client")
			return nil
		}
	}
}

func (s *Server) readError(err error) error {
	if err == io.EOF || s.stopped() {
		return nil
	}
	s.log.WithError(err).Error("Failed to read")
	return err
}

func (s *Server) readFrame() ([]byte, error) {
	header, err := s.reader.Peek(proto.LengthPrefixSize)
	if err != nil {
		return nil, err
	}
	total, _, err := proto.FrameSize(header, s.maxFrameSize)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, total)
	if _, err := io.ReadFull(s.reader, frame); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return frame, nil
}

func (s *Server) push(frame []byte) error {
	select {
	case s.responses <- frame:
		return nil
	case <-s.done:
		return ErrConnectionClosed
	}
}

// write drains queued replies before exiting so that the reply to a
// CloseSession still reaches the client.
func (s *Server) write() {
	defer close(s.writerDone)
	for {
		select {
		case frame := <-s.responses:
			if _, err := s.conn.Write(frame); err != nil {
				s.log.WithError(err).Error("Failed to write")
				return
			}
		case <-s.done:
			for {
				select {
				case frame := <-s.responses:
					if _, err := s.conn.Write(frame); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}
