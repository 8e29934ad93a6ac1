package dataconn

import (
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Transport is a non-blocking byte stream. TryWrite and TryRead return
// ErrWouldBlock when no bytes can move right now; a write may accept fewer
// bytes than offered. TryRead returns io.EOF once the peer has closed.
type Transport interface {
	TryWrite(b []byte) (int, error)
	TryRead(b []byte) (int, error)
	Close() error
}

// NewConnTransport wraps conn in the cheapest non-blocking transport it
// supports: raw socket I/O when the connection exposes its file descriptor,
// short deadlines otherwise.
func NewConnTransport(conn net.Conn) Transport {
	t, err := newRawTransport(conn)
	if err == nil {
		return t
	}
	logrus.WithError(err).Debug("Falling back to deadline transport")
	return NewDeadlineTransport(conn, DefaultPollSlice)
}

type deadlineTransport struct {
	conn  net.Conn
	slice time.Duration
}

// NewDeadlineTransport emulates non-blocking I/O by arming a deadline of
// slice before every call and reporting the timeout as ErrWouldBlock.
func NewDeadlineTransport(conn net.Conn, slice time.Duration) Transport {
	if slice <= 0 {
		slice = DefaultPollSlice
	}
	return &deadlineTransport{
		conn:  conn,
		slice: slice,
	}
}

func (t *deadlineTransport) TryWrite(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.slice)); err != nil {
		return 0, err
	}
	n, err := t.conn.Write(b)
	if isTimeout(err) {
		if n > 0 {
			return n, nil
		}
		return 0, ErrWouldBlock
	}
	return n, err
}

func (t *deadlineTransport) TryRead(b []byte) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.slice)); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(b)
	if isTimeout(err) {
		if n > 0 {
			return n, nil
		}
		return 0, ErrWouldBlock
	}
	if err == io.EOF && n > 0 {
		return n, nil
	}
	return n, err
}

func (t *deadlineTransport) Close() error {
	return t.conn.Close()
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
