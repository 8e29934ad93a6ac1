//go:build unix

package dataconn

import (
	"io"
	"net"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type rawTransport struct {
	conn net.Conn
	raw  syscall.RawConn
}

func newRawTransport(conn net.Conn) (Transport, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, errors.Errorf("%T does not expose its file descriptor", conn)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get raw connection")
	}
	return &rawTransport{conn: conn, raw: raw}, nil
}

// The callbacks return true so the runtime poller never parks the caller.
func (t *rawTransport) TryWrite(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	var (
		n     int
		ioErr error
	)
	if err := t.raw.Write(func(fd uintptr) bool {
		n, ioErr = unix.Write(int(fd), b)
		return true
	}); err != nil {
		return 0, err
	}
	if wouldBlock(ioErr) {
		return 0, ErrWouldBlock
	}
	if ioErr != nil {
		return 0, ioErr
	}
	return n, nil
}

func (t *rawTransport) TryRead(b []byte) (int, error) {
	var (
		n     int
		ioErr error
	)
	if err := t.raw.Read(func(fd uintptr) bool {
		n, ioErr = unix.Read(int(fd), b)
		return true
	}); err != nil {
		return 0, err
	}
	if wouldBlock(ioErr) {
		return 0, ErrWouldBlock
	}
	if ioErr != nil {
		return 0, ioErr
	}
	if n == 0 && len(b) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (t *rawTransport) Close() error {
	return t.conn.Close()
}

func wouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR
}
