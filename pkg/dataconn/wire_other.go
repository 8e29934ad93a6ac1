//go:build !unix

package dataconn

import (
	"net"

	"github.com/pkg/errors"
)

func newRawTransport(conn net.Conn) (Transport, error) {
	return nil, errors.New("raw socket I/O is not supported on this platform")
}
