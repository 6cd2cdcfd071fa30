package h4

import (
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

// NewSocket opens an H4 transport over a TCP stream, typically towards a
// controller emulator.
func NewSocket(addr string, timeout time.Duration) (io.ReadWriteCloser, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "h4: can't dial %s", addr)
	}
	return NewTransport(conn), nil
}
