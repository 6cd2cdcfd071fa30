// Package h4 frames HCI traffic over a byte-stream transport (UART,
// socket), yielding one complete HCI packet per Read.
package h4

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/bluekit/bthost"
)

const rxQueueSize = 64

// Transport pumps a byte stream through the frame assembler. Read
// returns exactly one HCI packet, type indicator included.
type Transport struct {
	rw io.ReadWriteCloser

	rxQueue chan []byte

	wmu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewTransport wraps rw and starts the receive pump.
func NewTransport(rw io.ReadWriteCloser) *Transport {
	t := &Transport{
		rw:      rw,
		rxQueue: make(chan []byte, rxQueueSize),
		done:    make(chan struct{}),
	}
	go t.rxLoop()
	return t
}

func (t *Transport) rxLoop() {
	defer close(t.rxQueue)

	asm := newAssembler(t.rxQueue)
	b := make([]byte, 4096)
	for {
		n, err := t.rw.Read(b)
		switch {
		case err == io.EOF:
			return
		case err != nil:
			if t.isOpen() {
				bthost.ComponentLogger("h4").Errorf("read: %v", err)
			}
			return
		case n == 0:
			// read timeout
			if !t.isOpen() {
				return
			}
		default:
			asm.write(b[:n])
		}
	}
}

// Read copies the next complete HCI packet into p.
func (t *Transport) Read(p []byte) (int, error) {
	frame, ok := <-t.rxQueue
	if !ok {
		return 0, io.EOF
	}
	if len(frame) > len(p) {
		return 0, errors.Errorf("h4: frame of %d bytes exceeds read buffer", len(frame))
	}
	return copy(p, frame), nil
}

func (t *Transport) Write(p []byte) (int, error) {
	if !t.isOpen() {
		return 0, io.EOF
	}
	t.wmu.Lock()
	defer t.wmu.Unlock()
	n, err := t.rw.Write(p)
	return n, errors.Wrap(err, "h4: write")
}

func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.rw.Close()
	})
	return errors.Wrap(err, "h4: close")
}

func (t *Transport) isOpen() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}
