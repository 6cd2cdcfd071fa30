//go:build linux
// +build linux

package h4

import (
	"io"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func ioR(t, nr, size uintptr) uintptr {
	return (2 << 30) | (t << 8) | nr | (size << 16)
}

func ioW(t, nr, size uintptr) uintptr {
	return (1 << 30) | (t << 8) | nr | (size << 16)
}

func ioctl(fd, op, arg uintptr) error {
	if _, _, ep := unix.Syscall(unix.SYS_IOCTL, fd, op, arg); ep != 0 {
		return ep
	}
	return nil
}

const (
	ioctlSize     = 4
	hciMaxDevices = 16
	typHCI        = 72 // 'H'
	readTimeoutMs = 1000

	pollErrors = int16(unix.POLLHUP | unix.POLLNVAL | unix.POLLERR)
	pollDataIn = int16(unix.POLLIN)
)

var (
	hciDownDevice    = ioW(typHCI, 202, ioctlSize) // HCIDEVDOWN
	hciGetDeviceList = ioR(typHCI, 210, ioctlSize) // HCIGETDEVLIST
)

type devListRequest struct {
	devNum     uint16
	devRequest [hciMaxDevices]struct {
		id  uint16
		opt uint32
	}
}

// userChannel is an exclusive HCI user-channel socket on a local
// controller.
type userChannel struct {
	fd   int
	rmu  sync.Mutex
	wmu  sync.Mutex
	cmu  sync.Mutex
	done chan struct{}
}

// NewUserChannel binds the HCI user channel of device id. Pass -1 for
// the first device that accepts exclusive access.
func NewUserChannel(id int) (io.ReadWriteCloser, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "h4: can't create hci socket")
	}

	if id != -1 {
		uc, err := bindUserChannel(fd, id)
		if err != nil {
			unix.Close(fd)
			return nil, err
		}
		return uc, nil
	}

	req := devListRequest{devNum: hciMaxDevices}
	if err := ioctl(uintptr(fd), hciGetDeviceList, uintptr(unsafe.Pointer(&req))); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "h4: can't get hci device list")
	}
	for id := 0; id < int(req.devNum); id++ {
		uc, err := bindUserChannel(fd, id)
		if err == nil {
			return uc, nil
		}
	}
	unix.Close(fd)
	return nil, errors.New("h4: no hci devices available")
}

func bindUserChannel(fd, id int) (*userChannel, error) {
	// exclusive access requires the device down at bind time
	if err := ioctl(uintptr(fd), hciDownDevice, uintptr(id)); err != nil {
		return nil, errors.Wrapf(err, "h4: can't down hci%d", id)
	}

	sa := unix.SockaddrHCI{Dev: uint16(id), Channel: unix.HCI_CHANNEL_USER}
	if err := unix.Bind(fd, &sa); err != nil {
		return nil, errors.Wrapf(err, "h4: can't bind hci%d user channel", id)
	}

	// clear anything already pending on the channel
	pfds := []unix.PollFd{{Fd: int32(fd), Events: pollDataIn}}
	unix.Poll(pfds, 20)
	switch {
	case pfds[0].Revents&pollErrors != 0:
		return nil, io.EOF
	case pfds[0].Revents&pollDataIn != 0:
		b := make([]byte, 2048)
		unix.Read(fd, b)
	}

	return &userChannel{fd: fd, done: make(chan struct{})}, nil
}

func (u *userChannel) Read(p []byte) (int, error) {
	if !u.isOpen() {
		return 0, io.EOF
	}

	u.rmu.Lock()
	defer u.rmu.Unlock()

	pfds := []unix.PollFd{{Fd: int32(u.fd), Events: pollDataIn}}
	unix.Poll(pfds, readTimeoutMs)
	switch {
	case pfds[0].Revents&pollErrors != 0:
		return 0, io.EOF
	case pfds[0].Revents&pollDataIn == 0:
		// read timeout
		return 0, nil
	}

	n, err := unix.Read(u.fd, p)
	if !u.isOpen() {
		return 0, io.EOF
	}
	return n, errors.Wrap(err, "h4: can't read hci user channel")
}

func (u *userChannel) Write(p []byte) (int, error) {
	if !u.isOpen() {
		return 0, io.EOF
	}
	u.wmu.Lock()
	defer u.wmu.Unlock()
	n, err := unix.Write(u.fd, p)
	return n, errors.Wrap(err, "h4: can't write hci user channel")
}

func (u *userChannel) Close() error {
	u.cmu.Lock()
	defer u.cmu.Unlock()

	select {
	case <-u.done:
		return nil
	default:
		close(u.done)
		u.rmu.Lock()
		err := unix.Close(u.fd)
		u.rmu.Unlock()
		return errors.Wrap(err, "h4: can't close hci user channel")
	}
}

func (u *userChannel) isOpen() bool {
	select {
	case <-u.done:
		return false
	default:
		return true
	}
}
