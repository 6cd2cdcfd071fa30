package h4

import (
	"io"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

// DefaultSerialOptions is the usual configuration for an H4 UART
// controller.
func DefaultSerialOptions() serial.OpenOptions {
	return serial.OpenOptions{
		BaudRate:              115200,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       0,
		InterCharacterTimeout: 100,
	}
}

// NewSerial opens an H4 transport over a UART device.
func NewSerial(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	// a minimum read size would defeat the inter-character timeout
	opts.MinimumReadSize = 0
	if opts.InterCharacterTimeout == 0 {
		opts.InterCharacterTimeout = 100
	}

	sp, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "h4: can't open serial port")
	}
	return NewTransport(sp), nil
}
