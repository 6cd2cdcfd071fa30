//go:build !linux
// +build !linux

package h4

import (
	"io"

	"github.com/pkg/errors"
)

// NewUserChannel is only available on linux.
func NewUserChannel(id int) (io.ReadWriteCloser, error) {
	return nil, errors.New("h4: hci user channel is only available on linux")
}
