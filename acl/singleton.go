package acl

import (
	"sync"

	"github.com/bluekit/bthost/handler"
)

// The manager is a process-wide object bracketed by Init and TearDown.
// The mutex is an init guard, not a hot-path lock.
var (
	instanceMu sync.Mutex
	instance   *Manager
)

// Init constructs the process-wide ACL manager. A second Init without an
// intervening TearDown is refused.
func Init(upper *handler.Handler, cm ConnectionManager, callbacks Callbacks,
	maxAcceptListSize, maxAddressResolutionSize uint8) (*Manager, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		return nil, errAlreadyInitialized
	}
	m, err := NewManager(upper, cm, callbacks, maxAcceptListSize, maxAddressResolutionSize)
	if err != nil {
		return nil, err
	}
	instance = m
	return m, nil
}

// Get returns the process-wide manager, nil before Init.
func Get() *Manager {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	return instance
}

// TearDown runs the final shutdown sequence and releases the process-wide
// manager. Safe to call when Init never ran.
func TearDown() {
	instanceMu.Lock()
	m := instance
	instance = nil
	instanceMu.Unlock()

	if m == nil {
		return
	}
	m.FinalShutdown()
	m.Close()
}
