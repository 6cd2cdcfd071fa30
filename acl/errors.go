package acl

import "github.com/pkg/errors"

var (
	errDisconnected       = errors.New("acl link disconnected")
	errAlreadyInitialized = errors.New("acl manager already initialized")
)
