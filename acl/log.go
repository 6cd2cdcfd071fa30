package acl

import "github.com/bluekit/bthost"

func logger() bthost.Logger {
	return bthost.ComponentLogger("acl")
}
