package acl

import (
	"github.com/bluekit/bthost"
)

// acceptListEntry is the key the controller's filter accept list
// distinguishes entries by. (A, public) and (A, random) are distinct.
type acceptListEntry struct {
	Address bthost.Address
	Type    bthost.FilterAcceptListAddressType
}

func (e acceptListEntry) String() string {
	return e.Address.String() + "[" + e.Type.String() + "]"
}

func toAcceptListEntry(a bthost.AddressWithType) acceptListEntry {
	return acceptListEntry{
		Address: a.Address,
		Type:    a.ToFilterAcceptListAddressType(),
	}
}

// shadowAcceptList mirrors the controller's filter accept list so capacity
// and duplicates are enforced without a round trip.
type shadowAcceptList struct {
	maxSize uint8
	set     map[acceptListEntry]struct{}
}

func newShadowAcceptList(maxSize uint8) *shadowAcceptList {
	return &shadowAcceptList{
		maxSize: maxSize,
		set:     make(map[acceptListEntry]struct{}),
	}
}

// add inserts the entry, returning false when the list is full. A
// duplicate insert warns but reports success (set semantics).
func (s *shadowAcceptList) add(a bthost.AddressWithType) bool {
	if len(s.set) == int(s.maxSize) {
		logger().Errorf("acceptlist is full size:%d", len(s.set))
		return false
	}
	entry := toAcceptListEntry(a)
	if _, ok := s.set[entry]; ok {
		logger().Warnf("attempted to add duplicate le address to acceptlist:%s", entry)
		return true
	}
	s.set[entry] = struct{}{}
	return true
}

// remove deletes the entry, reporting whether it was present.
func (s *shadowAcceptList) remove(a bthost.AddressWithType) bool {
	entry := toAcceptListEntry(a)
	if _, ok := s.set[entry]; !ok {
		logger().Warnf("unknown device being removed from acceptlist:%s", entry)
		return false
	}
	delete(s.set, entry)
	return true
}

// snapshot returns a copy of the current set.
func (s *shadowAcceptList) snapshot() map[acceptListEntry]struct{} {
	out := make(map[acceptListEntry]struct{}, len(s.set))
	for k := range s.set {
		out[k] = struct{}{}
	}
	return out
}

func (s *shadowAcceptList) isFull() bool {
	return len(s.set) == int(s.maxSize)
}

func (s *shadowAcceptList) size() int { return len(s.set) }

func (s *shadowAcceptList) getMaxSize() uint8 { return s.maxSize }

func (s *shadowAcceptList) clear() {
	s.set = make(map[acceptListEntry]struct{})
}

// shadowResolvingList mirrors the controller's address resolution list.
type shadowResolvingList struct {
	maxSize uint8
	set     map[bthost.AddressWithType]struct{}
}

func newShadowResolvingList(maxSize uint8) *shadowResolvingList {
	return &shadowResolvingList{
		maxSize: maxSize,
		set:     make(map[bthost.AddressWithType]struct{}),
	}
}

func (s *shadowResolvingList) add(a bthost.AddressWithType) bool {
	if len(s.set) == int(s.maxSize) {
		logger().Errorf("address resolution is full size:%d", len(s.set))
		return false
	}
	if _, ok := s.set[a]; ok {
		logger().Warnf("attempted to add duplicate le address to address_resolution:%s", a)
		return true
	}
	s.set[a] = struct{}{}
	return true
}

func (s *shadowResolvingList) remove(a bthost.AddressWithType) bool {
	if _, ok := s.set[a]; !ok {
		logger().Warnf("unknown device being removed from address_resolution:%s", a)
		return false
	}
	delete(s.set, a)
	return true
}

func (s *shadowResolvingList) snapshot() map[bthost.AddressWithType]struct{} {
	out := make(map[bthost.AddressWithType]struct{}, len(s.set))
	for k := range s.set {
		out[k] = struct{}{}
	}
	return out
}

func (s *shadowResolvingList) isFull() bool {
	return len(s.set) == int(s.maxSize)
}

func (s *shadowResolvingList) size() int { return len(s.set) }

func (s *shadowResolvingList) getMaxSize() uint8 { return s.maxSize }

func (s *shadowResolvingList) clear() {
	s.set = make(map[bthost.AddressWithType]struct{})
}
