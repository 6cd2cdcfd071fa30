package main

import (
	"sync"

	"github.com/bluekit/bthost"
	"github.com/bluekit/bthost/acl"
	"github.com/bluekit/bthost/handler"
)

// The emulator plays the lower controller manager: connection attempts
// succeed immediately, reads complete with canned data, and disconnects
// are acknowledged with the matching event. Everything is delivered on
// the handler the ACL manager registered, the way a real lower layer
// would.

type emuQueue struct {
	h       *handler.Handler
	produce func() acl.Builder
	ready   func()

	inbound  [][]byte
	received [][]byte
}

func (q *emuQueue) RegisterEnqueue(h *handler.Handler, produce func() acl.Builder) {
	q.produce = produce
	h.Post(func() {
		for q.produce != nil {
			q.received = append(q.received, q.produce().Serialize())
		}
	})
}

func (q *emuQueue) UnregisterEnqueue() {
	q.produce = nil
}

func (q *emuQueue) RegisterDequeue(h *handler.Handler, ready func()) {
	q.h = h
	q.ready = ready
}

func (q *emuQueue) UnregisterDequeue() {
	q.ready = nil
}

func (q *emuQueue) TryDequeue() []byte {
	if len(q.inbound) == 0 {
		return nil
	}
	pkt := q.inbound[0]
	q.inbound = q.inbound[1:]
	return pkt
}

// inject delivers an inbound payload as the controller would.
func (q *emuQueue) inject(pkt []byte) {
	q.h.Post(func() {
		q.inbound = append(q.inbound, pkt)
		if q.ready != nil {
			q.ready()
		}
	})
}

type emuClassicConn struct {
	handle  uint16
	address bthost.Address
	queue   *emuQueue

	events acl.ClassicConnectionEvents
	h      *handler.Handler
}

func (c *emuClassicConn) Handle() uint16          { return c.handle }
func (c *emuClassicConn) Address() bthost.Address { return c.address }
func (c *emuClassicConn) LocallyInitiated() bool  { return true }
func (c *emuClassicConn) Queue() acl.DataQueue    { return c.queue }

func (c *emuClassicConn) RegisterCallbacks(cb acl.ClassicConnectionEvents, h *handler.Handler) {
	c.events = cb
	c.h = h
}

func (c *emuClassicConn) ReadRemoteVersionInformation() {
	c.h.Post(func() {
		c.events.OnReadRemoteVersionInformationComplete(bthost.Success, 11, 0x000f, 0x2103)
	})
}

func (c *emuClassicConn) ReadRemoteSupportedFeatures() {
	c.h.Post(func() {
		c.events.OnReadRemoteSupportedFeaturesComplete(uint64(1) << 63)
	})
}

func (c *emuClassicConn) ReadRemoteExtendedFeatures(pageNumber uint8) {
	c.h.Post(func() {
		c.events.OnReadRemoteExtendedFeaturesComplete(pageNumber, 2, uint64(pageNumber))
	})
}

func (c *emuClassicConn) Disconnect(reason bthost.ErrorCode) {
	c.h.Post(func() {
		c.events.OnDisconnection(reason)
	})
}

func (c *emuClassicConn) HoldMode(maxInterval, minInterval uint16) bool { return true }
func (c *emuClassicConn) SniffMode(maxInterval, minInterval, attempt, timeout uint16) bool {
	return true
}
func (c *emuClassicConn) ExitSniffMode() bool { return true }
func (c *emuClassicConn) SniffSubrating(maximumLatency, minimumRemoteTimeout, minimumLocalTimeout uint16) bool {
	return true
}
func (c *emuClassicConn) SetConnectionEncryption(enable bool) bool { return true }
func (c *emuClassicConn) Flush()                                   {}

type emuLeConn struct {
	handle uint16
	peer   bthost.AddressWithType
	queue  *emuQueue

	events acl.LeConnectionEvents
	h      *handler.Handler
}

func (c *emuLeConn) Handle() uint16                          { return c.handle }
func (c *emuLeConn) RemoteAddress() bthost.AddressWithType   { return c.peer }
func (c *emuLeConn) LocalAddress() bthost.AddressWithType    { return bthost.AddressWithType{} }
func (c *emuLeConn) LocalOtaAddress() bthost.AddressWithType { return bthost.AddressWithType{} }
func (c *emuLeConn) PeerAddress() bthost.AddressWithType     { return c.peer }
func (c *emuLeConn) PeerOtaAddress() bthost.AddressWithType  { return c.peer }
func (c *emuLeConn) Role() bthost.Role                       { return bthost.RoleCentral }
func (c *emuLeConn) Interval() uint16                        { return 24 }
func (c *emuLeConn) Latency() uint16                         { return 0 }
func (c *emuLeConn) SupervisionTimeout() uint16              { return 400 }
func (c *emuLeConn) LocalResolvablePrivateAddress() bthost.Address {
	return bthost.EmptyAddress
}
func (c *emuLeConn) PeerResolvablePrivateAddress() bthost.Address {
	return bthost.EmptyAddress
}
func (c *emuLeConn) IsInFilterAcceptList() bool { return true }
func (c *emuLeConn) LocallyInitiated() bool     { return true }
func (c *emuLeConn) PeripheralData() (acl.PeripheralData, bool) {
	return acl.PeripheralData{}, false
}
func (c *emuLeConn) Queue() acl.DataQueue { return c.queue }

func (c *emuLeConn) RegisterCallbacks(cb acl.LeConnectionEvents, h *handler.Handler) {
	c.events = cb
	c.h = h
}

func (c *emuLeConn) ReadRemoteVersionInformation() {
	c.h.Post(func() {
		c.events.OnReadRemoteVersionInformationComplete(bthost.Success, 12, 0x000f, 0x4201)
	})
}

func (c *emuLeConn) Disconnect(reason bthost.ErrorCode) {
	c.h.Post(func() {
		c.events.OnDisconnection(reason)
	})
}

func (c *emuLeConn) LeConnectionUpdate(connIntervalMin, connIntervalMax, connLatency, connTimeout, minCeLen, maxCeLen uint16) {
	c.h.Post(func() {
		c.events.OnConnectionUpdate(bthost.Success, connIntervalMax, connLatency, connTimeout)
	})
}

func (c *emuLeConn) LeSubrateRequest(subrateMin, subrateMax, maxLatency, contNum, supTout uint16) {
	c.h.Post(func() {
		c.events.OnLeSubrateChange(bthost.Success, subrateMax, maxLatency, contNum, supTout)
	})
}

type emulator struct {
	mu sync.Mutex

	lower *handler.Handler
	cb    acl.ConnectionCallbacks
	leCb  acl.LeConnectionCallbacks

	nextHandle uint16

	classicConns []*emuClassicConn
	leConns      []*emuLeConn
}

func newEmulator() *emulator {
	return &emulator{nextHandle: 0x0010}
}

func (e *emulator) RegisterCallbacks(cb acl.ConnectionCallbacks, h *handler.Handler) {
	e.cb = cb
	e.lower = h
}

func (e *emulator) RegisterLeCallbacks(cb acl.LeConnectionCallbacks, h *handler.Handler) {
	e.leCb = cb
	e.lower = h
}

func (e *emulator) UnregisterCallbacks(done chan<- struct{})   { close(done) }
func (e *emulator) UnregisterLeCallbacks(done chan<- struct{}) { close(done) }

func (e *emulator) RegisterCompletedMonitorAclPacketsCallback(h *handler.Handler, cb func(uint16, uint16)) {
}
func (e *emulator) UnregisterCompletedMonitorAclPacketsCallback() {}

func (e *emulator) allocHandle() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.nextHandle
	e.nextHandle++
	return h
}

func (e *emulator) CreateConnection(address bthost.Address) {
	conn := &emuClassicConn{
		handle:  e.allocHandle(),
		address: address,
		queue:   &emuQueue{},
	}
	e.mu.Lock()
	e.classicConns = append(e.classicConns, conn)
	e.mu.Unlock()
	e.lower.Post(func() { e.cb.OnConnectSuccess(conn) })
}

func (e *emulator) CancelConnect(address bthost.Address) {
	e.lower.Post(func() {
		e.cb.OnConnectFail(address, bthost.UnknownConnection, true)
	})
}

func (e *emulator) CreateLeConnection(a bthost.AddressWithType, isDirect bool) {
	conn := &emuLeConn{
		handle: e.allocHandle(),
		peer:   a,
		queue:  &emuQueue{},
	}
	e.mu.Lock()
	e.leConns = append(e.leConns, conn)
	e.mu.Unlock()
	e.lower.Post(func() { e.leCb.OnLeConnectSuccess(a, conn) })
}

func (e *emulator) CancelLeConnect(a bthost.AddressWithType)          {}
func (e *emulator) RemoveFromBackgroundList(a bthost.AddressWithType) {}

func (e *emulator) AddDeviceToResolvingList(a bthost.AddressWithType, peerIRK, localIRK [16]byte) {}
func (e *emulator) RemoveDeviceFromResolvingList(a bthost.AddressWithType)                        {}
func (e *emulator) ClearResolvingList()                                                           {}
func (e *emulator) ClearFilterAcceptList()                                                        {}

func (e *emulator) LeSetDefaultSubrate(subrateMin, subrateMax, maxLatency, contNum, supTout uint16) {
}
func (e *emulator) SetSystemSuspendState(suspended bool) {}

func (e *emulator) OnClassicSuspendInitiatedDisconnect(handle uint16, reason bthost.ErrorCode) {}
func (e *emulator) OnLeSuspendInitiatedDisconnect(handle uint16, reason bthost.ErrorCode)      {}
