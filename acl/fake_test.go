package acl

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bluekit/bthost"
	"github.com/bluekit/bthost/handler"
)

// fakeQueue stands in for the lower layer's per-connection data queue.
// All fields are touched only on the lower handler; tests read them after
// a CallOn flush.
type fakeQueue struct {
	produce func() Builder
	ready   func()

	enqueueRegistered bool
	dequeueRegistered bool

	inbound [][]byte
	sent    [][]byte
}

func (q *fakeQueue) RegisterEnqueue(h *handler.Handler, produce func() Builder) {
	q.produce = produce
	q.enqueueRegistered = true
}

func (q *fakeQueue) UnregisterEnqueue() {
	q.produce = nil
	q.enqueueRegistered = false
}

func (q *fakeQueue) RegisterDequeue(h *handler.Handler, ready func()) {
	q.ready = ready
	q.dequeueRegistered = true
}

func (q *fakeQueue) UnregisterDequeue() {
	q.ready = nil
	q.dequeueRegistered = false
}

func (q *fakeQueue) TryDequeue() []byte {
	if len(q.inbound) == 0 {
		return nil
	}
	pkt := q.inbound[0]
	q.inbound = q.inbound[1:]
	return pkt
}

// drain pulls outbound payloads until the producer unregisters.
func (q *fakeQueue) drain(lower *handler.Handler) {
	lower.CallOn(func() {
		for q.enqueueRegistered {
			q.sent = append(q.sent, q.produce().Serialize())
		}
	})
}

// deliverInbound queues a packet and fires the dequeue callback the way
// the lower layer would.
func (q *fakeQueue) deliverInbound(lower *handler.Handler, pkt []byte) {
	lower.CallOn(func() {
		q.inbound = append(q.inbound, pkt)
		if q.ready != nil {
			q.ready()
		}
	})
}

type fakeClassicConn struct {
	handle           uint16
	address          bthost.Address
	locallyInitiated bool
	queue            *fakeQueue

	events ClassicConnectionEvents

	versionReads    int
	featureReads    int
	extendedReads   []uint8
	disconnects     []bthost.ErrorCode
	holdModes       int
	sniffModes      int
	exitSniffModes  int
	sniffSubratings int
	encryptionCalls []bool
	flushes         int
}

func newFakeClassicConn(handle uint16, address bthost.Address) *fakeClassicConn {
	return &fakeClassicConn{
		handle:           handle,
		address:          address,
		locallyInitiated: true,
		queue:            &fakeQueue{},
	}
}

func (c *fakeClassicConn) Handle() uint16                { return c.handle }
func (c *fakeClassicConn) Address() bthost.Address       { return c.address }
func (c *fakeClassicConn) LocallyInitiated() bool        { return c.locallyInitiated }
func (c *fakeClassicConn) Queue() DataQueue              { return c.queue }
func (c *fakeClassicConn) ReadRemoteVersionInformation() { c.versionReads++ }
func (c *fakeClassicConn) ReadRemoteSupportedFeatures()  { c.featureReads++ }
func (c *fakeClassicConn) Flush()                        { c.flushes++ }

func (c *fakeClassicConn) RegisterCallbacks(cb ClassicConnectionEvents, h *handler.Handler) {
	c.events = cb
}

func (c *fakeClassicConn) ReadRemoteExtendedFeatures(pageNumber uint8) {
	c.extendedReads = append(c.extendedReads, pageNumber)
}

func (c *fakeClassicConn) Disconnect(reason bthost.ErrorCode) {
	c.disconnects = append(c.disconnects, reason)
}

func (c *fakeClassicConn) HoldMode(maxInterval, minInterval uint16) bool {
	c.holdModes++
	return true
}

func (c *fakeClassicConn) SniffMode(maxInterval, minInterval, attempt, timeout uint16) bool {
	c.sniffModes++
	return true
}

func (c *fakeClassicConn) ExitSniffMode() bool {
	c.exitSniffModes++
	return true
}

func (c *fakeClassicConn) SniffSubrating(maximumLatency, minimumRemoteTimeout, minimumLocalTimeout uint16) bool {
	c.sniffSubratings++
	return true
}

func (c *fakeClassicConn) SetConnectionEncryption(enable bool) bool {
	c.encryptionCalls = append(c.encryptionCalls, enable)
	return true
}

type fakeLeConn struct {
	handle             uint16
	remote             bthost.AddressWithType
	local              bthost.AddressWithType
	localOta           bthost.AddressWithType
	peer               bthost.AddressWithType
	peerOta            bthost.AddressWithType
	role               bthost.Role
	interval           uint16
	latency            uint16
	supervisionTimeout uint16
	localRPA           bthost.Address
	peerRPA            bthost.Address
	inAcceptList       bool
	locallyInitiated   bool
	peripheralData     *PeripheralData
	queue              *fakeQueue

	events LeConnectionEvents

	versionReads int
	disconnects  []bthost.ErrorCode
	connUpdates  int
	subrateReqs  int
}

func newFakeLeConn(handle uint16, peer bthost.AddressWithType) *fakeLeConn {
	return &fakeLeConn{
		handle:             handle,
		remote:             peer,
		peer:               peer,
		role:               bthost.RoleCentral,
		interval:           24,
		latency:            0,
		supervisionTimeout: 400,
		inAcceptList:       true,
		locallyInitiated:   true,
		queue:              &fakeQueue{},
	}
}

func (c *fakeLeConn) Handle() uint16                                { return c.handle }
func (c *fakeLeConn) RemoteAddress() bthost.AddressWithType         { return c.remote }
func (c *fakeLeConn) LocalAddress() bthost.AddressWithType          { return c.local }
func (c *fakeLeConn) LocalOtaAddress() bthost.AddressWithType       { return c.localOta }
func (c *fakeLeConn) PeerAddress() bthost.AddressWithType           { return c.peer }
func (c *fakeLeConn) PeerOtaAddress() bthost.AddressWithType        { return c.peerOta }
func (c *fakeLeConn) Role() bthost.Role                             { return c.role }
func (c *fakeLeConn) Interval() uint16                              { return c.interval }
func (c *fakeLeConn) Latency() uint16                               { return c.latency }
func (c *fakeLeConn) SupervisionTimeout() uint16                    { return c.supervisionTimeout }
func (c *fakeLeConn) LocalResolvablePrivateAddress() bthost.Address { return c.localRPA }
func (c *fakeLeConn) PeerResolvablePrivateAddress() bthost.Address  { return c.peerRPA }
func (c *fakeLeConn) IsInFilterAcceptList() bool                    { return c.inAcceptList }
func (c *fakeLeConn) LocallyInitiated() bool                        { return c.locallyInitiated }
func (c *fakeLeConn) Queue() DataQueue                              { return c.queue }
func (c *fakeLeConn) ReadRemoteVersionInformation()                 { c.versionReads++ }

func (c *fakeLeConn) PeripheralData() (PeripheralData, bool) {
	if c.peripheralData == nil {
		return PeripheralData{}, false
	}
	return *c.peripheralData, true
}

func (c *fakeLeConn) RegisterCallbacks(cb LeConnectionEvents, h *handler.Handler) {
	c.events = cb
}

func (c *fakeLeConn) Disconnect(reason bthost.ErrorCode) {
	c.disconnects = append(c.disconnects, reason)
}

func (c *fakeLeConn) LeConnectionUpdate(connIntervalMin, connIntervalMax, connLatency, connTimeout, minCeLen, maxCeLen uint16) {
	c.connUpdates++
}

func (c *fakeLeConn) LeSubrateRequest(subrateMin, subrateMax, maxLatency, contNum, supTout uint16) {
	c.subrateReqs++
}

type suspendNotice struct {
	handle uint16
	reason bthost.ErrorCode
}

// fakeConnectionManager records every lower-layer command. Calls arrive
// on the lower handler; tests read the records under the mutex after a
// flush.
type fakeConnectionManager struct {
	mu sync.Mutex

	lower *handler.Handler
	cb    ConnectionCallbacks
	leCb  LeConnectionCallbacks

	creditsHandler *handler.Handler
	creditsCb      func(handle uint16, credits uint16)

	createConnections []bthost.Address
	cancelConnects    []bthost.Address
	createLe          []bthost.AddressWithType
	cancelLe          []bthost.AddressWithType
	removeBackground  []bthost.AddressWithType

	resolvingAdds    []bthost.AddressWithType
	resolvingRemoves []bthost.AddressWithType
	clearResolving   int
	clearAcceptList  int

	defaultSubrates int
	suspendStates   []bool

	classicSuspendNotices []suspendNotice
	leSuspendNotices      []suspendNotice
}

func (f *fakeConnectionManager) RegisterCallbacks(cb ConnectionCallbacks, h *handler.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
	f.lower = h
}

func (f *fakeConnectionManager) RegisterLeCallbacks(cb LeConnectionCallbacks, h *handler.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leCb = cb
	f.lower = h
}

func (f *fakeConnectionManager) UnregisterCallbacks(done chan<- struct{}) {
	close(done)
}

func (f *fakeConnectionManager) UnregisterLeCallbacks(done chan<- struct{}) {
	close(done)
}

func (f *fakeConnectionManager) RegisterCompletedMonitorAclPacketsCallback(h *handler.Handler, cb func(uint16, uint16)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creditsHandler = h
	f.creditsCb = cb
}

func (f *fakeConnectionManager) UnregisterCompletedMonitorAclPacketsCallback() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creditsCb = nil
}

func (f *fakeConnectionManager) CreateConnection(address bthost.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createConnections = append(f.createConnections, address)
}

func (f *fakeConnectionManager) CancelConnect(address bthost.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelConnects = append(f.cancelConnects, address)
}

func (f *fakeConnectionManager) CreateLeConnection(a bthost.AddressWithType, isDirect bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createLe = append(f.createLe, a)
}

func (f *fakeConnectionManager) CancelLeConnect(a bthost.AddressWithType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelLe = append(f.cancelLe, a)
}

func (f *fakeConnectionManager) RemoveFromBackgroundList(a bthost.AddressWithType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeBackground = append(f.removeBackground, a)
}

func (f *fakeConnectionManager) AddDeviceToResolvingList(a bthost.AddressWithType, peerIRK, localIRK [16]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolvingAdds = append(f.resolvingAdds, a)
}

func (f *fakeConnectionManager) RemoveDeviceFromResolvingList(a bthost.AddressWithType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolvingRemoves = append(f.resolvingRemoves, a)
}

func (f *fakeConnectionManager) ClearResolvingList() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearResolving++
}

func (f *fakeConnectionManager) ClearFilterAcceptList() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearAcceptList++
}

func (f *fakeConnectionManager) LeSetDefaultSubrate(subrateMin, subrateMax, maxLatency, contNum, supTout uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultSubrates++
}

func (f *fakeConnectionManager) SetSystemSuspendState(suspended bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suspendStates = append(f.suspendStates, suspended)
}

func (f *fakeConnectionManager) OnClassicSuspendInitiatedDisconnect(handle uint16, reason bthost.ErrorCode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classicSuspendNotices = append(f.classicSuspendNotices, suspendNotice{handle, reason})
}

func (f *fakeConnectionManager) OnLeSuspendInitiatedDisconnect(handle uint16, reason bthost.ErrorCode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leSuspendNotices = append(f.leSuspendNotices, suspendNotice{handle, reason})
}

// Event injection, posted the way the real lower layer delivers events.

func (f *fakeConnectionManager) deliverClassicConnect(conn ClassicConnection) {
	f.lower.Post(func() { f.cb.OnConnectSuccess(conn) })
}

func (f *fakeConnectionManager) deliverClassicConnectFail(address bthost.Address, reason bthost.ErrorCode, locallyInitiated bool) {
	f.lower.Post(func() { f.cb.OnConnectFail(address, reason, locallyInitiated) })
}

func (f *fakeConnectionManager) deliverConnectRequest(address bthost.Address, cod bthost.ClassOfDevice) {
	f.lower.Post(func() { f.cb.OnConnectRequest(address, cod) })
}

func (f *fakeConnectionManager) deliverLeConnect(a bthost.AddressWithType, conn LeConnection) {
	f.lower.Post(func() { f.leCb.OnLeConnectSuccess(a, conn) })
}

func (f *fakeConnectionManager) deliverLeConnectFail(a bthost.AddressWithType, reason bthost.ErrorCode) {
	f.lower.Post(func() { f.leCb.OnLeConnectFail(a, reason) })
}

func (f *fakeConnectionManager) deliverCredits(handle uint16, credits uint16) {
	f.lower.Post(func() { f.creditsCb(handle, credits) })
}

// upperRecorder records user-visible callbacks as formatted strings. All
// writes happen on the upper executor; tests read after an upper flush.
type upperRecorder struct {
	events []string
	dataUp [][]byte
}

func (r *upperRecorder) add(format string, args ...interface{}) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *upperRecorder) callbacks() Callbacks {
	return Callbacks{
		OnSendDataUpwards: func(packet []byte) {
			r.dataUp = append(r.dataUp, packet)
		},
		OnPacketsCompleted: func(handle uint16, credits uint16) {
			r.add("packets_completed 0x%04x %d", handle, credits)
		},
		Classic: ClassicCallbacks{
			OnConnected: func(address bthost.Address, handle uint16, encrypted bool, locallyInitiated bool) {
				r.add("classic_connected %s 0x%04x %t %t", address, handle, encrypted, locallyInitiated)
			},
			OnConnectRequest: func(address bthost.Address, cod bthost.ClassOfDevice) {
				r.add("classic_connect_request %s %s", address, cod)
			},
			OnFailed: func(address bthost.Address, reason bthost.ErrorCode, locallyInitiated bool) {
				r.add("classic_failed %s %s %t", address, reason, locallyInitiated)
			},
			OnDisconnected: func(status bthost.ErrorCode, handle uint16, reason bthost.ErrorCode) {
				r.add("classic_disconnected %s 0x%04x %s", status, handle, reason)
			},
			OnReadRemoteSupportedFeaturesComplete: func(handle uint16, features uint64) {
				r.add("classic_features 0x%04x 0x%016x", handle, features)
			},
			OnReadRemoteExtendedFeaturesComplete: func(handle uint16, pageNumber, maxPageNumber uint8, features uint64) {
				r.add("classic_ext_features 0x%04x page:%d max:%d 0x%016x", handle, pageNumber, maxPageNumber, features)
			},
			OnRoleChange: func(status bthost.ErrorCode, address bthost.Address, newRole bthost.Role) {
				r.add("classic_role_change %s %s %s", status, address, newRole)
			},
			OnEncryptionChange: func(enabled bool) {
				r.add("classic_encryption_change %t", enabled)
			},
			OnModeChange: func(status bthost.ErrorCode, handle uint16, mode bthost.Mode, interval uint16) {
				r.add("classic_mode_change %s 0x%04x %s %d", status, handle, mode, interval)
			},
		},
		Le: LeCallbacks{
			OnConnected: func(address bthost.AddressWithType, handle uint16, role bthost.Role,
				connInterval, connLatency, connTimeout uint16,
				localRPA, peerRPA bthost.Address, peerAddressType bthost.AddressType,
				canReadDiscoverableCharacteristics bool) {
				r.add("le_connected %s 0x%04x %s %d %d %d %t",
					address, handle, role, connInterval, connLatency, connTimeout,
					canReadDiscoverableCharacteristics)
			},
			OnFailed: func(address bthost.AddressWithType, handle uint16, enhanced bool, status bthost.ErrorCode) {
				r.add("le_failed %s %s", address, status)
			},
			OnDisconnected: func(status bthost.ErrorCode, handle uint16, reason bthost.ErrorCode) {
				r.add("le_disconnected %s 0x%04x %s", status, handle, reason)
			},
			OnConnectionUpdate: func(status bthost.ErrorCode, handle uint16, connInterval, connLatency, supervisionTimeout uint16) {
				r.add("le_connection_update %s 0x%04x %d %d %d", status, handle, connInterval, connLatency, supervisionTimeout)
			},
			OnLeSubrateChange: func(handle uint16, subrateFactor, peripheralLatency, continuationNumber, supervisionTimeout uint16, status bthost.ErrorCode) {
				r.add("le_subrate_change 0x%04x %d", handle, subrateFactor)
			},
			OnPhyUpdate: func(status bthost.ErrorCode, handle uint16, txPhy, rxPhy uint8) {
				r.add("le_phy_update %s 0x%04x %d %d", status, handle, txPhy, rxPhy)
			},
		},
	}
}

func (r *upperRecorder) count(prefix string, upper *handler.Handler) int {
	n := 0
	upper.CallOn(func() {
		for _, e := range r.events {
			if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
				n++
			}
		}
	})
	return n
}

type harness struct {
	t     *testing.T
	upper *handler.Handler
	cm    *fakeConnectionManager
	rec   *upperRecorder
	m     *Manager
}

func newHarness(t *testing.T, maxAccept, maxResolving uint8) *harness {
	upper := handler.New("main")
	cm := &fakeConnectionManager{}
	rec := &upperRecorder{}

	m, err := NewManager(upper, cm, rec.callbacks(), maxAccept, maxResolving)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	h := &harness{t: t, upper: upper, cm: cm, rec: rec, m: m}
	t.Cleanup(func() {
		m.Close()
		upper.Close()
	})
	return h
}

// flush settles the lower handler, then the upper executor, so every
// event delivered so far has been observed.
func (h *harness) flush() {
	h.m.lower.CallOn(func() {})
	h.upper.CallOn(func() {})
}

// upperEvents snapshots the recorded callback strings.
func (h *harness) upperEvents() []string {
	var out []string
	h.upper.CallOn(func() {
		out = append(out, h.rec.events...)
	})
	return out
}
