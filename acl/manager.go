package acl

import (
	"fmt"
	"time"

	"github.com/bluekit/bthost"
	"github.com/bluekit/bthost/countmap"
	"github.com/bluekit/bthost/handler"
)

// Manager tracks every live ACL link, mediates per-link data flow between
// the upper stack and the lower controller manager, owns the shadow
// filter-accept and address-resolution lists, and enforces link lifecycle
// discipline.
//
// All link state is mutated only on the Manager's own lower handler;
// every user-visible callback is posted to the upper serial executor
// given at construction.
type Manager struct {
	lower *handler.Handler
	upper *handler.Handler

	cm  ConnectionManager
	cbs Callbacks

	classicLinks map[uint16]*classicLink
	leLinks      map[uint16]*leLink

	classicDisconnectReasons *countmap.CountMap
	leDisconnectReasons      *countmap.CountMap

	history       *connectionHistory
	transitions   *transitionLog
	acceptList    *shadowAcceptList
	resolvingList *shadowResolvingList
}

// NewManager wires the ACL manager against the lower connection manager.
// upper is the serial executor user-visible callbacks are delivered on;
// the list sizes are the controller-reported maxima.
func NewManager(upper *handler.Handler, cm ConnectionManager, callbacks Callbacks,
	maxAcceptListSize, maxAddressResolutionSize uint8) (*Manager, error) {
	if upper == nil {
		return nil, fmt.Errorf("upper serial executor required")
	}
	if cm == nil {
		return nil, fmt.Errorf("connection manager required")
	}
	if err := validateCallbacks(&callbacks); err != nil {
		return nil, err
	}

	m := &Manager{
		lower:                    handler.New("acl"),
		upper:                    upper,
		cm:                       cm,
		cbs:                      callbacks,
		classicLinks:             make(map[uint16]*classicLink),
		leLinks:                  make(map[uint16]*leLink),
		classicDisconnectReasons: countmap.New(),
		leDisconnectReasons:      countmap.New(),
		history:                  newConnectionHistory(connectionHistorySize),
		transitions:              newTransitionLog(transitionLogSize),
		acceptList:               newShadowAcceptList(maxAcceptListSize),
		resolvingList:            newShadowResolvingList(maxAddressResolutionSize),
	}

	cm.RegisterCallbacks(m, m.lower)
	cm.RegisterLeCallbacks(m, m.lower)
	cm.RegisterCompletedMonitorAclPacketsCallback(m.lower, m.onIncomingAclCredits)
	return m, nil
}

func (m *Manager) record(address, event, detail string) {
	m.transitions.record(address, event, detail)
}

func (m *Manager) isClassic(handle uint16) bool {
	_, ok := m.classicLinks[handle]
	return ok
}

func (m *Manager) isLe(handle uint16) bool {
	_, ok := m.leLinks[handle]
	return ok
}

// Event router: link establishment callbacks from the lower layer. These
// run on the lower handler.

func (m *Manager) OnConnectSuccess(conn ClassicConnection) {
	handle := conn.Handle()
	locallyInitiated := conn.LocallyInitiated()
	remoteAddress := conn.Address()

	cl := newClassicLink(conn, m.cbs.Classic, m.lower, m.upper,
		m.cbs.OnSendDataUpwards, m.onClassicLinkDisconnected, m.record, time.Now())
	m.classicLinks[handle] = cl
	cl.registerCallbacks()
	cl.readRemoteControllerInformation()

	cb := m.cbs.Classic.OnConnected
	tryPost(m.upper, cb != nil, func() {
		cb(remoteAddress, handle, false, locallyInitiated)
	})
	initiator := "remote"
	if locallyInitiated {
		initiator = "local"
	}
	logger().Debugf("connection successful classic remote:%s handle:0x%04x initiator:%s",
		remoteAddress, handle, initiator)
	m.record(remoteAddress.String(), "Connection successful", "classic "+initiator+" initiated")
}

func (m *Manager) OnConnectRequest(address bthost.Address, cod bthost.ClassOfDevice) {
	cb := m.cbs.Classic.OnConnectRequest
	tryPost(m.upper, cb != nil, func() { cb(address, cod) })
	logger().Debugf("received connect request remote:%s cod:%s", address, cod)
	m.record(address.String(), "Connection request", "cod:"+cod.String())
}

func (m *Manager) OnConnectFail(address bthost.Address, reason bthost.ErrorCode, locallyInitiated bool) {
	cb := m.cbs.Classic.OnFailed
	tryPost(m.upper, cb != nil, func() { cb(address, reason, locallyInitiated) })
	logger().Warnf("connection failed classic remote:%s reason:%s", address, reason)
	m.record(address.String(), "Connection failed", "classic reason:"+reason.String())
}

// onClassicLinkDisconnected runs on the lower handler once the controller
// reports the link down. The history entry is pushed before the user
// callback is posted.
func (m *Manager) onClassicLinkDisconnected(handle uint16, reason bthost.ErrorCode) {
	cl, ok := m.classicLinks[handle]
	if !ok {
		logger().Errorf("disconnect for unknown classic link handle:0x%04x", handle)
		return
	}
	remoteAddress := cl.remoteAddress()
	creationTime := cl.getCreationTime()
	locallyInitiated := cl.locallyInitiated()
	teardownTime := time.Now()

	delete(m.classicLinks, handle)
	m.history.push(connectionDescriptor{
		remoteAddress:    remoteAddress.String(),
		creationTime:     creationTime,
		teardownTime:     teardownTime,
		handle:           handle,
		locallyInitiated: locallyInitiated,
		disconnectReason: reason,
	})

	cb := m.cbs.Classic.OnDisconnected
	tryPost(m.upper, cb != nil, func() { cb(bthost.Success, handle, reason) })
	logger().Debugf("disconnected classic link remote:%s handle:0x%04x reason:%s",
		remoteAddress, handle, reason)
	m.record(remoteAddress.String(), "Disconnected", "classic reason:"+reason.String())
}

func (m *Manager) OnLeConnectSuccess(addressWithType bthost.AddressWithType, conn LeConnection) {
	handle := conn.Handle()
	peerAddressWithType := conn.PeerAddress()
	connectionRole := conn.Role()
	locallyInitiated := conn.LocallyInitiated()

	connInterval := conn.Interval()
	connLatency := conn.Latency()
	connTimeout := conn.SupervisionTimeout()
	localRPA := conn.LocalResolvablePrivateAddress()
	peerRPA := conn.PeerResolvablePrivateAddress()
	peerAddressType := peerAddressWithType.Type

	ll := newLeLink(conn, m.cbs.Le, m.lower, m.upper,
		m.cbs.OnSendDataUpwards, m.onLeLinkDisconnected, time.Now())
	m.leLinks[handle] = ll
	ll.registerCallbacks()

	canReadDiscoverable := ll.canReadDiscoverableCharacteristics()

	// Once an le connection has successfully been established the device
	// address is removed from the controller accept list.
	if addressWithType.IsRPA() {
		logger().Debugf("connection address is rpa:%s identity_addr:%s",
			addressWithType, peerAddressWithType)
		m.acceptList.remove(peerAddressWithType)
	} else {
		logger().Debugf("connection address is not rpa addr:%s", addressWithType)
		m.acceptList.remove(addressWithType)
	}

	if !ll.isInFilterAcceptList() && connectionRole == bthost.RoleCentral {
		ll.initiateDisconnect(bthost.RemoteUserTerminatedConnection)
		logger().Info("disconnected ACL after connection canceled")
		m.record(addressWithType.String(), "Connection canceled", "Le")
		return
	}

	cb := m.cbs.Le.OnConnected
	tryPost(m.upper, cb != nil, func() {
		cb(addressWithType, handle, connectionRole, connInterval, connLatency,
			connTimeout, localRPA, peerRPA, peerAddressType, canReadDiscoverable)
	})
	initiator := "remote"
	if locallyInitiated {
		initiator = "local"
	}
	logger().Debugf("connection successful le remote:%s handle:0x%04x initiator:%s",
		addressWithType, handle, initiator)
	m.record(addressWithType.String(), "Connection successful", "Le")
}

func (m *Manager) OnLeConnectFail(addressWithType bthost.AddressWithType, reason bthost.ErrorCode) {
	cb := m.cbs.Le.OnFailed
	tryPost(m.upper, cb != nil, func() {
		cb(addressWithType, 0, true, reason)
	})
	m.acceptList.remove(addressWithType)
	logger().Warnf("connection failed le remote:%s reason:%s", addressWithType, reason)
	m.record(addressWithType.String(), "Connection failed", "le reason:"+reason.String())
}

func (m *Manager) onLeLinkDisconnected(handle uint16, reason bthost.ErrorCode) {
	ll, ok := m.leLinks[handle]
	if !ok {
		logger().Errorf("disconnect for unknown le link handle:0x%04x", handle)
		return
	}
	remoteAddressWithType := ll.remoteAddressWithType()
	creationTime := ll.getCreationTime()
	locallyInitiated := ll.locallyInitiated()
	teardownTime := time.Now()

	delete(m.leLinks, handle)
	m.history.push(connectionDescriptor{
		remoteAddress:    remoteAddressWithType.String(),
		creationTime:     creationTime,
		teardownTime:     teardownTime,
		handle:           handle,
		locallyInitiated: locallyInitiated,
		disconnectReason: reason,
	})

	cb := m.cbs.Le.OnDisconnected
	tryPost(m.upper, cb != nil, func() { cb(bthost.Success, handle, reason) })
	logger().Debugf("disconnected le link remote:%s handle:0x%04x reason:%s",
		remoteAddressWithType, handle, reason)
	m.record(remoteAddressWithType.String(), "Disconnected", "Le reason:"+reason.String())
}

func (m *Manager) onIncomingAclCredits(handle uint16, credits uint16) {
	cb := m.cbs.OnPacketsCompleted
	tryPost(m.upper, cb != nil, func() { cb(handle, credits) })
}

// Command gateway: upper-facing operations. Each posts its work to the
// lower handler.

// WriteData routes an outbound payload to the link owning the handle.
func (m *Manager) WriteData(handle uint16, packet Builder) {
	m.lower.Post(func() { m.writeDataSync(handle, packet) })
}

func (m *Manager) writeDataSync(handle uint16, packet Builder) {
	switch {
	case m.isClassic(handle):
		if err := m.classicLinks[handle].enqueuePacket(packet); err != nil {
			logger().Errorf("write on classic handle:0x%04x: %v", handle, err)
		}
	case m.isLe(handle):
		if err := m.leLinks[handle].enqueuePacket(packet); err != nil {
			logger().Errorf("write on le handle:0x%04x: %v", handle, err)
		}
	default:
		logger().Error("unable to find destination to write data")
	}
}

// Flush discards pending outbound data on a classic link.
func (m *Manager) Flush(handle uint16) {
	m.lower.Post(func() {
		if m.isClassic(handle) {
			m.classicLinks[handle].flush()
			return
		}
		logger().Errorf("handle 0x%04x is not a classic connection", handle)
	})
}

func (m *Manager) CreateClassicConnection(address bthost.Address) {
	m.lower.Post(func() {
		m.cm.CreateConnection(address)
		logger().Debugf("connection initiated for classic to remote:%s", address)
		m.record(address.String(), "Initiated connection", "classic")
	})
}

func (m *Manager) CancelClassicConnection(address bthost.Address) {
	m.lower.Post(func() {
		m.cm.CancelConnect(address)
		logger().Debugf("connection cancelled for classic to remote:%s", address)
		m.record(address.String(), "Cancelled connection", "classic")
	})
}

// AcceptLeConnectionFrom adds the peer to the shadow accept list and asks
// the controller to connect. The returned promise resolves false when the
// accept list is full.
func (m *Manager) AcceptLeConnectionFrom(addressWithType bthost.AddressWithType, isDirect bool) <-chan bool {
	promise := make(chan bool, 1)
	m.lower.Post(func() { m.acceptLeConnectionFrom(addressWithType, isDirect, promise) })
	return promise
}

func (m *Manager) acceptLeConnectionFrom(addressWithType bthost.AddressWithType, isDirect bool, promise chan<- bool) {
	if m.acceptList.isFull() {
		logger().Error("acceptlist is full preventing new le connection")
		promise <- false
		return
	}
	m.acceptList.add(addressWithType)
	promise <- true
	m.cm.CreateLeConnection(addressWithType, isDirect)
	logger().Debugf("allow le connection from remote:%s", addressWithType)
	m.record(addressWithType.String(), "Allow connection from", "Le")
}

func (m *Manager) IgnoreLeConnectionFrom(addressWithType bthost.AddressWithType) {
	m.lower.Post(func() {
		m.acceptList.remove(addressWithType)
		m.cm.CancelLeConnect(addressWithType)
		logger().Debugf("ignore le connection from remote:%s", addressWithType)
		m.record(addressWithType.String(), "Ignore connection from", "Le")
	})
}

// DisconnectClassic initiates disconnect of a classic link; the comment
// feeds the disconnect-reason histogram.
func (m *Manager) DisconnectClassic(handle uint16, reason bthost.ErrorCode, comment string) {
	m.lower.Post(func() { m.disconnectClassic(handle, reason, comment) })
}

func (m *Manager) disconnectClassic(handle uint16, reason bthost.ErrorCode, comment string) {
	cl, ok := m.classicLinks[handle]
	if !ok {
		logger().Warnf("unable to disconnect unknown classic connection handle:0x%04x", handle)
		return
	}
	remoteAddress := cl.remoteAddress()
	cl.initiateDisconnect(reason)
	logger().Debugf("disconnection initiated classic remote:%s handle:0x%04x", remoteAddress, handle)
	m.record(remoteAddress.String(), "Disconnection initiated",
		"classic reason:"+reason.String()+" comment:"+comment)
	m.classicDisconnectReasons.Put(comment)
}

// DisconnectLe initiates disconnect of an LE link.
func (m *Manager) DisconnectLe(handle uint16, reason bthost.ErrorCode, comment string) {
	m.lower.Post(func() { m.disconnectLe(handle, reason, comment) })
}

func (m *Manager) disconnectLe(handle uint16, reason bthost.ErrorCode, comment string) {
	ll, ok := m.leLinks[handle]
	if !ok {
		logger().Warnf("unable to disconnect unknown le connection handle:0x%04x", handle)
		return
	}
	remoteAddressWithType := ll.remoteAddressWithType()
	m.cm.RemoveFromBackgroundList(remoteAddressWithType)
	ll.initiateDisconnect(reason)
	logger().Debugf("disconnection initiated le remote:%s handle:0x%04x", remoteAddressWithType, handle)
	m.record(remoteAddressWithType.String(), "Disconnection initiated",
		"Le reason:"+reason.String()+" comment:"+comment)
	m.leDisconnectReasons.Put(comment)
}

// UpdateConnectionParameters renegotiates LE connection parameters.
func (m *Manager) UpdateConnectionParameters(handle uint16,
	connIntervalMin, connIntervalMax, connLatency, connTimeout, minCeLen, maxCeLen uint16) {
	m.lower.Post(func() {
		ll, ok := m.leLinks[handle]
		if !ok {
			logger().Warnf("unknown le connection handle:0x%04x", handle)
			return
		}
		ll.updateConnectionParameters(connIntervalMin, connIntervalMax,
			connLatency, connTimeout, minCeLen, maxCeLen)
	})
}

// classicOnly runs fn against the classic link for handle, logging misuse
// for any other handle.
func (m *Manager) classicOnly(handle uint16, op string, fn func(*classicLink)) {
	cl, ok := m.classicLinks[handle]
	if !ok {
		logger().Errorf("%s: handle 0x%04x is not a classic connection", op, handle)
		return
	}
	fn(cl)
}

func (m *Manager) HoldMode(handle uint16, maxInterval, minInterval uint16) {
	m.lower.Post(func() {
		m.classicOnly(handle, "hold mode", func(cl *classicLink) {
			cl.holdMode(maxInterval, minInterval)
		})
	})
}

func (m *Manager) SniffMode(handle uint16, maxInterval, minInterval, attempt, timeout uint16) {
	m.lower.Post(func() {
		m.classicOnly(handle, "sniff mode", func(cl *classicLink) {
			cl.sniffMode(maxInterval, minInterval, attempt, timeout)
		})
	})
}

func (m *Manager) ExitSniffMode(handle uint16) {
	m.lower.Post(func() {
		m.classicOnly(handle, "exit sniff mode", func(cl *classicLink) {
			cl.exitSniffMode()
		})
	})
}

func (m *Manager) SniffSubrating(handle uint16, maximumLatency, minimumRemoteTimeout, minimumLocalTimeout uint16) {
	m.lower.Post(func() {
		m.classicOnly(handle, "sniff subrating", func(cl *classicLink) {
			cl.sniffSubrating(maximumLatency, minimumRemoteTimeout, minimumLocalTimeout)
		})
	})
}

func (m *Manager) SetConnectionEncryption(handle uint16, enable bool) {
	m.lower.Post(func() {
		m.classicOnly(handle, "set connection encryption", func(cl *classicLink) {
			cl.setConnectionEncryption(enable)
		})
	})
}

func (m *Manager) LeSetDefaultSubrate(subrateMin, subrateMax, maxLatency, contNum, supTout uint16) {
	m.lower.Post(func() {
		m.cm.LeSetDefaultSubrate(subrateMin, subrateMax, maxLatency, contNum, supTout)
	})
}

func (m *Manager) LeSubrateRequest(handle uint16, subrateMin, subrateMax, maxLatency, contNum, supTout uint16) {
	m.lower.Post(func() {
		ll, ok := m.leLinks[handle]
		if !ok {
			logger().Errorf("le subrate request: handle 0x%04x is not a le connection", handle)
			return
		}
		ll.leSubrateRequest(subrateMin, subrateMax, maxLatency, contNum, supTout)
	})
}

// AddToAddressResolution mirrors the entry into the shadow resolving list
// before the lower command is issued.
func (m *Manager) AddToAddressResolution(addressWithType bthost.AddressWithType, peerIRK, localIRK [16]byte) {
	m.lower.Post(func() {
		if m.resolvingList.isFull() {
			logger().Warnf("le address resolution list is full size:%d", m.resolvingList.size())
			return
		}
		m.resolvingList.add(addressWithType)
		m.cm.AddDeviceToResolvingList(addressWithType, peerIRK, localIRK)
	})
}

func (m *Manager) RemoveFromAddressResolution(addressWithType bthost.AddressWithType) {
	m.lower.Post(func() {
		if !m.resolvingList.remove(addressWithType) {
			logger().Warnf("unable to remove from le address resolution list device:%s", addressWithType)
		}
		m.cm.RemoveDeviceFromResolvingList(addressWithType)
	})
}

func (m *Manager) ClearAddressResolution() {
	m.lower.Post(func() {
		m.cm.ClearResolvingList()
		m.resolvingList.clear()
	})
}

func (m *Manager) ClearFilterAcceptList() {
	m.lower.Post(func() {
		count := m.acceptList.size()
		m.cm.ClearFilterAcceptList()
		m.acceptList.clear()
		logger().Debugf("cleared entire le address acceptlist count:%d", count)
	})
}

func (m *Manager) SetSystemSuspendState(suspended bool) {
	m.lower.Post(func() {
		m.cm.SetSystemSuspendState(suspended)
	})
}

// GetConnectionLocalAddress returns the local identity address of an LE
// link, or the OTA address when otaAddress is set.
func (m *Manager) GetConnectionLocalAddress(handle uint16, otaAddress bool) bthost.AddressWithType {
	var out bthost.AddressWithType
	m.lower.CallOn(func() {
		ll, ok := m.leLinks[handle]
		if !ok {
			logger().Warn("address not found!")
			return
		}
		if otaAddress {
			out = ll.localOtaAddressWithType()
			return
		}
		out = ll.localAddressWithType()
	})
	return out
}

// GetConnectionPeerAddress returns the peer identity address of an LE
// link, or the OTA address when otaAddress is set.
func (m *Manager) GetConnectionPeerAddress(handle uint16, otaAddress bool) bthost.AddressWithType {
	var out bthost.AddressWithType
	m.lower.CallOn(func() {
		ll, ok := m.leLinks[handle]
		if !ok {
			logger().Warn("address not found!")
			return
		}
		if otaAddress {
			out = ll.peerOtaAddressWithType()
			return
		}
		out = ll.peerAddressWithType()
	})
	return out
}

// GetAdvertisingSetConnectedTo reports which advertising set accepted the
// connection to the given remote, when the local role is peripheral.
func (m *Manager) GetAdvertisingSetConnectedTo(remote bthost.Address) (uint8, bool) {
	var setID uint8
	var ok bool
	m.lower.CallOn(func() {
		for _, ll := range m.leLinks {
			if ll.remoteAddressWithType().Address == remote {
				setID, ok = ll.advertisingSetConnectedTo()
				return
			}
		}
		logger().Warn("address not found!")
	})
	return setID, ok
}

// CheckForOrphanedAclConnections reports whether any links are still
// live, logging each.
func (m *Manager) CheckForOrphanedAclConnections() bool {
	orphaned := false
	m.lower.CallOn(func() {
		orphaned = m.checkForOrphans()
	})
	return orphaned
}

func (m *Manager) checkForOrphans() bool {
	orphaned := false
	if len(m.classicLinks) > 0 {
		logger().Error("about to destroy classic active ACL")
		for _, cl := range m.classicLinks {
			logger().Errorf("orphaned classic ACL handle:0x%04x bd_addr:%s created:%s",
				cl.getHandle(), cl.remoteAddress(),
				cl.getCreationTime().Format(descriptorTimeFormat))
		}
		orphaned = true
	}
	if len(m.leLinks) > 0 {
		logger().Error("about to destroy le active ACL")
		for _, ll := range m.leLinks {
			logger().Errorf("orphaned le ACL handle:0x%04x bd_addr:%s created:%s",
				ll.getHandle(), ll.remoteAddressWithType(),
				ll.getCreationTime().Format(descriptorTimeFormat))
		}
		orphaned = true
	}
	return orphaned
}

// DisconnectAllForSuspend drives the suspend barrier: every link is
// disconnected with REMOTE_POWER_OFF and the lower manager is notified
// synchronously for each handle still present, because the stack must
// update its view before the link-layer event arrives (the controller
// event for the handle will be masked). Blocks until both transports
// have drained.
func (m *Manager) DisconnectAllForSuspend() {
	if !m.CheckForOrphanedAclConnections() {
		return
	}
	m.lower.CallOn(m.disconnectClassicConnections)
	m.lower.CallOn(m.disconnectLeConnections)
	logger().Warn("disconnected open ACL connections")
}

func (m *Manager) disconnectClassicConnections() {
	logger().Info("disconnect acl classic connections")
	disconnectHandles := make([]uint16, 0, len(m.classicLinks))
	for handle := range m.classicLinks {
		m.disconnectClassic(handle, bthost.RemotePowerOff, "Suspend disconnect")
		disconnectHandles = append(disconnectHandles, handle)
	}

	// The second pass exists because notifying the lower manager may
	// remove the handle from the connection map.
	for _, handle := range disconnectHandles {
		if _, ok := m.classicLinks[handle]; ok {
			m.cm.OnClassicSuspendInitiatedDisconnect(handle, bthost.ConnectionTerminatedByLocalHost)
		}
	}
}

func (m *Manager) disconnectLeConnections() {
	logger().Info("disconnect acl le connections")
	disconnectHandles := make([]uint16, 0, len(m.leLinks))
	for handle := range m.leLinks {
		m.disconnectLe(handle, bthost.RemotePowerOff, "Suspend disconnect")
		disconnectHandles = append(disconnectHandles, handle)
	}

	for _, handle := range disconnectHandles {
		if _, ok := m.leLinks[handle]; ok {
			m.cm.OnLeSuspendInitiatedDisconnect(handle, bthost.ConnectionTerminatedByLocalHost)
		}
	}
}

// Shutdown forces every link down without controller round trips. Blocks
// until both maps are clear.
func (m *Manager) Shutdown() {
	if !m.CheckForOrphanedAclConnections() {
		logger().Info("all ACL connections have been previously closed")
		return
	}
	m.lower.CallOn(func() {
		logger().Info("shutdown acl classic connections")
		for _, cl := range m.classicLinks {
			cl.shutdown()
		}
		m.classicLinks = make(map[uint16]*classicLink)
	})
	m.lower.CallOn(func() {
		logger().Info("shutdown acl le connections")
		for _, ll := range m.leLinks {
			ll.shutdown()
		}
		m.leLinks = make(map[uint16]*leLink)
	})
	logger().Warn("flushed open ACL connections")
}

// FinalShutdown unregisters from the lower layer, waits for both
// unregisters to complete, and force-closes anything left. Links alive at
// this point are a protocol error; the history is dumped for them.
func (m *Manager) FinalShutdown() {
	done := make(chan struct{})
	m.cm.UnregisterCallbacks(done)
	<-done
	logger().Debug("unregistered classic callbacks from acl connection manager")

	done = make(chan struct{})
	m.cm.UnregisterLeCallbacks(done)
	<-done
	logger().Debug("unregistered le callbacks from acl connection manager")

	m.cm.UnregisterCompletedMonitorAclPacketsCallback()

	m.lower.CallOn(func() {
		if m.checkForOrphans() {
			for _, line := range m.history.strings() {
				logger().Error(line)
			}
		}
		for _, cl := range m.classicLinks {
			cl.shutdown()
		}
		m.classicLinks = make(map[uint16]*classicLink)
		for _, ll := range m.leLinks {
			ll.shutdown()
		}
		m.leLinks = make(map[uint16]*leLink)
	})
	logger().Info("unregistered and cleared any orphaned ACL connections")
}

// Close stops the lower handler. Call after FinalShutdown.
func (m *Manager) Close() {
	m.lower.Close()
}
