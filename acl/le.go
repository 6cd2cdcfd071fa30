package acl

import (
	"time"

	"github.com/bluekit/bthost"
	"github.com/bluekit/bthost/handler"
)

// leLink is the per-handle state of an LE connection.
type leLink struct {
	link

	conn  LeConnection
	iface LeCallbacks

	onDisconnect func(handle uint16, reason bthost.ErrorCode)
}

func newLeLink(conn LeConnection, iface LeCallbacks,
	lower, upper *handler.Handler, sendDataUpwards func([]byte),
	onDisconnect func(uint16, bthost.ErrorCode),
	creationTime time.Time) *leLink {

	l := &leLink{
		link: link{
			handle:          conn.Handle(),
			creationTime:    creationTime,
			lower:           lower,
			upper:           upper,
			queue:           conn.Queue(),
			sendDataUpwards: sendDataUpwards,
		},
		conn:         conn,
		iface:        iface,
		onDisconnect: onDisconnect,
	}
	l.queue.RegisterDequeue(lower, l.dataReady)
	return l
}

func (l *leLink) registerCallbacks() {
	l.conn.RegisterCallbacks(l, l.lower)
}

func (l *leLink) remoteAddressWithType() bthost.AddressWithType {
	return l.conn.RemoteAddress()
}

func (l *leLink) localAddressWithType() bthost.AddressWithType {
	return l.conn.LocalAddress()
}

func (l *leLink) localOtaAddressWithType() bthost.AddressWithType {
	return l.conn.LocalOtaAddress()
}

func (l *leLink) peerAddressWithType() bthost.AddressWithType {
	return l.conn.PeerAddress()
}

func (l *leLink) peerOtaAddressWithType() bthost.AddressWithType {
	return l.conn.PeerOtaAddress()
}

func (l *leLink) locallyInitiated() bool {
	return l.conn.LocallyInitiated()
}

func (l *leLink) isInFilterAcceptList() bool {
	return l.conn.IsInFilterAcceptList()
}

// advertisingSetConnectedTo reports the advertising set that accepted the
// connection; ok is false unless the local role is peripheral and the set
// id is known.
func (l *leLink) advertisingSetConnectedTo() (uint8, bool) {
	data, ok := l.conn.PeripheralData()
	if !ok || !data.HasAdvertisingSetID {
		return 0, false
	}
	return data.AdvertisingSetID, true
}

// canReadDiscoverableCharacteristics is role specific: when we are the
// central the peer can always see discoverable characteristics.
func (l *leLink) canReadDiscoverableCharacteristics() bool {
	data, ok := l.conn.PeripheralData()
	if !ok {
		return true
	}
	return data.ConnectedToDiscoverable
}

func (l *leLink) initiateDisconnect(reason bthost.ErrorCode) {
	l.conn.Disconnect(reason)
}

func (l *leLink) updateConnectionParameters(connIntervalMin, connIntervalMax,
	connLatency, connTimeout, minCeLen, maxCeLen uint16) {
	l.conn.LeConnectionUpdate(connIntervalMin, connIntervalMax, connLatency,
		connTimeout, minCeLen, maxCeLen)
}

func (l *leLink) leSubrateRequest(subrateMin, subrateMax, maxLatency, contNum, supTout uint16) {
	l.conn.LeSubrateRequest(subrateMin, subrateMax, maxLatency, contNum, supTout)
}

// LeConnectionEvents

func (l *leLink) OnConnectionUpdate(status bthost.ErrorCode,
	connectionInterval, connectionLatency, supervisionTimeout uint16) {
	cb := l.iface.OnConnectionUpdate
	handle := l.handle
	tryPost(l.upper, cb != nil, func() {
		cb(status, handle, connectionInterval, connectionLatency, supervisionTimeout)
	})
}

func (l *leLink) OnDataLengthChange(maxTxOctets, maxTxTime, maxRxOctets, maxRxTime uint16) {
	cb := l.iface.OnDataLengthChange
	handle := l.handle
	tryPost(l.upper, cb != nil, func() {
		cb(handle, maxTxOctets, maxTxTime, maxRxOctets, maxRxTime)
	})
}

func (l *leLink) OnLeSubrateChange(status bthost.ErrorCode,
	subrateFactor, peripheralLatency, continuationNumber, supervisionTimeout uint16) {
	cb := l.iface.OnLeSubrateChange
	handle := l.handle
	tryPost(l.upper, cb != nil, func() {
		cb(handle, subrateFactor, peripheralLatency, continuationNumber,
			supervisionTimeout, status)
	})
}

func (l *leLink) OnReadRemoteVersionInformationComplete(status bthost.ErrorCode,
	lmpVersion uint8, manufacturerName, subVersion uint16) {
	cb := l.iface.OnReadRemoteVersionInformationComplete
	handle := l.handle
	tryPost(l.upper, cb != nil, func() {
		cb(status, handle, lmpVersion, manufacturerName, subVersion)
	})
}

func (l *leLink) OnPhyUpdate(status bthost.ErrorCode, txPhy, rxPhy uint8) {
	cb := l.iface.OnPhyUpdate
	handle := l.handle
	tryPost(l.upper, cb != nil, func() { cb(status, handle, txPhy, rxPhy) })
}

func (l *leLink) OnDisconnection(reason bthost.ErrorCode) {
	l.disconnect()
	l.onDisconnect(l.handle, reason)
}
