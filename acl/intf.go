package acl

import (
	"github.com/bluekit/bthost"
	"github.com/bluekit/bthost/handler"
)

// Builder produces the bytes of an outbound ACL payload when the lower
// queue is ready to consume it.
type Builder interface {
	Serialize() []byte
}

type rawBuilder []byte

func (b rawBuilder) Serialize() []byte { return b }

// RawPacket wraps a payload in a Builder.
func RawPacket(b []byte) Builder { return rawBuilder(b) }

// DataQueue is the per-connection data path owned by the lower layer.
// The enqueue side pulls outbound payloads from the registered producer;
// the dequeue side signals inbound packet availability.
type DataQueue interface {
	RegisterEnqueue(h *handler.Handler, produce func() Builder)
	UnregisterEnqueue()
	RegisterDequeue(h *handler.Handler, ready func())
	UnregisterDequeue()

	// TryDequeue pops one inbound packet, nil when none is pending.
	TryDequeue() []byte
}

// ClassicConnection is the lower layer's handle on an established BR/EDR
// link.
type ClassicConnection interface {
	Handle() uint16
	Address() bthost.Address
	LocallyInitiated() bool
	Queue() DataQueue

	RegisterCallbacks(cb ClassicConnectionEvents, h *handler.Handler)

	ReadRemoteVersionInformation()
	ReadRemoteSupportedFeatures()
	ReadRemoteExtendedFeatures(pageNumber uint8)

	Disconnect(reason bthost.ErrorCode)
	HoldMode(maxInterval, minInterval uint16) bool
	SniffMode(maxInterval, minInterval, attempt, timeout uint16) bool
	ExitSniffMode() bool
	SniffSubrating(maximumLatency, minimumRemoteTimeout, minimumLocalTimeout uint16) bool
	SetConnectionEncryption(enable bool) bool
	Flush()
}

// ClassicConnectionEvents is implemented by the classic link to receive
// controller events for its handle on the lower handler.
type ClassicConnectionEvents interface {
	OnConnectionPacketTypeChanged(packetType uint16)
	OnAuthenticationComplete(status bthost.ErrorCode)
	OnEncryptionChange(enabled bthost.EncryptionStatus)
	OnChangeConnectionLinkKeyComplete()
	OnModeChange(status bthost.ErrorCode, mode bthost.Mode, interval uint16)
	OnSniffSubrating(status bthost.ErrorCode, maximumTransmitLatency, maximumReceiveLatency, minimumRemoteTimeout, minimumLocalTimeout uint16)
	OnRoleChange(status bthost.ErrorCode, newRole bthost.Role)
	OnReadRemoteVersionInformationComplete(status bthost.ErrorCode, lmpVersion uint8, manufacturerName, subVersion uint16)
	OnReadRemoteSupportedFeaturesComplete(features uint64)
	OnReadRemoteExtendedFeaturesComplete(pageNumber, maxPageNumber uint8, features uint64)
	OnDisconnection(reason bthost.ErrorCode)
}

// PeripheralData is present on an LE connection when the local role is
// peripheral and links the connection back to the advertising set that
// accepted it.
type PeripheralData struct {
	AdvertisingSetID        uint8
	HasAdvertisingSetID     bool
	ConnectedToDiscoverable bool
}

// LeConnection is the lower layer's handle on an established LE link.
type LeConnection interface {
	Handle() uint16
	RemoteAddress() bthost.AddressWithType
	LocalAddress() bthost.AddressWithType
	LocalOtaAddress() bthost.AddressWithType
	PeerAddress() bthost.AddressWithType
	PeerOtaAddress() bthost.AddressWithType
	Role() bthost.Role
	Interval() uint16
	Latency() uint16
	SupervisionTimeout() uint16
	LocalResolvablePrivateAddress() bthost.Address
	PeerResolvablePrivateAddress() bthost.Address
	IsInFilterAcceptList() bool
	LocallyInitiated() bool

	// PeripheralData returns role-specific data; ok is false when the
	// local role is central.
	PeripheralData() (data PeripheralData, ok bool)

	Queue() DataQueue
	RegisterCallbacks(cb LeConnectionEvents, h *handler.Handler)

	ReadRemoteVersionInformation()

	Disconnect(reason bthost.ErrorCode)
	LeConnectionUpdate(connIntervalMin, connIntervalMax, connLatency, connTimeout, minCeLen, maxCeLen uint16)
	LeSubrateRequest(subrateMin, subrateMax, maxLatency, contNum, supTout uint16)
}

// LeConnectionEvents is implemented by the LE link to receive controller
// events for its handle on the lower handler.
type LeConnectionEvents interface {
	OnConnectionUpdate(status bthost.ErrorCode, connectionInterval, connectionLatency, supervisionTimeout uint16)
	OnDataLengthChange(maxTxOctets, maxTxTime, maxRxOctets, maxRxTime uint16)
	OnLeSubrateChange(status bthost.ErrorCode, subrateFactor, peripheralLatency, continuationNumber, supervisionTimeout uint16)
	OnReadRemoteVersionInformationComplete(status bthost.ErrorCode, lmpVersion uint8, manufacturerName, subVersion uint16)
	OnPhyUpdate(status bthost.ErrorCode, txPhy, rxPhy uint8)
	OnDisconnection(reason bthost.ErrorCode)
}

// ConnectionCallbacks receives classic link-establishment events from the
// lower layer on the handler passed at registration.
type ConnectionCallbacks interface {
	OnConnectSuccess(conn ClassicConnection)
	OnConnectRequest(address bthost.Address, cod bthost.ClassOfDevice)
	OnConnectFail(address bthost.Address, reason bthost.ErrorCode, locallyInitiated bool)
}

// LeConnectionCallbacks receives LE link-establishment events from the
// lower layer on the handler passed at registration.
type LeConnectionCallbacks interface {
	OnLeConnectSuccess(addressWithType bthost.AddressWithType, conn LeConnection)
	OnLeConnectFail(addressWithType bthost.AddressWithType, reason bthost.ErrorCode)
}

// ConnectionManager is the lower HCI controller manager the ACL manager
// drives. All calls are non-blocking; completions arrive as events on the
// registered handler.
type ConnectionManager interface {
	RegisterCallbacks(cb ConnectionCallbacks, h *handler.Handler)
	RegisterLeCallbacks(cb LeConnectionCallbacks, h *handler.Handler)

	// UnregisterCallbacks and UnregisterLeCallbacks close done once no
	// further events will be delivered.
	UnregisterCallbacks(done chan<- struct{})
	UnregisterLeCallbacks(done chan<- struct{})

	RegisterCompletedMonitorAclPacketsCallback(h *handler.Handler, cb func(handle uint16, credits uint16))
	UnregisterCompletedMonitorAclPacketsCallback()

	CreateConnection(address bthost.Address)
	CancelConnect(address bthost.Address)
	CreateLeConnection(addressWithType bthost.AddressWithType, isDirect bool)
	CancelLeConnect(addressWithType bthost.AddressWithType)
	RemoveFromBackgroundList(addressWithType bthost.AddressWithType)

	AddDeviceToResolvingList(addressWithType bthost.AddressWithType, peerIRK, localIRK [16]byte)
	RemoveDeviceFromResolvingList(addressWithType bthost.AddressWithType)
	ClearResolvingList()
	ClearFilterAcceptList()

	LeSetDefaultSubrate(subrateMin, subrateMax, maxLatency, contNum, supTout uint16)
	SetSystemSuspendState(suspended bool)

	OnClassicSuspendInitiatedDisconnect(handle uint16, reason bthost.ErrorCode)
	OnLeSuspendInitiatedDisconnect(handle uint16, reason bthost.ErrorCode)
}
