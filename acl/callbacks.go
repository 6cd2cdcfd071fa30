package acl

import (
	"fmt"

	"github.com/bluekit/bthost"
)

// ClassicCallbacks is the upper stack's callback table for BR/EDR links.
// Every callback is delivered on the upper serial executor.
type ClassicCallbacks struct {
	OnConnected      func(address bthost.Address, handle uint16, encrypted bool, locallyInitiated bool)
	OnConnectRequest func(address bthost.Address, cod bthost.ClassOfDevice)
	OnFailed         func(address bthost.Address, reason bthost.ErrorCode, locallyInitiated bool)
	OnDisconnected   func(status bthost.ErrorCode, handle uint16, reason bthost.ErrorCode)

	OnPacketTypeChanged               func(packetType uint16)
	OnAuthenticationComplete          func(handle uint16, status bthost.ErrorCode)
	OnEncryptionChange                func(enabled bool)
	OnChangeConnectionLinkKeyComplete func()
	OnModeChange                      func(status bthost.ErrorCode, handle uint16, mode bthost.Mode, interval uint16)
	OnSniffSubrating                  func(status bthost.ErrorCode, handle uint16, maximumTransmitLatency, maximumReceiveLatency, minimumRemoteTimeout, minimumLocalTimeout uint16)
	OnRoleChange                      func(status bthost.ErrorCode, address bthost.Address, newRole bthost.Role)

	OnReadRemoteVersionInformationComplete func(status bthost.ErrorCode, handle uint16, lmpVersion uint8, manufacturerName, subVersion uint16)
	OnReadRemoteSupportedFeaturesComplete  func(handle uint16, features uint64)
	OnReadRemoteExtendedFeaturesComplete   func(handle uint16, pageNumber, maxPageNumber uint8, features uint64)
}

// LeCallbacks is the upper stack's callback table for LE links.
type LeCallbacks struct {
	OnConnected func(address bthost.AddressWithType, handle uint16, role bthost.Role,
		connInterval, connLatency, connTimeout uint16,
		localRPA, peerRPA bthost.Address, peerAddressType bthost.AddressType,
		canReadDiscoverableCharacteristics bool)
	OnFailed       func(address bthost.AddressWithType, handle uint16, enhanced bool, status bthost.ErrorCode)
	OnDisconnected func(status bthost.ErrorCode, handle uint16, reason bthost.ErrorCode)

	OnConnectionUpdate func(status bthost.ErrorCode, handle uint16, connInterval, connLatency, supervisionTimeout uint16)
	OnDataLengthChange func(handle uint16, maxTxOctets, maxTxTime, maxRxOctets, maxRxTime uint16)
	OnLeSubrateChange  func(handle uint16, subrateFactor, peripheralLatency, continuationNumber, supervisionTimeout uint16, status bthost.ErrorCode)

	OnReadRemoteVersionInformationComplete func(status bthost.ErrorCode, handle uint16, lmpVersion uint8, manufacturerName, subVersion uint16)
	OnPhyUpdate                            func(status bthost.ErrorCode, handle uint16, txPhy, rxPhy uint8)
}

// Callbacks is the full upper-facing surface registered at init.
type Callbacks struct {
	// OnSendDataUpwards receives inbound ACL data with the 4-byte
	// handle/length preamble prepended.
	OnSendDataUpwards func(packet []byte)

	// OnPacketsCompleted reports controller credits returned for a handle.
	OnPacketsCompleted func(handle uint16, credits uint16)

	Classic ClassicCallbacks
	Le      LeCallbacks
}

// validateCallbacks refuses construction without the callbacks the upper
// stack cannot function without.
func validateCallbacks(cb *Callbacks) error {
	switch {
	case cb.OnSendDataUpwards == nil:
		return fmt.Errorf("must provide to receive data on acl links")
	case cb.OnPacketsCompleted == nil:
		return fmt.Errorf("must provide to receive completed packet indication")
	case cb.Classic.OnConnected == nil:
		return fmt.Errorf("must provide to respond to successful classic connections")
	case cb.Classic.OnFailed == nil:
		return fmt.Errorf("must provide to respond when classic connection attempts fail")
	case cb.Classic.OnDisconnected == nil:
		return fmt.Errorf("must provide to respond when active classic connection disconnects")
	case cb.Le.OnConnected == nil:
		return fmt.Errorf("must provide to respond to successful le connections")
	case cb.Le.OnFailed == nil:
		return fmt.Errorf("must provide to respond when le connection attempts fail")
	case cb.Le.OnDisconnected == nil:
		return fmt.Errorf("must provide to respond when active le connection disconnects")
	}
	return nil
}
