package acl

import (
	"time"

	"github.com/bluekit/bthost"
	"github.com/bluekit/bthost/handler"
)

// extendedFeaturesBit marks support for the extended features pages in
// page 0 of the remote feature mask.
const extendedFeaturesBit = uint64(1) << 63

// classicLink is the per-handle state of a BR/EDR connection. It receives
// controller events for its handle on the lower handler and forwards them
// upward as plain values.
type classicLink struct {
	link

	conn  ClassicConnection
	iface ClassicCallbacks

	// onDisconnect runs on the lower handler once the controller reports
	// the link down.
	onDisconnect func(handle uint16, reason bthost.ErrorCode)

	// record appends a line to the manager's transition log.
	record func(address, event, detail string)

	featurePagesReceived uint8
}

func newClassicLink(conn ClassicConnection, iface ClassicCallbacks,
	lower, upper *handler.Handler, sendDataUpwards func([]byte),
	onDisconnect func(uint16, bthost.ErrorCode),
	record func(address, event, detail string),
	creationTime time.Time) *classicLink {

	c := &classicLink{
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
		record:       record,
	}
	c.queue.RegisterDequeue(lower, c.dataReady)
	return c
}

func (c *classicLink) registerCallbacks() {
	c.conn.RegisterCallbacks(c, c.lower)
}

func (c *classicLink) readRemoteControllerInformation() {
	c.conn.ReadRemoteVersionInformation()
	c.conn.ReadRemoteSupportedFeatures()
}

func (c *classicLink) remoteAddress() bthost.Address {
	return c.conn.Address()
}

func (c *classicLink) locallyInitiated() bool {
	return c.conn.LocallyInitiated()
}

func (c *classicLink) initiateDisconnect(reason bthost.ErrorCode) {
	c.conn.Disconnect(reason)
}

func (c *classicLink) holdMode(maxInterval, minInterval uint16) {
	if !c.conn.HoldMode(maxInterval, minInterval) {
		logger().Errorf("hold mode refused handle:0x%04x", c.handle)
	}
}

func (c *classicLink) sniffMode(maxInterval, minInterval, attempt, timeout uint16) {
	if !c.conn.SniffMode(maxInterval, minInterval, attempt, timeout) {
		logger().Errorf("sniff mode refused handle:0x%04x", c.handle)
	}
}

func (c *classicLink) exitSniffMode() {
	if !c.conn.ExitSniffMode() {
		logger().Errorf("exit sniff mode refused handle:0x%04x", c.handle)
	}
}

func (c *classicLink) sniffSubrating(maximumLatency, minimumRemoteTimeout, minimumLocalTimeout uint16) {
	if !c.conn.SniffSubrating(maximumLatency, minimumRemoteTimeout, minimumLocalTimeout) {
		logger().Errorf("sniff subrating refused handle:0x%04x", c.handle)
	}
}

func (c *classicLink) setConnectionEncryption(enable bool) {
	if !c.conn.SetConnectionEncryption(enable) {
		logger().Errorf("set connection encryption refused handle:0x%04x", c.handle)
	}
}

func (c *classicLink) flush() {
	c.conn.Flush()
}

// ClassicConnectionEvents

func (c *classicLink) OnConnectionPacketTypeChanged(packetType uint16) {
	cb := c.iface.OnPacketTypeChanged
	tryPost(c.upper, cb != nil, func() { cb(packetType) })
}

func (c *classicLink) OnAuthenticationComplete(status bthost.ErrorCode) {
	cb := c.iface.OnAuthenticationComplete
	handle := c.handle
	tryPost(c.upper, cb != nil, func() { cb(handle, status) })
}

func (c *classicLink) OnEncryptionChange(enabled bthost.EncryptionStatus) {
	isEnabled := enabled == bthost.EncryptionOn || enabled == bthost.EncryptionBrEdrAesCcm
	cb := c.iface.OnEncryptionChange
	tryPost(c.upper, cb != nil, func() { cb(isEnabled) })
}

func (c *classicLink) OnChangeConnectionLinkKeyComplete() {
	cb := c.iface.OnChangeConnectionLinkKeyComplete
	tryPost(c.upper, cb != nil, func() { cb() })
}

func (c *classicLink) OnModeChange(status bthost.ErrorCode, mode bthost.Mode, interval uint16) {
	cb := c.iface.OnModeChange
	handle := c.handle
	tryPost(c.upper, cb != nil, func() { cb(status, handle, mode, interval) })
}

func (c *classicLink) OnSniffSubrating(status bthost.ErrorCode,
	maximumTransmitLatency, maximumReceiveLatency, minimumRemoteTimeout, minimumLocalTimeout uint16) {
	cb := c.iface.OnSniffSubrating
	handle := c.handle
	tryPost(c.upper, cb != nil, func() {
		cb(status, handle, maximumTransmitLatency, maximumReceiveLatency,
			minimumRemoteTimeout, minimumLocalTimeout)
	})
}

func (c *classicLink) OnRoleChange(status bthost.ErrorCode, newRole bthost.Role) {
	cb := c.iface.OnRoleChange
	address := c.conn.Address()
	tryPost(c.upper, cb != nil, func() { cb(status, address, newRole) })
	c.record(address.String(), "Role change",
		"classic new_role:"+newRole.String()+" status:"+status.String())
}

func (c *classicLink) OnDisconnection(reason bthost.ErrorCode) {
	c.disconnect()
	c.onDisconnect(c.handle, reason)
}

func (c *classicLink) OnReadRemoteVersionInformationComplete(status bthost.ErrorCode,
	lmpVersion uint8, manufacturerName, subVersion uint16) {
	cb := c.iface.OnReadRemoteVersionInformationComplete
	handle := c.handle
	tryPost(c.upper, cb != nil, func() {
		cb(status, handle, lmpVersion, manufacturerName, subVersion)
	})
}

func (c *classicLink) OnReadRemoteSupportedFeaturesComplete(features uint64) {
	cb := c.iface.OnReadRemoteSupportedFeaturesComplete
	handle := c.handle
	tryPost(c.upper, cb != nil, func() { cb(handle, features) })

	c.featurePagesReceived = 1
	if features&extendedFeaturesBit != 0 {
		c.conn.ReadRemoteExtendedFeatures(1)
		return
	}
	logger().Debugf("device does not support extended features handle:0x%04x", c.handle)
}

func (c *classicLink) OnReadRemoteExtendedFeaturesComplete(pageNumber, maxPageNumber uint8, features uint64) {
	cb := c.iface.OnReadRemoteExtendedFeaturesComplete
	handle := c.handle
	tryPost(c.upper, cb != nil, func() { cb(handle, pageNumber, maxPageNumber, features) })

	if pageNumber >= c.featurePagesReceived {
		c.featurePagesReceived = pageNumber + 1
	}

	// Supported features aliases to extended features page 0.
	if pageNumber == 0 && features&extendedFeaturesBit == 0 {
		logger().Debugf("device does not support extended features handle:0x%04x", c.handle)
		return
	}

	if maxPageNumber != 0 && pageNumber != maxPageNumber {
		c.conn.ReadRemoteExtendedFeatures(pageNumber + 1)
	}
}
