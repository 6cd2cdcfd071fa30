package acl

import (
	"time"

	"github.com/bluekit/bthost/handler"
)

const invalidHandle uint16 = 0xffff

// pendingWatermark is the outbound FIFO depth past which queue growth is
// diagnosed.
const pendingWatermark = 64

// tryPost delivers fn on the upper serial executor unless the target
// callback is absent.
func tryPost(upper *handler.Handler, present bool, fn func()) {
	if !present {
		logger().Warn("dropping ACL event with no callback")
		return
	}
	upper.Post(fn)
}

// link is the state shared by both transport variants. It owns the
// outbound FIFO and the enqueue/dequeue registration against the lower
// queue. All mutation happens on the lower handler.
type link struct {
	handle       uint16
	creationTime time.Time

	lower *handler.Handler
	upper *handler.Handler
	queue DataQueue

	// sendDataUpwards is the upper sink for inbound data; nil when the
	// upper stack registered none.
	sendDataUpwards func(packet []byte)

	pending           []Builder
	enqueueRegistered bool
	disconnected      bool
}

// enqueuePacket appends to the outbound FIFO and registers for enqueue if
// not already registered. Refused once the disconnected latch is set.
func (l *link) enqueuePacket(b Builder) error {
	if l.disconnected {
		logger().Errorf("unable to send data over disconnected channel handle:0x%04x", l.handle)
		return errDisconnected
	}
	l.pending = append(l.pending, b)
	if len(l.pending) > pendingWatermark {
		logger().Warnf("outbound queue deep handle:0x%04x pending:%d", l.handle, len(l.pending))
	}
	l.registerEnqueue()
	return nil
}

// handleEnqueue pops the front of the FIFO for the lower queue. Called by
// the lower queue once it has invited dequeue.
func (l *link) handleEnqueue() Builder {
	b := l.pending[0]
	l.pending = l.pending[1:]
	if len(l.pending) == 0 {
		l.unregisterEnqueue()
	}
	return b
}

func (l *link) registerEnqueue() {
	if l.enqueueRegistered {
		return
	}
	l.enqueueRegistered = true
	l.queue.RegisterEnqueue(l.lower, l.handleEnqueue)
}

func (l *link) unregisterEnqueue() {
	if !l.enqueueRegistered {
		return
	}
	l.enqueueRegistered = false
	l.queue.UnregisterEnqueue()
}

// dataReady runs on the lower handler when an inbound packet is
// available. The packet is prefixed with the 4-byte legacy preamble
// (handle low, handle high, length low, length high) and handed to the
// upper sink.
func (l *link) dataReady() {
	packet := l.queue.TryDequeue()
	if packet == nil {
		return
	}
	length := uint16(len(packet))
	buf := make([]byte, 0, 4+len(packet))
	buf = append(buf,
		byte(l.handle), byte(l.handle>>8),
		byte(length), byte(length>>8))
	buf = append(buf, packet...)

	if l.sendDataUpwards == nil {
		logger().Warn("dropping ACL data with no callback")
		return
	}
	send := l.sendDataUpwards
	l.upper.Post(func() { send(buf) })
}

// disconnect sets the latch and tears down both queue registrations. A
// second call is a diagnosed error and reports false.
func (l *link) disconnect() bool {
	if l.disconnected {
		logger().Errorf("cannot disconnect ACL multiple times handle:0x%04x creation_time:%s",
			l.handle, l.creationTime.Format(descriptorTimeFormat))
		return false
	}
	l.disconnected = true
	l.unregisterEnqueue()
	l.queue.UnregisterDequeue()
	if len(l.pending) > 0 {
		logger().Warnf("ACL disconnect with non-empty queue handle:0x%04x stranded_pkts:%d",
			l.handle, len(l.pending))
	}
	return true
}

// shutdown disconnects without a controller round trip.
func (l *link) shutdown() {
	l.disconnect()
	logger().Infof("shutdown and disconnect ACL connection handle:0x%04x", l.handle)
}

func (l *link) isDisconnected() bool { return l.disconnected }

func (l *link) getCreationTime() time.Time { return l.creationTime }

func (l *link) getHandle() uint16 { return l.handle }
