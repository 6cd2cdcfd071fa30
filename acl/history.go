package acl

import (
	"fmt"
	"time"

	"github.com/bluekit/bthost"
)

// descriptorTimeFormat renders to the millisecond, local time.
const descriptorTimeFormat = "2006-01-02 15:04:05.000"

const connectionHistorySize = 40

// connectionDescriptor records a completed connection for diagnostics.
type connectionDescriptor struct {
	remoteAddress    string
	creationTime     time.Time
	teardownTime     time.Time
	handle           uint16
	locallyInitiated bool
	disconnectReason bthost.ErrorCode
}

func (d connectionDescriptor) String() string {
	return fmt.Sprintf(
		"peer:%s handle:0x%04x is_locally_initiated:%t creation_time:%s teardown_time:%s disconnect_reason:%s",
		d.remoteAddress, d.handle, d.locallyInitiated,
		d.creationTime.Format(descriptorTimeFormat),
		d.teardownTime.Format(descriptorTimeFormat),
		d.disconnectReason)
}

// connectionHistory is a bounded ring of descriptors in insertion order;
// the oldest entry is evicted on overflow.
type connectionHistory struct {
	maxSize int
	entries []connectionDescriptor
}

func newConnectionHistory(maxSize int) *connectionHistory {
	return &connectionHistory{maxSize: maxSize}
}

func (h *connectionHistory) push(d connectionDescriptor) {
	if len(h.entries) == h.maxSize {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, d)
}

func (h *connectionHistory) len() int { return len(h.entries) }

// strings renders all entries oldest first.
func (h *connectionHistory) strings() []string {
	out := make([]string, 0, len(h.entries))
	for _, d := range h.entries {
		out = append(out, d.String())
	}
	return out
}
