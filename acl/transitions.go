package acl

import (
	"time"
)

const transitionLogSize = 100

// transitionLog keeps a bounded, timestamped record of notable link
// transitions for the diagnostic dump.
type transitionLog struct {
	maxSize int
	entries []string
}

func newTransitionLog(maxSize int) *transitionLog {
	return &transitionLog{maxSize: maxSize}
}

func (t *transitionLog) record(address, event, detail string) {
	line := time.Now().Format(descriptorTimeFormat) + " " + address + " " + event
	if detail != "" {
		line += " " + detail
	}
	if len(t.entries) == t.maxSize {
		t.entries = t.entries[1:]
	}
	t.entries = append(t.entries, line)
}

func (t *transitionLog) strings() []string {
	out := make([]string, len(t.entries))
	copy(out, t.entries)
	return out
}
