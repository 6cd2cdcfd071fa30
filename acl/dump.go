package acl

import (
	"fmt"
	"io"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/bluekit/bthost/countmap"
)

// Snapshot is the machine-readable view of the manager's diagnostic
// state.
type Snapshot struct {
	ConnectionHistory []string `json:"connection_history"`
	Transitions       []string `json:"transitions"`

	AcceptList       []string `json:"accept_list"`
	AcceptListMax    uint8    `json:"accept_list_max"`
	ResolvingList    []string `json:"resolving_list"`
	ResolvingListMax uint8    `json:"resolving_list_max"`

	ClassicDisconnectReasons []countmap.Entry `json:"classic_disconnect_reasons"`
	LeDisconnectReasons      []countmap.Entry `json:"le_disconnect_reasons"`

	ClassicHandles []uint16 `json:"classic_handles"`
	LeHandles      []uint16 `json:"le_handles"`
}

// snapshot captures the dump state; must run on the lower handler.
func (m *Manager) snapshot() Snapshot {
	s := Snapshot{
		ConnectionHistory: m.history.strings(),
		Transitions:       m.transitions.strings(),
		AcceptListMax:     m.acceptList.getMaxSize(),
		ResolvingListMax:  m.resolvingList.getMaxSize(),

		ClassicDisconnectReasons: m.classicDisconnectReasons.SortedHighToLow(),
		LeDisconnectReasons:      m.leDisconnectReasons.SortedHighToLow(),
	}
	for entry := range m.acceptList.snapshot() {
		s.AcceptList = append(s.AcceptList, entry.String())
	}
	sort.Strings(s.AcceptList)
	for entry := range m.resolvingList.snapshot() {
		s.ResolvingList = append(s.ResolvingList, entry.String())
	}
	sort.Strings(s.ResolvingList)
	for handle := range m.classicLinks {
		s.ClassicHandles = append(s.ClassicHandles, handle)
	}
	for handle := range m.leLinks {
		s.LeHandles = append(s.LeHandles, handle)
	}
	sort.Slice(s.ClassicHandles, func(i, j int) bool { return s.ClassicHandles[i] < s.ClassicHandles[j] })
	sort.Slice(s.LeHandles, func(i, j int) bool { return s.LeHandles[i] < s.LeHandles[j] })
	return s
}

// Snapshot returns a copy of the diagnostic state.
func (m *Manager) Snapshot() Snapshot {
	var s Snapshot
	m.lower.CallOn(func() {
		s = m.snapshot()
	})
	return s
}

// SnapshotJSON renders the diagnostic state for machine consumption.
func (m *Manager) SnapshotJSON() ([]byte, error) {
	return jsoniter.Marshal(m.Snapshot())
}

// DumpConnectionHistory writes the human-readable diagnostic dump:
// time-stamped history lines, disconnect-reason histograms high to low,
// and the shadow list contents.
func (m *Manager) DumpConnectionHistory(w io.Writer) {
	s := m.Snapshot()

	for _, line := range s.ConnectionHistory {
		fmt.Fprintln(w, line)
	}
	if len(s.ClassicDisconnectReasons) > 0 {
		fmt.Fprintln(w, "Classic sources of initiated disconnects")
		for _, e := range s.ClassicDisconnectReasons {
			fmt.Fprintf(w, "  %s:%d\n", e.Item, e.Count)
		}
	}
	if len(s.LeDisconnectReasons) > 0 {
		fmt.Fprintln(w, "Le sources of initiated disconnects")
		for _, e := range s.LeDisconnectReasons {
			fmt.Fprintf(w, "  %s:%d\n", e.Item, e.Count)
		}
	}

	fmt.Fprintf(w, "Shadow le accept list              size:%-3d controller_max_size:%d\n",
		len(s.AcceptList), s.AcceptListMax)
	for i, entry := range s.AcceptList {
		fmt.Fprintf(w, "  %03d %s\n", i+1, entry)
	}
	fmt.Fprintf(w, "Shadow le address resolution list  size:%-3d controller_max_size:%d\n",
		len(s.ResolvingList), s.ResolvingListMax)
	for i, entry := range s.ResolvingList {
		fmt.Fprintf(w, "  %03d %s\n", i+1, entry)
	}

	if len(s.Transitions) > 0 {
		fmt.Fprintln(w, "Recent transitions")
		for _, line := range s.Transitions {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}
