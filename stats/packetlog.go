package stats

import (
	"fmt"

	"github.com/sarchlab/pktsim/network"
)

// Outcome tells what the router did with a packet.
type Outcome int

// Outcomes.
const (
	OutcomeAdmitted Outcome = iota
	OutcomeDropped
)

func (o Outcome) String() string {
	if o == OutcomeAdmitted {
		return "admitted"
	}

	return "dropped"
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name produced by MarshalText.
func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "admitted":
		*o = OutcomeAdmitted
	case "dropped":
		*o = OutcomeDropped
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}

	return nil
}

// A LogEntry is one generated packet together with its routing outcome.
type LogEntry struct {
	Tick    uint64         `json:"tick"`
	Packet  network.Packet `json:"packet"`
	Outcome Outcome        `json:"outcome"`
	Reason  string         `json:"reason,omitempty"`
}

// Admitted tells whether the packet entered a buffer.
func (e LogEntry) Admitted() bool {
	return e.Outcome == OutcomeAdmitted
}

// A PacketLog is an append-only log of generated packets. With a positive
// capacity it retains only the most recent entries; the total count stays
// exact either way.
//
// PacketLog is not safe for concurrent use.
type PacketLog struct {
	capacity int
	entries  []LogEntry
	head     int
	total    uint64
}

// NewPacketLog creates a log that retains at most capacity entries, or every
// entry if capacity is not positive.
func NewPacketLog(capacity int) *PacketLog {
	l := &PacketLog{capacity: capacity}
	if capacity > 0 {
		l.entries = make([]LogEntry, 0, capacity)
	}

	return l
}

// Append adds an entry, evicting the oldest one if the log is full.
func (l *PacketLog) Append(e LogEntry) {
	l.total++

	if l.capacity <= 0 || len(l.entries) < l.capacity {
		l.entries = append(l.entries, e)
		return
	}

	l.entries[l.head] = e
	l.head = (l.head + 1) % l.capacity
}

// Len returns the number of retained entries.
func (l *PacketLog) Len() int {
	return len(l.entries)
}

// Total returns the number of entries ever appended.
func (l *PacketLog) Total() uint64 {
	return l.total
}

// Recent returns up to limit of the newest entries, oldest first. A
// non-positive limit returns every retained entry.
func (l *PacketLog) Recent(limit int) []LogEntry {
	n := len(l.entries)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]LogEntry, 0, limit)
	for i := n - limit; i < n; i++ {
		out = append(out, l.entries[(l.head+i)%n])
	}

	return out
}
