package network

import "fmt"

// Address identifies a node. Addresses are flat and compared as strings.
type Address string

// PacketType classifies the traffic a packet carries. No component branches
// on it yet; it is the seam for type-based routing.
type PacketType int

// Packet types.
const (
	PacketTypeData PacketType = iota
	PacketTypeVoice
	PacketTypeVideo
)

// NumPacketTypes is the number of defined packet types.
const NumPacketTypes = 3

func (t PacketType) String() string {
	switch t {
	case PacketTypeData:
		return "Data"
	case PacketTypeVoice:
		return "Voice"
	case PacketTypeVideo:
		return "Video"
	default:
		return fmt.Sprintf("PacketType(%d)", int(t))
	}
}

// MarshalText encodes the type by name.
func (t PacketType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name produced by MarshalText.
func (t *PacketType) UnmarshalText(text []byte) error {
	for c := PacketType(0); c < NumPacketTypes; c++ {
		if c.String() == string(text) {
			*t = c
			return nil
		}
	}

	return fmt.Errorf("unknown packet type %q", text)
}

// Priority is the scheduling priority of a packet. Like PacketType it is
// carried but inert, reserved for priority queues.
type Priority int

// Priorities.
const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// NumPriorities is the number of defined priorities.
const NumPriorities = 3

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// MarshalText encodes the priority by name.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a priority name produced by MarshalText.
func (p *Priority) UnmarshalText(text []byte) error {
	for c := Priority(0); c < NumPriorities; c++ {
		if c.String() == string(text) {
			*p = c
			return nil
		}
	}

	return fmt.Errorf("unknown priority %q", text)
}

// A Packet is a unit of simulated traffic.
type Packet struct {
	ID       uint64     `json:"id"`
	Size     int        `json:"size"`
	Type     PacketType `json:"type"`
	Priority Priority   `json:"priority"`
	Sender   Address    `json:"sender"`
	Receiver Address    `json:"receiver"`
}

func (p *Packet) String() string {
	return fmt.Sprintf("packet %d %s->%s (%dB %s/%s)",
		p.ID, p.Sender, p.Receiver, p.Size, p.Type, p.Priority)
}
