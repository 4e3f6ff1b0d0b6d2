package network

import (
	"fmt"
	"strings"

	"github.com/sarchlab/pktsim/sim/hooking"
)

// HookPosPacketDrained marks when the drainer removes a packet from a node
// buffer. The hook domain is the drainer and the detail is the node.
var HookPosPacketDrained = &hooking.HookPos{Name: "Packet Drained"}

// DrainPolicy decides which buffered packets count as delivered.
type DrainPolicy int

const (
	// DrainOwnerMatch removes a packet only from the buffer of the node the
	// packet is addressed to. Since packets are only ever buffered at their
	// sender, admitted packets stay buffered forever under this policy.
	DrainOwnerMatch DrainPolicy = iota

	// DrainOnDelivery removes a packet from its sender's buffer once it has
	// been in flight for a full tick, i.e. in any drain step after the tick
	// that admitted it.
	DrainOnDelivery
)

func (p DrainPolicy) String() string {
	switch p {
	case DrainOwnerMatch:
		return "owner-match"
	case DrainOnDelivery:
		return "on-delivery"
	default:
		return fmt.Sprintf("DrainPolicy(%d)", int(p))
	}
}

// ParseDrainPolicy parses the names produced by DrainPolicy.String.
func ParseDrainPolicy(s string) (DrainPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "owner-match":
		return DrainOwnerMatch, nil
	case "on-delivery":
		return DrainOnDelivery, nil
	default:
		return 0, fmt.Errorf("unknown drain policy %q", s)
	}
}

// A Drainer sweeps node buffers and removes delivered packets.
type Drainer struct {
	hooking.HookableBase

	nodes  *NodeSet
	clock  TickTeller
	policy DrainPolicy
}

// NewDrainer creates a drainer over the given node set. DrainOnDelivery
// needs a clock; with a nil clock nothing is ever in flight long enough.
func NewDrainer(nodes *NodeSet, clock TickTeller, policy DrainPolicy) *Drainer {
	return &Drainer{
		nodes:  nodes,
		clock:  clock,
		policy: policy,
	}
}

// Policy returns the drain policy in use.
func (d *Drainer) Policy() DrainPolicy {
	return d.policy
}

// DrainAll drains every node and returns the number of packets removed.
func (d *Drainer) DrainAll() int {
	drained := 0
	for _, n := range d.nodes.nodes {
		drained += d.Drain(n)
	}

	return drained
}

// Drain removes the delivered packets from one node's buffer and returns how
// many were removed.
func (d *Drainer) Drain(n *Node) int {
	removed := n.removeIf(d.delivered(n))

	if d.NumHooks() > 0 {
		for _, p := range removed {
			d.InvokeHook(hooking.HookCtx{
				Domain: d,
				Pos:    HookPosPacketDrained,
				Item:   p,
				Detail: n,
			})
		}
	}

	return len(removed)
}

func (d *Drainer) delivered(n *Node) func(bp bufferedPacket) bool {
	switch d.policy {
	case DrainOnDelivery:
		now := d.now()
		return func(bp bufferedPacket) bool {
			return bp.enqueuedAt < now
		}
	default:
		return func(bp bufferedPacket) bool {
			return bp.packet.Receiver == n.address
		}
	}
}

func (d *Drainer) now() uint64 {
	if d.clock == nil {
		return 0
	}

	return d.clock.CurrentTick()
}
