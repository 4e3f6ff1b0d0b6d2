// Package network models the simulated nodes, their packet buffers, and the
// router and drainer that are the only code allowed to mutate those buffers.
package network

import (
	"fmt"
	"log"

	"github.com/sarchlab/pktsim/sim/hooking"
)

// HookPosBufPush marks when a packet is pushed into a node buffer.
var HookPosBufPush = &hooking.HookPos{Name: "Buf Push"}

// HookPosBufRemove marks when a packet is removed from a node buffer.
var HookPosBufRemove = &hooking.HookPos{Name: "Buf Remove"}

type bufferedPacket struct {
	packet     *Packet
	enqueuedAt uint64
}

// A Node is a simulated endpoint with a fixed-capacity packet buffer.
type Node struct {
	hooking.HookableBase

	address  Address
	capacity int
	buffer   []bufferedPacket
	load     float64
}

// NodeSnapshot is a copy of the observable state of a node.
type NodeSnapshot struct {
	Address  Address `json:"address"`
	Capacity int     `json:"capacity"`
	Size     int     `json:"size"`
	Load     float64 `json:"load"`
}

// NewNode creates an empty node.
func NewNode(address Address, capacity int) (*Node, error) {
	if address == "" {
		return nil, ErrEmptyAddress
	}

	if capacity <= 0 {
		return nil, fmt.Errorf("node %s: %w", address, ErrInvalidCapacity)
	}

	return &Node{
		address:  address,
		capacity: capacity,
	}, nil
}

// Address returns the address of the node.
func (n *Node) Address() Address {
	return n.address
}

// Capacity returns the maximum number of buffered packets.
func (n *Node) Capacity() int {
	return n.capacity
}

// Size returns the number of buffered packets.
func (n *Node) Size() int {
	return len(n.buffer)
}

// Load returns the occupied fraction of the buffer, in [0, 1].
func (n *Node) Load() float64 {
	return n.load
}

// CanPush tells whether one more packet fits in the buffer.
func (n *Node) CanPush() bool {
	return len(n.buffer) < n.capacity
}

// Packets returns the buffered packets in arrival order.
func (n *Node) Packets() []Packet {
	packets := make([]Packet, 0, len(n.buffer))
	for _, bp := range n.buffer {
		packets = append(packets, *bp.packet)
	}

	return packets
}

// Snapshot copies the observable state of the node.
func (n *Node) Snapshot() NodeSnapshot {
	return NodeSnapshot{
		Address:  n.address,
		Capacity: n.capacity,
		Size:     len(n.buffer),
		Load:     n.load,
	}
}

func (n *Node) push(p *Packet, tick uint64) {
	if len(n.buffer) >= n.capacity {
		log.Panic("buffer overflow")
	}

	n.buffer = append(n.buffer, bufferedPacket{packet: p, enqueuedAt: tick})
	n.updateLoad()

	if n.NumHooks() > 0 {
		n.InvokeHook(hooking.HookCtx{
			Domain: n,
			Pos:    HookPosBufPush,
			Item:   p,
		})
	}
}

// removeIf drops every buffered packet matching pred and returns them in
// buffer order. Load is updated after each removal.
func (n *Node) removeIf(pred func(bp bufferedPacket) bool) []*Packet {
	var removed []*Packet

	for i := 0; i < len(n.buffer); {
		bp := n.buffer[i]
		if !pred(bp) {
			i++
			continue
		}

		last := len(n.buffer) - 1
		copy(n.buffer[i:], n.buffer[i+1:])
		n.buffer[last] = bufferedPacket{}
		n.buffer = n.buffer[:last]
		n.updateLoad()

		removed = append(removed, bp.packet)

		if n.NumHooks() > 0 {
			n.InvokeHook(hooking.HookCtx{
				Domain: n,
				Pos:    HookPosBufRemove,
				Item:   bp.packet,
			})
		}
	}

	return removed
}

func (n *Node) updateLoad() {
	n.load = float64(len(n.buffer)) / float64(n.capacity)
}
