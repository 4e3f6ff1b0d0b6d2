package network

import (
	"fmt"

	"github.com/sarchlab/pktsim/sim/hooking"
)

// HookPosPacketAdmitted marks when the router admits a packet.
var HookPosPacketAdmitted = &hooking.HookPos{Name: "Packet Admitted"}

// HookPosPacketDropped marks when the router rejects a packet. The hook
// detail is the routing error.
var HookPosPacketDropped = &hooking.HookPos{Name: "Packet Dropped"}

// A TickTeller reports the current simulation tick.
type TickTeller interface {
	CurrentTick() uint64
}

// A Router performs admission control: a packet enters its sender's buffer
// only if there is room, and is rejected otherwise.
type Router struct {
	hooking.HookableBase

	nodes *NodeSet
	clock TickTeller
}

// NewRouter creates a router over the given node set. The clock may be nil,
// in which case every packet is stamped with tick 0.
func NewRouter(nodes *NodeSet, clock TickTeller) *Router {
	return &Router{
		nodes: nodes,
		clock: clock,
	}
}

// Route tries to admit the packet and reports whether it was admitted.
func (r *Router) Route(p *Packet) bool {
	return r.Admit(p) == nil
}

// Admit tries to push the packet into its sender's buffer. It returns
// ErrUnknownAddress if the sender or the receiver is not in the node set and
// ErrBufferFull if the sender has no room. Nothing is mutated on failure.
func (r *Router) Admit(p *Packet) error {
	err := r.admit(p)

	if r.NumHooks() > 0 {
		ctx := hooking.HookCtx{
			Domain: r,
			Pos:    HookPosPacketAdmitted,
			Item:   p,
		}

		if err != nil {
			ctx.Pos = HookPosPacketDropped
			ctx.Detail = err
		}

		r.InvokeHook(ctx)
	}

	return err
}

func (r *Router) admit(p *Packet) error {
	sender, found := r.nodes.Find(p.Sender)
	if !found {
		return fmt.Errorf("sender %s: %w", p.Sender, ErrUnknownAddress)
	}

	if !r.nodes.Contains(p.Receiver) {
		return fmt.Errorf("receiver %s: %w", p.Receiver, ErrUnknownAddress)
	}

	if !sender.CanPush() {
		return fmt.Errorf("node %s: %w", sender.address, ErrBufferFull)
	}

	sender.push(p, r.now())

	return nil
}

func (r *Router) now() uint64 {
	if r.clock == nil {
		return 0
	}

	return r.clock.CurrentTick()
}
