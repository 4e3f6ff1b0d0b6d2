// Package traffic synthesizes the random packets that drive the simulation.
package traffic

import (
	"fmt"

	"github.com/iti/rngstream"

	"github.com/sarchlab/pktsim/network"
	"github.com/sarchlab/pktsim/sim/hooking"
	"github.com/sarchlab/pktsim/sim/id"
)

// HookPosPacketGenerated marks when the generator creates a packet.
var HookPosPacketGenerated = &hooking.HookPos{Name: "Packet Generated"}

// An AddressSource lists the addresses packets may travel between.
type AddressSource interface {
	Addresses() []network.Address
}

// A RandomSource draws uniform variates in (0, 1). *rngstream.RngStream
// satisfies it.
type RandomSource interface {
	RandU01() float64
}

// A Generator produces one packet between two distinct, existing addresses
// per call, or nothing when fewer than two addresses exist.
type Generator struct {
	hooking.HookableBase

	name    string
	nodes   AddressSource
	rng     RandomSource
	ids     id.Generator
	minSize int
	maxSize int
}

// Builder builds Generators.
type Builder struct {
	nodes   AddressSource
	rng     RandomSource
	minSize int
	maxSize int
}

// MakeBuilder returns a builder with a [50, 150) size range.
func MakeBuilder() Builder {
	return Builder{
		minSize: 50,
		maxSize: 150,
	}
}

// WithAddressSource sets where sender and receiver are picked from.
func (b Builder) WithAddressSource(nodes AddressSource) Builder {
	b.nodes = nodes
	return b
}

// WithRandomSource sets the random stream. By default a named rngstream is
// created.
func (b Builder) WithRandomSource(rng RandomSource) Builder {
	b.rng = rng
	return b
}

// WithSizeRange sets the half-open range [min, max) packet sizes are drawn
// from.
func (b Builder) WithSizeRange(min, max int) Builder {
	b.minSize = min
	b.maxSize = max

	return b
}

// Build creates the generator.
func (b Builder) Build(name string) (*Generator, error) {
	if b.nodes == nil {
		return nil, fmt.Errorf("generator %s: address source is required", name)
	}

	if b.minSize < 0 || b.maxSize <= b.minSize {
		return nil, fmt.Errorf("generator %s: invalid size range [%d, %d)",
			name, b.minSize, b.maxSize)
	}

	g := &Generator{
		name:    name,
		nodes:   b.nodes,
		rng:     b.rng,
		ids:     id.NewSequentialGenerator(),
		minSize: b.minSize,
		maxSize: b.maxSize,
	}

	if g.rng == nil {
		g.rng = rngstream.New(name)
	}

	return g, nil
}

// Name returns the name of the generator.
func (g *Generator) Name() string {
	return g.name
}

// Generate creates the next packet. It returns false if fewer than two
// addresses are available.
func (g *Generator) Generate() (*network.Packet, bool) {
	addrs := g.nodes.Addresses()
	if len(addrs) < 2 {
		return nil, false
	}

	sender, receiver := g.pickPair(addrs)

	p := &network.Packet{
		ID:       g.ids.Next(),
		Size:     g.minSize + g.intn(g.maxSize-g.minSize),
		Type:     network.PacketType(g.intn(network.NumPacketTypes)),
		Priority: network.Priority(g.intn(network.NumPriorities)),
		Sender:   sender,
		Receiver: receiver,
	}

	if g.NumHooks() > 0 {
		g.InvokeHook(hooking.HookCtx{
			Domain: g,
			Pos:    HookPosPacketGenerated,
			Item:   p,
		})
	}

	return p, true
}

// pickPair draws sender and receiver independently and redraws both until
// they differ.
func (g *Generator) pickPair(addrs []network.Address) (
	sender, receiver network.Address,
) {
	for {
		sender = addrs[g.intn(len(addrs))]
		receiver = addrs[g.intn(len(addrs))]

		if sender != receiver {
			return sender, receiver
		}
	}
}

// intn returns a uniform integer in [0, n).
func (g *Generator) intn(n int) int {
	i := int(g.rng.RandU01() * float64(n))
	if i >= n {
		i = n - 1
	}

	if i < 0 {
		i = 0
	}

	return i
}
