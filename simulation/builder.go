package simulation

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/pktsim/logging"
	"github.com/sarchlab/pktsim/network"
	"github.com/sarchlab/pktsim/sim/id"
	"github.com/sarchlab/pktsim/stats"
	"github.com/sarchlab/pktsim/traffic"
)

// NodeSpec describes a node to create when the simulation is built. An empty
// address is synthesized and a non-positive capacity takes the default.
type NodeSpec struct {
	Address  network.Address
	Capacity int
}

// Builder can be used to build a simulation.
type Builder struct {
	logger          logrus.FieldLogger
	defaultCapacity int
	initialNodes    []NodeSpec
	drainPolicy     network.DrainPolicy
	minPacketSize   int
	maxPacketSize   int
	packetLogSize   int
	randomStream    string
	random          traffic.RandomSource
}

// MakeBuilder creates a builder with the classic two-node setup: nodes
// 192.168.1.1 and 192.168.1.2 with a capacity of 5 each.
func MakeBuilder() Builder {
	return Builder{
		defaultCapacity: 5,
		initialNodes:    []NodeSpec{{}, {}},
		drainPolicy:     network.DrainOwnerMatch,
		minPacketSize:   50,
		maxPacketSize:   150,
		packetLogSize:   1024,
		randomStream:    "pktsim",
	}
}

// WithLogger sets the logger. By default log output is discarded.
func (b Builder) WithLogger(logger logrus.FieldLogger) Builder {
	b.logger = logger
	return b
}

// WithDefaultCapacity sets the capacity of nodes added without one.
func (b Builder) WithDefaultCapacity(capacity int) Builder {
	b.defaultCapacity = capacity
	return b
}

// WithInitialNodes replaces the nodes created at start.
func (b Builder) WithInitialNodes(nodes ...NodeSpec) Builder {
	b.initialNodes = nodes
	return b
}

// WithDrainPolicy selects how delivered packets are drained.
func (b Builder) WithDrainPolicy(policy network.DrainPolicy) Builder {
	b.drainPolicy = policy
	return b
}

// WithPacketSizeRange sets the half-open packet size range.
func (b Builder) WithPacketSizeRange(min, max int) Builder {
	b.minPacketSize = min
	b.maxPacketSize = max

	return b
}

// WithPacketLogSize sets how many packet log entries are retained. A
// non-positive size keeps every entry.
func (b Builder) WithPacketLogSize(size int) Builder {
	b.packetLogSize = size
	return b
}

// WithRandomStream names the rngstream packets are drawn from.
func (b Builder) WithRandomStream(name string) Builder {
	b.randomStream = name
	return b
}

// WithRandomSource overrides the random source entirely.
func (b Builder) WithRandomSource(rng traffic.RandomSource) Builder {
	b.random = rng
	return b
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	if b.defaultCapacity <= 0 {
		return nil, fmt.Errorf("default capacity %d: %w",
			b.defaultCapacity, network.ErrInvalidCapacity)
	}

	logger := b.logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	s := &Simulation{
		runID:           id.RunID(),
		defaultCapacity: b.defaultCapacity,
		nodes:           network.NewNodeSet(),
		collector:       stats.NewCollector(),
		packetLog:       stats.NewPacketLog(b.packetLogSize),
	}

	s.log = logging.Component(logger, "simulation").WithField("run", s.runID)

	s.router = network.NewRouter(s.nodes, s)
	s.drainer = network.NewDrainer(s.nodes, s, b.drainPolicy)

	gen, err := traffic.MakeBuilder().
		WithAddressSource(s.nodes).
		WithRandomSource(b.random).
		WithSizeRange(b.minPacketSize, b.maxPacketSize).
		Build(b.randomStream)
	if err != nil {
		return nil, err
	}

	s.generator = gen

	for _, spec := range b.initialNodes {
		addr := spec.Address
		if addr == "" {
			addr = s.nodes.NextAddress()
		}

		if _, err := s.addNode(addr, spec.Capacity); err != nil {
			return nil, err
		}
	}

	return s, nil
}
