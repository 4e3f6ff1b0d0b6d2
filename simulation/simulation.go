// Package simulation owns the node set and runs the generate, route, and
// drain cycle one tick at a time.
package simulation

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/pktsim/network"
	"github.com/sarchlab/pktsim/sim/hooking"
	"github.com/sarchlab/pktsim/stats"
	"github.com/sarchlab/pktsim/traffic"
)

// HookPosTickCompleted marks the end of a tick. The hook item is the
// TickReport.
var HookPosTickCompleted = &hooking.HookPos{Name: "Tick Completed"}

// HookPosNodeAdded marks a node joining the node set. The hook item is the
// node snapshot.
var HookPosNodeAdded = &hooking.HookPos{Name: "Node Added"}

// HookPosNodeRemoved marks a node leaving the node set. The hook item is the
// node snapshot taken right before removal.
var HookPosNodeRemoved = &hooking.HookPos{Name: "Node Removed"}

// ErrNoNode is returned when removing from an empty node set.
var ErrNoNode = errors.New("no node to remove")

// TickReport describes what happened in one tick.
type TickReport struct {
	Tick     uint64          `json:"tick"`
	Packet   *network.Packet `json:"packet,omitempty"`
	Admitted bool            `json:"admitted"`
	Reason   string          `json:"reason,omitempty"`
	Drained  int             `json:"drained"`
	Summary  stats.Summary   `json:"summary"`
}

// Generated tells whether a packet was generated in the tick.
func (r TickReport) Generated() bool {
	return r.Packet != nil
}

// Snapshot is a consistent view of the simulation between two ticks.
type Snapshot struct {
	Tick    uint64                 `json:"tick"`
	Nodes   []network.NodeSnapshot `json:"nodes"`
	Summary stats.Summary          `json:"summary"`
}

// NodeDetail is a node snapshot together with the packets it buffers.
type NodeDetail struct {
	network.NodeSnapshot
	Packets []network.Packet `json:"packets"`
}

// A Simulation serializes every access to the node and packet state behind
// one lock. A tick, a structural change, and a snapshot each run as a single
// critical section, so readers only ever see the state between ticks.
//
// Hooks run inside the critical section and must not call back into the
// simulation.
type Simulation struct {
	hooking.HookableBase

	lock sync.Mutex
	tick atomic.Uint64

	runID           string
	defaultCapacity int

	nodes     *network.NodeSet
	generator *traffic.Generator
	router    *network.Router
	drainer   *network.Drainer
	collector *stats.Collector
	packetLog *stats.PacketLog

	log logrus.FieldLogger
}

// RunID returns the unique ID of this run.
func (s *Simulation) RunID() string {
	return s.runID
}

// CurrentTick returns the number of ticks completed, or the number of the
// tick in progress.
func (s *Simulation) CurrentTick() uint64 {
	return s.tick.Load()
}

// DrainPolicy returns the drain policy in use.
func (s *Simulation) DrainPolicy() network.DrainPolicy {
	return s.drainer.Policy()
}

// AcceptHook registers a hook. It takes the simulation lock, so hooks can be
// attached while ticks run.
func (s *Simulation) AcceptHook(hook hooking.Hook) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.HookableBase.AcceptHook(hook)
}

// Router exposes the router so that observers can attach hooks.
func (s *Simulation) Router() *network.Router {
	return s.router
}

// Drainer exposes the drainer so that observers can attach hooks.
func (s *Simulation) Drainer() *network.Drainer {
	return s.drainer
}

// Generator exposes the packet generator so that observers can attach hooks.
func (s *Simulation) Generator() *traffic.Generator {
	return s.generator
}

// Tick runs one generate, route, record, drain cycle atomically.
func (s *Simulation) Tick() TickReport {
	s.lock.Lock()
	defer s.lock.Unlock()

	report := TickReport{Tick: s.tick.Add(1)}

	if p, ok := s.generator.Generate(); ok {
		s.route(p, &report)
	}

	report.Drained = s.drainer.DrainAll()
	report.Summary = stats.Summarize(s.collector.Counters(), s.nodes.Snapshot())

	s.log.WithFields(logrus.Fields{
		"tick":      report.Tick,
		"generated": report.Generated(),
		"admitted":  report.Admitted,
		"drained":   report.Drained,
		"processed": report.Summary.Processed,
		"dropped":   report.Summary.Dropped,
	}).Debug("tick completed")

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosTickCompleted,
			Item:   report,
		})
	}

	return report
}

func (s *Simulation) route(p *network.Packet, report *TickReport) {
	err := s.router.Admit(p)

	report.Packet = p
	report.Admitted = err == nil
	report.Reason = network.DropReason(err)

	s.collector.Record(report.Admitted)

	entry := stats.LogEntry{
		Tick:    report.Tick,
		Packet:  *p,
		Outcome: stats.OutcomeAdmitted,
	}

	if err != nil {
		entry.Outcome = stats.OutcomeDropped
		entry.Reason = report.Reason

		s.log.WithFields(logrus.Fields{
			"packet": p.ID,
			"sender": p.Sender,
			"reason": report.Reason,
		}).Debug("packet dropped")
	}

	s.packetLog.Append(entry)
}

// AddNode appends a node with a synthesized address. A non-positive
// capacity selects the default capacity.
func (s *Simulation) AddNode(capacity int) (network.NodeSnapshot, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.addNode(s.nodes.NextAddress(), capacity)
}

// AddNodeWithAddress appends a node with the given address.
func (s *Simulation) AddNodeWithAddress(
	addr network.Address,
	capacity int,
) (network.NodeSnapshot, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.addNode(addr, capacity)
}

func (s *Simulation) addNode(
	addr network.Address,
	capacity int,
) (network.NodeSnapshot, error) {
	if capacity <= 0 {
		capacity = s.defaultCapacity
	}

	n, err := network.NewNode(addr, capacity)
	if err != nil {
		return network.NodeSnapshot{}, err
	}

	if err := s.nodes.Add(n); err != nil {
		return network.NodeSnapshot{}, err
	}

	snapshot := n.Snapshot()

	s.log.WithFields(logrus.Fields{
		"address":  snapshot.Address,
		"capacity": snapshot.Capacity,
		"nodes":    s.nodes.Len(),
	}).Info("node added")

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosNodeAdded,
			Item:   snapshot,
		})
	}

	return snapshot, nil
}

// RemoveNode removes the most recently added node and its buffer. It
// returns ErrNoNode if there is none.
func (s *Simulation) RemoveNode() (network.NodeSnapshot, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	n, ok := s.nodes.RemoveLast()
	if !ok {
		return network.NodeSnapshot{}, ErrNoNode
	}

	snapshot := n.Snapshot()

	s.log.WithFields(logrus.Fields{
		"address":  snapshot.Address,
		"buffered": snapshot.Size,
		"nodes":    s.nodes.Len(),
	}).Info("node removed")

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosNodeRemoved,
			Item:   snapshot,
		})
	}

	return snapshot, nil
}

// Nodes returns a snapshot of every node in insertion order.
func (s *Simulation) Nodes() []network.NodeSnapshot {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.nodes.Snapshot()
}

// Node returns the detail of one node.
func (s *Simulation) Node(addr network.Address) (NodeDetail, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	n, found := s.nodes.Find(addr)
	if !found {
		return NodeDetail{}, fmt.Errorf("node %s: %w",
			addr, network.ErrUnknownAddress)
	}

	return NodeDetail{
		NodeSnapshot: n.Snapshot(),
		Packets:      n.Packets(),
	}, nil
}

// Packets returns up to limit of the most recent packet log entries, oldest
// first. A non-positive limit returns every retained entry.
func (s *Simulation) Packets(limit int) []stats.LogEntry {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.packetLog.Recent(limit)
}

// Counters returns the processed and dropped counters.
func (s *Simulation) Counters() stats.Counters {
	return s.collector.Counters()
}

// Snapshot returns the node loads and the summary as of the last completed
// tick or structural change.
func (s *Simulation) Snapshot() Snapshot {
	s.lock.Lock()
	defer s.lock.Unlock()

	nodes := s.nodes.Snapshot()

	return Snapshot{
		Tick:    s.tick.Load(),
		Nodes:   nodes,
		Summary: stats.Summarize(s.collector.Counters(), nodes),
	}
}
