package datarecording

import (
	"fmt"

	"github.com/sarchlab/pktsim/network"
	"github.com/sarchlab/pktsim/sim/hooking"
	"github.com/sarchlab/pktsim/simulation"
)

// PacketRow is one generated packet and what happened to it.
type PacketRow struct {
	RunID    string
	Tick     int64
	PacketID int64
	Sender   string
	Receiver string
	Size     int64
	Type     string
	Priority string
	Outcome  string
	Reason   string
}

// TickRow is the state of the simulation at the end of a tick. Admitted is
// only meaningful when Generated is set.
type TickRow struct {
	RunID     string
	Tick      int64
	Generated bool
	Admitted  bool
	Drained   int64
	Processed int64
	Dropped   int64
	Nodes     int64
	Buffered  int64
	MeanLoad  float64
	MaxLoad   float64
}

// NodeEventRow records a node joining or leaving the node set.
type NodeEventRow struct {
	RunID    string
	Tick     int64
	Event    string
	Address  string
	Capacity int64
	Buffered int64
}

// A SimulationTracer is a hook that records ticks, packets, and node events
// of one simulation.
type SimulationTracer struct {
	recorder DataRecorder
	runID    string
	err      error
}

// NewSimulationTracer creates the tables it writes to and returns the
// tracer.
func NewSimulationTracer(
	recorder DataRecorder,
	runID string,
) (*SimulationTracer, error) {
	t := &SimulationTracer{
		recorder: recorder,
		runID:    runID,
	}

	tables := []struct {
		name   string
		sample any
	}{
		{"packets", PacketRow{}},
		{"ticks", TickRow{}},
		{"node_events", NodeEventRow{}},
	}

	for _, tbl := range tables {
		if err := recorder.CreateTable(tbl.name, tbl.sample); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Attach registers the tracer with the simulation.
func (t *SimulationTracer) Attach(sim *simulation.Simulation) {
	sim.AcceptHook(t)
}

// Err returns the first error met while recording, if any.
func (t *SimulationTracer) Err() error {
	return t.err
}

// Func records the hook item according to the hook position.
func (t *SimulationTracer) Func(ctx hooking.HookCtx) {
	var err error

	switch ctx.Pos {
	case simulation.HookPosTickCompleted:
		err = t.recordTick(ctx.Item.(simulation.TickReport))
	case simulation.HookPosNodeAdded:
		err = t.recordNodeEvent(ctx, "added")
	case simulation.HookPosNodeRemoved:
		err = t.recordNodeEvent(ctx, "removed")
	}

	if err != nil && t.err == nil {
		t.err = err
	}
}

func (t *SimulationTracer) recordTick(report simulation.TickReport) error {
	if p := report.Packet; p != nil {
		outcome := "admitted"
		if !report.Admitted {
			outcome = "dropped"
		}

		row := PacketRow{
			RunID:    t.runID,
			Tick:     int64(report.Tick),
			PacketID: int64(p.ID),
			Sender:   string(p.Sender),
			Receiver: string(p.Receiver),
			Size:     int64(p.Size),
			Type:     p.Type.String(),
			Priority: p.Priority.String(),
			Outcome:  outcome,
			Reason:   report.Reason,
		}

		if err := t.recorder.InsertData("packets", row); err != nil {
			return err
		}
	}

	s := report.Summary

	return t.recorder.InsertData("ticks", TickRow{
		RunID:     t.runID,
		Tick:      int64(report.Tick),
		Generated: report.Generated(),
		Admitted:  report.Admitted,
		Drained:   int64(report.Drained),
		Processed: int64(s.Processed),
		Dropped:   int64(s.Dropped),
		Nodes:     int64(s.Nodes),
		Buffered:  int64(s.Buffered),
		MeanLoad:  s.MeanLoad,
		MaxLoad:   s.MaxLoad,
	})
}

func (t *SimulationTracer) recordNodeEvent(
	ctx hooking.HookCtx,
	event string,
) error {
	node, ok := ctx.Item.(network.NodeSnapshot)
	if !ok {
		return fmt.Errorf("node %s event: unexpected item %T", event, ctx.Item)
	}

	var tick uint64
	if sim, ok := ctx.Domain.(*simulation.Simulation); ok {
		tick = sim.CurrentTick()
	}

	return t.recorder.InsertData("node_events", NodeEventRow{
		RunID:    t.runID,
		Tick:     int64(tick),
		Event:    event,
		Address:  string(node.Address),
		Capacity: int64(node.Capacity),
		Buffered: int64(node.Size),
	})
}
