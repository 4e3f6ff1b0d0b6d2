package simulation

import (
	"sync"
	"time"

	"github.com/sarchlab/pktsim/network"
	"github.com/sarchlab/pktsim/stats"
)

// A Snapshotter produces consistent snapshots.
type Snapshotter interface {
	Snapshot() Snapshot
}

// A LoadBoard holds the most recent snapshot for display. The presentation
// tick refreshes it; readers never touch the live simulation state.
type LoadBoard struct {
	lock        sync.RWMutex
	snapshot    Snapshot
	refreshedAt time.Time
	refreshes   uint64
}

// NewLoadBoard creates an empty board.
func NewLoadBoard() *LoadBoard {
	return &LoadBoard{}
}

// Refresh copies a new snapshot from the source.
func (b *LoadBoard) Refresh(src Snapshotter) {
	snapshot := src.Snapshot()

	b.lock.Lock()
	defer b.lock.Unlock()

	b.snapshot = snapshot
	b.refreshedAt = time.Now()
	b.refreshes++
}

// Snapshot returns the last snapshot.
func (b *LoadBoard) Snapshot() Snapshot {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.snapshot
}

// Nodes returns the node loads of the last snapshot.
func (b *LoadBoard) Nodes() []network.NodeSnapshot {
	b.lock.RLock()
	defer b.lock.RUnlock()

	nodes := make([]network.NodeSnapshot, len(b.snapshot.Nodes))
	copy(nodes, b.snapshot.Nodes)

	return nodes
}

// Summary returns the summary of the last snapshot.
func (b *LoadBoard) Summary() stats.Summary {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.snapshot.Summary
}

// RefreshedAt returns the wall-clock time of the last refresh.
func (b *LoadBoard) RefreshedAt() time.Time {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.refreshedAt
}

// Refreshes returns how many times the board was refreshed.
func (b *LoadBoard) Refreshes() uint64 {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.refreshes
}
