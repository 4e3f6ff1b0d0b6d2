package monitoring

import (
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/pktsim/sim/hooking"
	"github.com/sarchlab/pktsim/simulation"
)

// A ProgressBar tracks how many of a fixed number of ticks have completed.
// Attached to a simulation as a hook, it advances on every completed tick.
type ProgressBar struct {
	lock      sync.Mutex
	id        string
	name      string
	startTime time.Time
	total     uint64
	finished  uint64
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// NewProgressBar creates a progress bar that starts now.
func NewProgressBar(name string, total uint64) *ProgressBar {
	return &ProgressBar{
		id:        xid.New().String(),
		name:      name,
		startTime: time.Now(),
		total:     total,
	}
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.finished += amount
}

// Finished returns the number of finished elements.
func (b *ProgressBar) Finished() uint64 {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.finished
}

// Func advances the bar when a tick completes.
func (b *ProgressBar) Func(ctx hooking.HookCtx) {
	if ctx.Pos == simulation.HookPosTickCompleted {
		b.IncrementFinished(1)
	}
}

func (b *ProgressBar) status() progressRsp {
	b.lock.Lock()
	defer b.lock.Unlock()

	return progressRsp{
		ID:        b.id,
		Name:      b.name,
		StartTime: b.startTime,
		Total:     b.total,
		Finished:  b.finished,
	}
}
