package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/pktsim/logging"
)

// A Scheduler drives two independent periodic loops: the simulation tick,
// which mutates state, and the presentation tick, which refreshes the load
// board. Each loop runs in its own goroutine, so a tick never overlaps with
// the next tick of the same loop.
type Scheduler struct {
	sim   *Simulation
	board *LoadBoard
	log   logrus.FieldLogger

	tickInterval         time.Duration
	presentationInterval time.Duration
	maxTicks             uint64
}

// NewScheduler creates a scheduler with the 1s simulation and 100ms
// presentation intervals.
func NewScheduler(sim *Simulation, board *LoadBoard) *Scheduler {
	return &Scheduler{
		sim:                  sim,
		board:                board,
		log:                  logging.Component(sim.log, "scheduler"),
		tickInterval:         time.Second,
		presentationInterval: 100 * time.Millisecond,
	}
}

// WithTickInterval sets the simulation tick interval.
func (s *Scheduler) WithTickInterval(d time.Duration) *Scheduler {
	s.tickInterval = d
	return s
}

// WithPresentationInterval sets the presentation tick interval.
func (s *Scheduler) WithPresentationInterval(d time.Duration) *Scheduler {
	s.presentationInterval = d
	return s
}

// WithMaxTicks stops the scheduler after n simulation ticks. Zero means run
// until the context is cancelled.
func (s *Scheduler) WithMaxTicks(n uint64) *Scheduler {
	s.maxTicks = n
	return s
}

// Run blocks until ctx is cancelled or the tick limit is reached.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.tickInterval <= 0 || s.presentationInterval <= 0 {
		return fmt.Errorf("tick intervals must be positive, got %s and %s",
			s.tickInterval, s.presentationInterval)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.board.Refresh(s.sim)

	s.log.WithFields(logrus.Fields{
		"tick_interval":         s.tickInterval,
		"presentation_interval": s.presentationInterval,
		"drain_policy":          s.sim.DrainPolicy(),
	}).Info("scheduler started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.runSimulationLoop(gctx)
	})
	g.Go(func() error {
		return s.runPresentationLoop(gctx)
	})

	err := g.Wait()

	s.board.Refresh(s.sim)
	s.log.WithField("ticks", s.sim.CurrentTick()).Info("scheduler stopped")

	return err
}

func (s *Scheduler) runSimulationLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	var ticks uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sim.Tick()
			ticks++

			if s.maxTicks > 0 && ticks >= s.maxTicks {
				return nil
			}
		}
	}
}

func (s *Scheduler) runPresentationLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.presentationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.board.Refresh(s.sim)
		}
	}
}
