// Package id provides identifier generators.
package id

import (
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator hands out unique, strictly increasing numbers.
type Generator interface {
	Next() uint64
}

// NewSequentialGenerator returns a generator whose first ID is 1.
func NewSequentialGenerator() *SequentialGenerator {
	return &SequentialGenerator{}
}

// SequentialGenerator is a Generator safe for concurrent use.
type SequentialGenerator struct {
	last atomic.Uint64
}

// Next returns the next ID.
func (g *SequentialGenerator) Next() uint64 {
	return g.last.Add(1)
}

// Last returns the most recently generated ID, or 0 if none was generated.
func (g *SequentialGenerator) Last() uint64 {
	return g.last.Load()
}

// RunID returns a globally unique, sortable identifier for one simulation
// run.
func RunID() string {
	return xid.New().String()
}
