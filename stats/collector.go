// Package stats accumulates the lifetime counters of a simulation and keeps
// the recent packet log.
package stats

import "sync/atomic"

// Counters is a point-in-time copy of the collector.
type Counters struct {
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
}

// Generated is the number of packets classified so far.
func (c Counters) Generated() uint64 {
	return c.Processed + c.Dropped
}

// A Collector counts processed and dropped packets. Exactly one of the two
// record methods is called per generated packet. The counters only grow.
type Collector struct {
	processed atomic.Uint64
	dropped   atomic.Uint64
}

// NewCollector creates a zeroed collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordProcessed counts one admitted packet.
func (c *Collector) RecordProcessed() {
	c.processed.Add(1)
}

// RecordDropped counts one rejected packet.
func (c *Collector) RecordDropped() {
	c.dropped.Add(1)
}

// Record counts one packet according to the routing outcome.
func (c *Collector) Record(admitted bool) {
	if admitted {
		c.RecordProcessed()
		return
	}

	c.RecordDropped()
}

// Processed returns the number of admitted packets.
func (c *Collector) Processed() uint64 {
	return c.processed.Load()
}

// Dropped returns the number of rejected packets.
func (c *Collector) Dropped() uint64 {
	return c.dropped.Load()
}

// Counters copies both counters.
func (c *Collector) Counters() Counters {
	return Counters{
		Processed: c.processed.Load(),
		Dropped:   c.dropped.Load(),
	}
}
