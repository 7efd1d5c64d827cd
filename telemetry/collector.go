package telemetry

import (
	"time"

	"github.com/pthm-cable/galapagotchi/clock"
	"github.com/pthm-cable/galapagotchi/evolution"
)

// Collector counts frames between generation reports and turns each report
// into GenerationStats.
type Collector struct {
	clock clock.Clock

	frame int64 // total frames

	// Counters for the current generation
	frames     int64
	iterations int64
	started    time.Time
}

// NewCollector creates a collector measuring elapsed time on c.
func NewCollector(c clock.Clock) *Collector {
	return &Collector{clock: c, started: c.Now()}
}

// RecordFrame records one driver frame.
func (c *Collector) RecordFrame() {
	c.frame++
	c.frames++
}

// RecordIteration records one engine iteration that advanced evolvers.
func (c *Collector) RecordIteration() {
	c.iterations++
}

// Frame returns the total number of frames recorded.
func (c *Collector) Frame() int64 {
	return c.frame
}

// Flush produces the stats for a completed generation and resets the
// per-generation counters.
func (c *Collector) Flush(r evolution.GenerationReport) GenerationStats {
	now := c.clock.Now()
	stats := NewGenerationStats(r)
	stats.Frame = c.frame
	stats.Frames = c.frames
	stats.Iterations = c.iterations
	stats.ElapsedSec = now.Sub(c.started).Seconds()

	c.frames = 0
	c.iterations = 0
	c.started = now
	return stats
}
