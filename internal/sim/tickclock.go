// internal/sim/tickclock.go

package sim

import (
	"sync"
	"sync/atomic"
	"time"
)

// TickClock paces the simulator against wall time. A tick that finds the
// previous one still unconsumed is counted as missed instead of queued.
type TickClock struct {
	C <-chan struct{}

	ch       chan struct{}
	elapsed  atomic.Int64
	missed   atomic.Int64
	done     chan struct{}
	stopOnce sync.Once
}

// NewTickClock starts a clock ticking every interval.
func NewTickClock(interval time.Duration) *TickClock {
	ch := make(chan struct{}, 1)
	c := &TickClock{C: ch, ch: ch, done: make(chan struct{})}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.elapsed.Add(1)
				select {
				case c.ch <- struct{}{}:
				default:
					c.missed.Add(1)
				}
			case <-c.done:
				return
			}
		}
	}()
	return c
}

// Stop halts the clock. C is not closed.
func (c *TickClock) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Elapsed returns the number of ticks since start.
func (c *TickClock) Elapsed() int64 { return c.elapsed.Load() }

// Missed returns the number of ticks dropped because the consumer lagged.
func (c *TickClock) Missed() int64 { return c.missed.Load() }
