// Package clock provides the wall-clock-driven slot schedule the duty
// engine is ticked by (spec §6, "BeaconClock"). Shape follows the teacher's
// beacon-chain/utils.SlotTicker: a goroutine that sleeps until the next
// slot boundary (truncated against genesis, not accumulated drift) and
// emits the new slot number on a channel.
package clock

import (
	"time"

	types "github.com/prysmaticlabs/eth2-types"
	"github.com/attestval/duties/params"
)

// BeaconClock converts between wall-clock time and slot numbers relative to
// a fixed genesis instant.
type BeaconClock struct {
	genesisTime time.Time
}

// New constructs a BeaconClock anchored at genesisTime.
func New(genesisTime time.Time) *BeaconClock {
	return &BeaconClock{genesisTime: genesisTime}
}

// GenesisTime returns the clock's genesis instant.
func (c *BeaconClock) GenesisTime() time.Time { return c.genesisTime }

// Now returns the current slot, clamped to zero before genesis.
func (c *BeaconClock) Now() types.Slot {
	since := time.Since(c.genesisTime)
	if since < 0 {
		return 0
	}
	return types.Slot(uint64(since / params.SlotDuration()))
}

// SlotStart returns the wall-clock instant at which slot begins.
func (c *BeaconClock) SlotStart(slot types.Slot) time.Time {
	return c.genesisTime.Add(time.Duration(uint64(slot)) * params.SlotDuration())
}

// FromNow returns the duration remaining until deadline, zero if already
// past. Named to mirror spec §6's `fromNow(deadline)`.
func (c *BeaconClock) FromNow(deadline time.Time) time.Duration {
	d := time.Until(deadline)
	if d < 0 {
		return 0
	}
	return d
}

// SlotTicker emits each new slot number at (or immediately after) its
// start time. The wait is always truncated against genesis so ticks never
// accumulate drift across long-running processes.
type SlotTicker struct {
	c    chan types.Slot
	done chan struct{}
}

// C returns the tick channel. Call Done when finished to stop the
// goroutine cleanly.
func (s *SlotTicker) C() <-chan types.Slot { return s.c }

// Done stops the ticker goroutine.
func (s *SlotTicker) Done() {
	close(s.done)
}

// NewSlotTicker starts a SlotTicker anchored at genesisTime.
func NewSlotTicker(genesisTime time.Time) *SlotTicker {
	t := &SlotTicker{
		c:    make(chan types.Slot),
		done: make(chan struct{}),
	}
	t.start(genesisTime, params.SlotDuration(), time.Since, time.Until, time.After)
	return t
}

func (s *SlotTicker) start(
	genesisTime time.Time,
	d time.Duration,
	since func(time.Time) time.Duration,
	until func(time.Time) time.Duration,
	after func(time.Duration) <-chan time.Time,
) {
	go func() {
		sinceGenesis := since(genesisTime)

		var nextTickTime time.Time
		var slot types.Slot
		if sinceGenesis < 0 {
			nextTickTime = genesisTime
			slot = 0
		} else {
			nextTick := sinceGenesis.Truncate(d) + d
			nextTickTime = genesisTime.Add(nextTick)
			slot = types.Slot(uint64(nextTick / d))
		}

		for {
			waitTime := until(nextTickTime)
			select {
			case <-after(waitTime):
				select {
				case s.c <- slot:
				case <-s.done:
					return
				}
				slot++
				nextTickTime = nextTickTime.Add(d)
			case <-s.done:
				return
			}
		}
	}()
}
