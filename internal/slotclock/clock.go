// Package slotclock produces a lazy, infinite sequence of (slot,
// slot_start_time) pairs aligned to a beacon chain's genesis time.
package slotclock

import (
	"context"
	"time"
)

// Slot pairs a slot number (which may be negative, pre-genesis) with its
// wall-clock start time.
type Slot struct {
	Number int64
	Start  time.Time
}

// Clock emits Slot values on C strictly monotonically, sleeping until
// each slot's start time; if that moment has already passed it emits
// immediately, guaranteeing no slot is ever skipped under load.
type Clock struct {
	c chan Slot
}

// C returns the channel slots are emitted on.
func (sc *Clock) C() <-chan Slot {
	return sc.c
}

// timeFuncs groups the injectable time sources used for deterministic
// testing; production code uses New, which wires real time.Now/time.After.
type timeFuncs struct {
	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

// New starts a Clock ticking against genesisTime with the given slot
// duration. The returned Clock must eventually have its context
// cancelled to free the background goroutine.
func New(ctx context.Context, genesisTime time.Time, secondsPerSlot uint64) *Clock {
	return newWithTimeFuncs(ctx, genesisTime, secondsPerSlot, timeFuncs{
		now:   time.Now,
		after: time.After,
	})
}

func newWithTimeFuncs(ctx context.Context, genesisTime time.Time, secondsPerSlot uint64, tf timeFuncs) *Clock {
	sc := &Clock{c: make(chan Slot)}
	slotDuration := time.Duration(secondsPerSlot) * time.Second
	go sc.run(ctx, genesisTime, slotDuration, tf)
	return sc
}

func (sc *Clock) run(ctx context.Context, genesisTime time.Time, slotDuration time.Duration, tf timeFuncs) {
	defer close(sc.c)

	sinceGenesis := tf.now().Sub(genesisTime)
	current := int64(sinceGenesis / slotDuration)
	if sinceGenesis < 0 && sinceGenesis%slotDuration != 0 {
		current-- // floor, not truncation toward zero, before genesis
	}
	next := current + 1

	for {
		start := genesisTime.Add(time.Duration(next) * slotDuration)
		wait := start.Sub(tf.now())
		if wait > 0 {
			select {
			case <-tf.after(wait):
			case <-ctx.Done():
				return
			}
		}

		select {
		case sc.c <- Slot{Number: next, Start: start}:
		case <-ctx.Done():
			return
		}
		next++
	}
}
