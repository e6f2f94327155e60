package slotclock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClock_FirstSlotAndMonotonic(t *testing.T) {
	genesis := time.Unix(0, 0)
	now := genesis.Add(25 * time.Second) // 2 slots + 1s into slot 2, at 12s/slot

	afterCh := make(chan time.Time, 1)
	afterCh <- time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc := &Clock{c: make(chan Slot)}
	tf := timeFuncs{
		now: func() time.Time { return now },
		after: func(d time.Duration) <-chan time.Time {
			ch := make(chan time.Time, 1)
			ch <- now.Add(d)
			return ch
		},
	}
	go sc.run(ctx, genesis, 12*time.Second, tf)

	first := <-sc.C()
	require.Equal(t, int64(3), first.Number)
	require.Equal(t, genesis.Add(36*time.Second), first.Start)

	second := <-sc.C()
	require.Equal(t, int64(4), second.Number)
	require.True(t, second.Start.After(first.Start))
}

func TestClock_PreGenesisSlotsAreNegative(t *testing.T) {
	genesis := time.Unix(1000, 0)
	now := time.Unix(940, 0) // 60s before genesis, at 12s/slot => slot -4

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc := &Clock{c: make(chan Slot)}
	tf := timeFuncs{
		now: func() time.Time { return now },
		after: func(d time.Duration) <-chan time.Time {
			ch := make(chan time.Time, 1)
			ch <- now.Add(d)
			return ch
		},
	}
	go sc.run(ctx, genesis, 12*time.Second, tf)

	first := <-sc.C()
	require.Less(t, first.Number, int64(0))
	require.Equal(t, genesis.Add(time.Duration(first.Number)*12*time.Second), first.Start)
}

func TestClock_CancelUnblocksSleep(t *testing.T) {
	genesis := time.Now().Add(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	sc := New(ctx, genesis, 12)
	cancel()

	select {
	case _, ok := <-sc.C():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("clock did not unblock on cancellation")
	}
}
