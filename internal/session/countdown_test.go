package session

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestRemainingSecondsIsPureFunctionOfServerTime(t *testing.T) {
	base := time.UnixMilli(1700000000000)
	start := base.UnixMilli()

	// Question started 5s ago with a 15s budget.
	if got := RemainingSeconds(base.Add(5*time.Second), start, 15000); got != 10 {
		t.Fatalf("expected 10 remaining, got %d", got)
	}
	// Mid-second elapses round up.
	if got := RemainingSeconds(base.Add(4500*time.Millisecond), start, 15000); got != 11 {
		t.Fatalf("expected 11 remaining, got %d", got)
	}
	if got := RemainingSeconds(base, start, 15000); got != 15 {
		t.Fatalf("expected 15 remaining, got %d", got)
	}
	// Already over budget clamps at zero, even far past.
	if got := RemainingSeconds(base.Add(time.Hour), start, 15000); got != 0 {
		t.Fatalf("expected 0 remaining, got %d", got)
	}
}

func TestRemainingSecondsNonIncreasing(t *testing.T) {
	base := time.UnixMilli(1700000000000)
	prev := RemainingSeconds(base, base.UnixMilli(), 15000)
	for ms := int64(0); ms <= 20000; ms += 137 {
		got := RemainingSeconds(base.Add(time.Duration(ms)*time.Millisecond), base.UnixMilli(), 15000)
		if got > prev {
			t.Fatalf("remaining increased from %d to %d at +%dms", prev, got, ms)
		}
		prev = got
	}
}

func TestCountdownTicksAndExpiresOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cd := NewCountdown(clock, time.Second)

	ticks := make(chan int, 16)
	expired := make(chan struct{}, 4)
	start := clock.Now().UnixMilli()
	cd.Start(start, 3000, func(r int) { ticks <- r }, func() { expired <- struct{}{} })

	if got := recvTick(t, ticks); got != 3 {
		t.Fatalf("expected first tick 3, got %d", got)
	}

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	if got := recvTick(t, ticks); got != 2 {
		t.Fatalf("expected tick 2, got %d", got)
	}

	clock.Advance(time.Second)
	if got := recvTick(t, ticks); got != 1 {
		t.Fatalf("expected tick 1, got %d", got)
	}

	clock.Advance(time.Second)
	if got := recvTick(t, ticks); got != 0 {
		t.Fatalf("expected final tick 0, got %d", got)
	}
	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected expiry")
	}

	// The loop stopped: no further expiry even as time marches on.
	clock.Advance(5 * time.Second)
	select {
	case <-expired:
		t.Fatalf("expiry fired twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartReplacesPriorLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cd := NewCountdown(clock, time.Second)

	oldExpired := make(chan struct{}, 1)
	start := clock.Now().UnixMilli()
	cd.Start(start, 60_000, func(int) {}, func() { oldExpired <- struct{}{} })

	newTicks := make(chan int, 16)
	newExpired := make(chan struct{}, 1)
	cd.Start(start, 2000, func(r int) { newTicks <- r }, func() { newExpired <- struct{}{} })

	if got := recvTick(t, newTicks); got != 2 {
		t.Fatalf("expected tick 2 from replacement, got %d", got)
	}

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	if got := recvTick(t, newTicks); got != 1 {
		t.Fatalf("expected tick 1, got %d", got)
	}
	clock.Advance(time.Second)
	if got := recvTick(t, newTicks); got != 0 {
		t.Fatalf("expected tick 0, got %d", got)
	}
	select {
	case <-newExpired:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected replacement loop to expire")
	}
	select {
	case <-oldExpired:
		t.Fatalf("replaced loop must never expire")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStopCancelsLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cd := NewCountdown(clock, time.Second)

	expired := make(chan struct{}, 1)
	ticks := make(chan int, 16)
	cd.Start(clock.Now().UnixMilli(), 2000, func(r int) { ticks <- r }, func() { expired <- struct{}{} })
	recvTick(t, ticks)

	cd.Stop()
	clock.Advance(10 * time.Second)
	select {
	case <-expired:
		t.Fatalf("stopped countdown must not expire")
	case <-time.After(50 * time.Millisecond):
	}
}

func recvTick(t *testing.T, ticks chan int) int {
	t.Helper()
	select {
	case r := <-ticks:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for tick")
		return -1
	}
}
