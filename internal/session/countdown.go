package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// defaultFrameInterval is how often the countdown recomputes remaining time.
const defaultFrameInterval = 100 * time.Millisecond

// RemainingSeconds derives the displayed remaining time for a question from
// the server-supplied start epoch and duration. It is a pure function of
// those two constants and the current wall clock; nothing is ever
// decremented, so skipped frames or a backgrounded process cannot drift it.
func RemainingSeconds(now time.Time, startEpochMs, durationMs int64) int {
	elapsed := now.UnixMilli() - startEpochMs
	remaining := (durationMs - elapsed + 999) / 1000 // ceil
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// Countdown runs the per-question timer loop. At most one loop is active at
// a time: Start replaces any prior run, Stop cancels the current one.
type Countdown struct {
	clock clockwork.Clock
	frame time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

func NewCountdown(clock clockwork.Clock, frame time.Duration) *Countdown {
	if frame <= 0 {
		frame = defaultFrameInterval
	}
	return &Countdown{clock: clock, frame: frame}
}

// Start begins a new countdown loop, cancelling any previous one. onTick is
// invoked once per frame with the freshly recomputed remaining seconds;
// when it reaches zero the loop invokes onExpire exactly once and stops.
func (c *Countdown) Start(startEpochMs, durationMs int64, onTick func(int), onExpire func()) {
	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
	}
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go c.run(stop, startEpochMs, durationMs, onTick, onExpire)
}

// Stop cancels the active loop, if any.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Countdown) run(stop chan struct{}, startEpochMs, durationMs int64, onTick func(int), onExpire func()) {
	ticker := c.clock.NewTicker(c.frame)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		default:
		}

		remaining := RemainingSeconds(c.clock.Now(), startEpochMs, durationMs)
		onTick(remaining)
		if remaining <= 0 {
			onExpire()
			return
		}

		select {
		case <-ticker.Chan():
		case <-stop:
			return
		}
	}
}
