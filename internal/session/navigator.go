package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"dailyquiz-client/internal/domain"
)

// Navigation destinations.
const (
	DestHome    = "/"
	DestWinners = "/winners"
	DestPayment = "/payment"
	DestLogin   = "/login"
)

// Navigator runs the fixed "redirecting in 3, 2, 1" countdown out of a
// terminal status and performs exactly one navigation. Scheduling is
// idempotent per status: re-entering the same terminal status does not
// start a second concurrent countdown.
type Navigator struct {
	clock    clockwork.Clock
	step     time.Duration
	steps    int
	onCount  func(stepsLeft int)
	navigate func(dest string)
	log      zerolog.Logger

	mu        sync.Mutex
	active    bool
	forStatus domain.Status
	stop      chan struct{}
}

func NewNavigator(clock clockwork.Clock, step time.Duration, steps int, onCount func(int), navigate func(string), log zerolog.Logger) *Navigator {
	if step <= 0 {
		step = time.Second
	}
	if steps <= 0 {
		steps = 3
	}
	return &Navigator{
		clock:    clock,
		step:     step,
		steps:    steps,
		onCount:  onCount,
		navigate: navigate,
		log:      log.With().Str("component", "navigator").Logger(),
	}
}

// Schedule starts the countdown toward dest for the given terminal status.
// A countdown already running for the same status is left alone; one for a
// different status is replaced, so no two terminal redirects ever compete.
func (n *Navigator) Schedule(status domain.Status, dest string) {
	n.mu.Lock()
	if n.active && n.forStatus == status {
		n.mu.Unlock()
		return
	}
	if n.stop != nil {
		close(n.stop)
	}
	stop := make(chan struct{})
	n.stop = stop
	n.active = true
	n.forStatus = status
	n.mu.Unlock()

	n.log.Debug().Str("status", string(status)).Str("dest", dest).Msg("redirect scheduled")
	go n.run(stop, dest)
}

// Stop cancels any pending countdown without navigating.
func (n *Navigator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stop != nil {
		close(n.stop)
		n.stop = nil
	}
	n.active = false
	n.forStatus = ""
}

func (n *Navigator) run(stop chan struct{}, dest string) {
	timer := n.clock.NewTimer(n.step)
	defer stopAndDrainTimer(timer)

	for left := n.steps; left > 0; left-- {
		select {
		case <-stop:
			return
		default:
		}
		if n.onCount != nil {
			n.onCount(left)
		}
		select {
		case <-timer.Chan():
			if left > 1 {
				timer.Reset(n.step)
			}
		case <-stop:
			return
		}
	}

	select {
	case <-stop:
		return
	default:
	}

	n.mu.Lock()
	n.active = false
	n.stop = nil
	n.mu.Unlock()
	n.navigate(dest)
}
