package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"dailyquiz-client/internal/channel"
	"dailyquiz-client/internal/domain"
)

const (
	// DefaultDebounce is the minimum interval between successive join attempts.
	DefaultDebounce = 2000 * time.Millisecond
	// DefaultRetryDelay is the wait before the single scheduled retry after
	// an already-connected rejection or a force-disconnect.
	DefaultRetryDelay = 1000 * time.Millisecond
)

// Channel is what the connector needs from an open duplex channel.
type Channel interface {
	Send(cmd channel.CommandType, payload any) error
	Close() error
}

// Dialer opens the channel and wires its events back to the coordinator.
type Dialer func(ctx context.Context) (Channel, error)

// DeviceIDSource supplies the stable per-device identifier.
type DeviceIDSource interface {
	GetOrCreate(ctx context.Context) string
}

// Connector owns the channel lifecycle: it is the only component that may
// open, close or join it. The state machine issues intents and never
// touches the transport.
type Connector struct {
	clock    clockwork.Clock
	debounce time.Duration
	dial     Dialer
	devices  DeviceIDSource
	log      zerolog.Logger

	mu          sync.Mutex
	ch          Channel
	connecting  bool
	lastAttempt time.Time
	pending     clockwork.Timer
	pendingStop chan struct{}
	closed      bool
}

func NewConnector(clock clockwork.Clock, debounce time.Duration, devices DeviceIDSource, dial Dialer, log zerolog.Logger) *Connector {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Connector{
		clock:    clock,
		debounce: debounce,
		dial:     dial,
		devices:  devices,
		log:      log.With().Str("component", "connector").Logger(),
	}
}

// RequestJoin establishes, authenticates and joins the channel for the
// (quizID, userID) pair. A request while another is being established is
// dropped; a request inside the debounce window is deferred to the window
// boundary, replacing any previously deferred request.
func (c *Connector) RequestJoin(ctx context.Context, quizID, userID string) {
	if quizID == "" || userID == "" {
		c.log.Warn().Str("quizId", quizID).Str("userId", userID).
			Msg("join requested without quiz or participant id, ignoring")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.connecting {
		c.mu.Unlock()
		c.log.Debug().Msg("join already in progress, dropping request")
		return
	}

	c.cancelPendingLocked()

	now := c.clock.Now()
	if since := now.Sub(c.lastAttempt); since < c.debounce {
		delay := c.debounce - since
		c.schedulePendingLocked(ctx, quizID, userID, delay)
		c.mu.Unlock()
		c.log.Debug().Dur("delay", delay).Msg("join debounced")
		return
	}

	c.lastAttempt = now
	c.connecting = true
	c.mu.Unlock()

	deviceID := c.devices.GetOrCreate(ctx)

	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()

	if ch == nil {
		opened, err := c.dial(ctx)
		if err != nil {
			c.log.Warn().Err(err).Msg("channel dial failed")
			c.mu.Lock()
			c.connecting = false
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = opened.Close()
			return
		}
		c.ch = opened
		ch = opened
		c.mu.Unlock()
	}

	cmd := channel.JoinCommand{QuizID: quizID, UserID: userID, DeviceID: deviceID}
	if err := ch.Send(channel.CommandJoin, cmd); err != nil {
		c.log.Warn().Err(err).Msg("join command failed")
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
		return
	}
	c.log.Info().Str("quizId", quizID).Str("deviceId", deviceID).Msg("join command sent")
}

// ScheduleRetry defers a join attempt by delay, replacing any pending one.
// Used for the single retry after already-connected and force-disconnect.
func (c *Connector) ScheduleRetry(ctx context.Context, quizID, userID string, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cancelPendingLocked()
	c.schedulePendingLocked(ctx, quizID, userID, delay)
}

// JoinSettled clears the in-flight flag once the server answered the join,
// whether with an acknowledgement or a rejection.
func (c *Connector) JoinSettled() {
	c.mu.Lock()
	c.connecting = false
	c.mu.Unlock()
}

// TransportClosed drops the channel reference after the transport failed or
// was closed remotely. The next join attempt re-dials.
func (c *Connector) TransportClosed() {
	c.mu.Lock()
	c.ch = nil
	c.connecting = false
	c.mu.Unlock()
}

// Reset closes the channel so the next join attempt re-dials. Used when the
// server force-disconnects this client.
func (c *Connector) Reset() {
	c.mu.Lock()
	ch := c.ch
	c.ch = nil
	c.connecting = false
	c.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
}

// Submit sends the answer command over the open channel.
func (c *Connector) Submit(cmd channel.SubmitAnswerCommand) error {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	if ch == nil {
		return domain.ErrNotConnected
	}
	return ch.Send(channel.CommandSubmitAnswer, cmd)
}

// Close cancels any pending retry and closes the channel. The connector is
// unusable afterwards.
func (c *Connector) Close() {
	c.mu.Lock()
	c.closed = true
	c.cancelPendingLocked()
	ch := c.ch
	c.ch = nil
	c.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
}

// schedulePendingLocked arms the single retry slot. Caller holds mu.
func (c *Connector) schedulePendingLocked(ctx context.Context, quizID, userID string, delay time.Duration) {
	timer := c.clock.NewTimer(delay)
	stop := make(chan struct{})
	c.pending = timer
	c.pendingStop = stop

	go func() {
		select {
		case <-timer.Chan():
			// The fire can race a concurrent cancel or replace; only the
			// goroutine still holding the slot may proceed.
			c.mu.Lock()
			live := c.pending == timer
			if live {
				c.pending = nil
				c.pendingStop = nil
			}
			c.mu.Unlock()
			if live {
				c.RequestJoin(ctx, quizID, userID)
			}
		case <-stop:
			stopAndDrainTimer(timer)
		}
	}()
}

// cancelPendingLocked disarms the retry slot. Caller holds mu.
func (c *Connector) cancelPendingLocked() {
	if c.pendingStop != nil {
		close(c.pendingStop)
		c.pendingStop = nil
		c.pending = nil
	}
}

// stopAndDrainTimer stops a timer and drains its channel so the goroutine
// waiting on it cannot leak a stale fire.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
