// Package clock drives per-game turn deadlines.
//
// A Clock keeps at most one timer per game. Each timer is tagged with the
// turn sequence number it was started for, and the handler receives that
// number back on expiry so the game can discard an expiry that lost the race
// against a player action. Ticks are delivered on a separate interval while a
// timer is armed.
package clock

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Handler receives timer callbacks. Callbacks run on timer goroutines and
// never while the clock's own lock is held.
type Handler interface {
	TurnExpired(gameID int64, seq uint64)
	TimerTick(gameID int64, seq uint64, remaining time.Duration)
}

// Clock schedules turn expiries for many games
type Clock struct {
	mu      sync.Mutex
	handler Handler
	timers  map[int64]*turnTimer
	log     logrus.FieldLogger
}

type turnTimer struct {
	seq      uint64
	deadline time.Time
	expire   *time.Timer
	done     chan struct{}
}

// New creates a clock. Bind must be called before the first Start.
func New(log logrus.FieldLogger) *Clock {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Clock{
		timers: make(map[int64]*turnTimer),
		log:    log.WithField("component", "clock"),
	}
}

// Bind sets the handler that receives expiries and ticks
func (c *Clock) Bind(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Start arms the timer of a game for turn seq, replacing any previous timer.
// A timer armed for a later turn is kept. A non-positive duration only stops
// the current timer.
func (c *Clock) Start(gameID int64, seq uint64, duration, tick time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.timers[gameID]; ok && cur.seq > seq {
		return
	}
	c.stopLocked(gameID)
	if duration <= 0 || c.handler == nil {
		return
	}

	t := &turnTimer{
		seq:      seq,
		deadline: time.Now().Add(duration),
		done:     make(chan struct{}),
	}
	t.expire = time.AfterFunc(duration, func() { c.fire(gameID, t) })
	c.timers[gameID] = t

	if tick > 0 && tick < duration {
		go c.tickLoop(gameID, t, tick, c.handler)
	}

	c.log.WithFields(logrus.Fields{
		"game_id":  gameID,
		"turn_seq": seq,
		"duration": duration,
	}).Debug("turn timer armed")
}

// Stop cancels the timer of a game
func (c *Clock) Stop(gameID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked(gameID)
}

// StopAll cancels every timer
func (c *Clock) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.timers {
		c.stopLocked(id)
	}
}

// Deadline returns the armed deadline and turn sequence of a game
func (c *Clock) Deadline(gameID int64) (time.Time, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.timers[gameID]
	if !ok {
		return time.Time{}, 0, false
	}
	return t.deadline, t.seq, true
}

// Active returns the number of armed timers
func (c *Clock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Clock) stopLocked(gameID int64) {
	t, ok := c.timers[gameID]
	if !ok {
		return
	}
	t.expire.Stop()
	close(t.done)
	delete(c.timers, gameID)
}

func (c *Clock) fire(gameID int64, t *turnTimer) {
	c.mu.Lock()
	current, ok := c.timers[gameID]
	if !ok || current != t {
		// Replaced or stopped while the timer was firing
		c.mu.Unlock()
		return
	}
	close(t.done)
	delete(c.timers, gameID)
	h := c.handler
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"game_id": gameID, "turn_seq": t.seq}).Debug("turn timer expired")
	h.TurnExpired(gameID, t.seq)
}

func (c *Clock) tickLoop(gameID int64, t *turnTimer, interval time.Duration, h Handler) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			remaining := time.Until(t.deadline)
			if remaining <= 0 {
				return
			}
			h.TimerTick(gameID, t.seq, remaining)
		}
	}
}
