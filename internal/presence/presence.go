// Package presence keeps the session timer visible outside of any screen.
// The Controller forwards user actions to the timer and mirrors every tick
// into a Sink for as long as a session is in progress.
package presence

import (
	"log/slog"
	"sync"

	"github.com/emilianohg/studytrack/internal/reactive"
	"github.com/emilianohg/studytrack/internal/timer"
)

// ClickTarget is where the display layer should navigate when the persistent timer is activated.
const ClickTarget = "studytrack://dashboard/session"

// Sink displays the persistent timer. Calls come from a single goroutine.
type Sink interface {
	ShowPersistentTimer(formatted string)
	ClearPersistentTimer()
}

type Controller struct {
	timer *timer.Timer
	sink  Sink
	log   *slog.Logger

	mu       sync.Mutex
	sub      *reactive.Subscription[timer.Snapshot]
	consumer chan struct{}
}

func NewController(t *timer.Timer, sink Sink, log *slog.Logger) *Controller {
	return &Controller{timer: t, sink: sink, log: log}
}

// Handle forwards the action to the timer. START establishes presence if it
// is not already up; CANCEL tears it down after the timer has reset.
func (c *Controller) Handle(action timer.Action) timer.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.timer.Dispatch(action)
	switch action {
	case timer.ActionStart:
		c.establishLocked()
	case timer.ActionCancel:
		c.teardownLocked()
	}
	return snap
}

// Present reports whether the persistent timer is currently shown.
func (c *Controller) Present() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub != nil
}

// Close tears down presence without touching the timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

func (c *Controller) establishLocked() {
	if c.sub != nil {
		return
	}
	sub := c.timer.Subscribe()
	done := make(chan struct{})
	c.sub, c.consumer = sub, done

	go func() {
		defer close(done)
		for snap := range sub.C {
			if snap.State == timer.StateIdle {
				continue
			}
			// Nothing to show for a session paused before its first tick.
			if snap.State == timer.StateStopped && snap.ElapsedSeconds == 0 {
				c.sink.ClearPersistentTimer()
				continue
			}
			c.sink.ShowPersistentTimer(snap.Formatted)
		}
	}()
	c.log.Debug("timer presence established")
}

func (c *Controller) teardownLocked() {
	if c.sub == nil {
		return
	}
	c.sub.Close()
	<-c.consumer
	c.sub, c.consumer = nil, nil

	c.sink.ClearPersistentTimer()
	c.log.Debug("timer presence cleared")
}

// Binding lets a screen read live timer values and issue actions. Detaching
// never affects the timer or the presence.
type Binding struct {
	c    *Controller
	sub  *reactive.Subscription[timer.Snapshot]
	once sync.Once
}

func (c *Controller) Attach() *Binding {
	return &Binding{c: c, sub: c.timer.Subscribe()}
}

// Updates replays the current snapshot and then delivers every tick.
func (b *Binding) Updates() <-chan timer.Snapshot { return b.sub.C }

func (b *Binding) Current() timer.Snapshot { return b.c.timer.Snapshot() }

func (b *Binding) Handle(action timer.Action) timer.Snapshot { return b.c.Handle(action) }

func (b *Binding) Bind(subjectID int64) timer.Snapshot { return b.c.timer.Bind(subjectID) }

func (b *Binding) Detach() {
	b.once.Do(b.sub.Close)
}
