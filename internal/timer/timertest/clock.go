// Package timertest provides a manually driven clock for timer tests.
package timertest

import (
	"sync"
	"time"

	"github.com/emilianohg/studytrack/internal/timer"
)

// Clock hands out tickers that only fire when Tick is called.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*ticker
	created int
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *Clock) NewTicker(d time.Duration) timer.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &ticker{c: make(chan time.Time), stopped: make(chan struct{})}
	c.tickers = append(c.tickers, t)
	c.created++
	return t
}

// Tick advances the clock by one second and hands the time to every live
// ticker. It returns once each live ticker's reader has received it, so the
// number returned is the number of deliveries.
func (c *Clock) Tick() int {
	c.mu.Lock()
	c.now = c.now.Add(time.Second)
	now := c.now
	live := c.liveLocked()
	c.mu.Unlock()

	delivered := 0
	for _, t := range live {
		select {
		case t.c <- now:
			delivered++
		case <-t.stopped:
		}
	}
	return delivered
}

// TickN calls Tick n times and returns the total number of deliveries.
func (c *Clock) TickN(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += c.Tick()
	}
	return total
}

// Active reports how many tickers have not been stopped.
func (c *Clock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.liveLocked())
}

// Created reports how many tickers were ever created.
func (c *Clock) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

func (c *Clock) liveLocked() []*ticker {
	live := c.tickers[:0]
	for _, t := range c.tickers {
		if !t.isStopped() {
			live = append(live, t)
		}
	}
	c.tickers = live
	return append([]*ticker(nil), live...)
}

type ticker struct {
	c       chan time.Time
	once    sync.Once
	stopped chan struct{}
}

func (t *ticker) C() <-chan time.Time { return t.c }

func (t *ticker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

func (t *ticker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}
