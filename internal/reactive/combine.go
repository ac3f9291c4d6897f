package reactive

import (
	"context"
	"reflect"
	"sync"
	"time"
)

type input struct {
	run func(ctx context.Context, emit func(any))
}

func erase[T any](src Source[T]) input {
	return input{run: func(ctx context.Context, emit func(any)) {
		sub := src.Subscribe()
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case val, ok := <-sub.C:
				if !ok {
					return
				}
				emit(val)
			}
		}
	}}
}

type update struct {
	index int
	value any
}

// Combined merges a fixed set of sources into one snapshot.
//
// It is started by the first subscriber and stopped once it has had no
// subscribers for the grace period. Every change on any input recomputes
// the snapshot from the latest value of all inputs; nothing is emitted until
// each input has produced at least once. The last snapshot is kept across
// deactivation and replayed to new subscribers. On reactivation the inputs
// start from their previous latest values, so when several inputs changed
// while inactive an intermediate snapshot mixing fresh and old values may be
// emitted before the fully fresh one; the last emission always wins.
type Combined[S any] struct {
	inputs  []input
	combine func([]any) S
	grace   time.Duration
	out     *Value[S]

	mu     sync.Mutex
	refs   int
	gen    uint64
	cancel context.CancelFunc
	idle   *time.Timer
	latest []any
	seen   []bool
}

func newCombined[S any](grace time.Duration, combine func([]any) S, inputs ...input) *Combined[S] {
	return &Combined[S]{
		inputs:  inputs,
		combine: combine,
		grace:   grace,
		out:     newEmptyValue[S](Conflate()),
		latest:  make([]any, len(inputs)),
		seen:    make([]bool, len(inputs)),
	}
}

func (c *Combined[S]) Subscribe() *Subscription[S] {
	c.mu.Lock()
	c.refs++
	if c.idle != nil {
		c.idle.Stop()
		c.idle = nil
	}
	if c.cancel == nil {
		c.activateLocked()
	}
	c.mu.Unlock()

	sub := c.out.Subscribe()
	return newSubscription(sub.C, func() {
		sub.Close()
		c.release()
	})
}

// Current returns the last computed snapshot.
func (c *Combined[S]) Current() (S, bool) {
	return c.out.Load()
}

// Active reports whether the inputs are currently being observed.
func (c *Combined[S]) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *Combined[S]) release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.refs--
	if c.refs > 0 {
		return
	}
	if c.grace <= 0 {
		c.deactivateLocked()
		return
	}

	gen := c.gen
	c.idle = time.AfterFunc(c.grace, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.refs == 0 && c.gen == gen {
			c.deactivateLocked()
		}
	})
}

func (c *Combined[S]) activateLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.gen++

	updates := make(chan update)
	for i, in := range c.inputs {
		go in.run(ctx, func(val any) {
			select {
			case updates <- update{index: i, value: val}:
			case <-ctx.Done():
			}
		})
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-updates:
				c.apply(ctx, u)
			}
		}
	}()
}

func (c *Combined[S]) deactivateLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.idle = nil
}

func (c *Combined[S]) apply(ctx context.Context, u update) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A stale activation must not publish after a newer one.
	if ctx.Err() != nil {
		return
	}
	if c.seen[u.index] && reflect.DeepEqual(c.latest[u.index], u.value) {
		return
	}
	c.latest[u.index] = u.value
	c.seen[u.index] = true

	for _, ok := range c.seen {
		if !ok {
			return
		}
	}

	values := make([]any, len(c.latest))
	copy(values, c.latest)
	c.out.Set(c.combine(values))
}

func as[T any](v any) T {
	t, _ := v.(T)
	return t
}

// Share is a single-source Combined: it adds lazy start, grace-period
// teardown and replay to src.
func Share[A any](grace time.Duration, a Source[A]) *Combined[A] {
	return newCombined(grace, func(v []any) A {
		return as[A](v[0])
	}, erase(a))
}

func Combine2[A, B, S any](grace time.Duration, a Source[A], b Source[B], fn func(A, B) S) *Combined[S] {
	return newCombined(grace, func(v []any) S {
		return fn(as[A](v[0]), as[B](v[1]))
	}, erase(a), erase(b))
}

func Combine3[A, B, C, S any](grace time.Duration, a Source[A], b Source[B], c Source[C], fn func(A, B, C) S) *Combined[S] {
	return newCombined(grace, func(v []any) S {
		return fn(as[A](v[0]), as[B](v[1]), as[C](v[2]))
	}, erase(a), erase(b), erase(c))
}

func Combine4[A, B, C, D, S any](grace time.Duration, a Source[A], b Source[B], c Source[C], d Source[D], fn func(A, B, C, D) S) *Combined[S] {
	return newCombined(grace, func(v []any) S {
		return fn(as[A](v[0]), as[B](v[1]), as[C](v[2]), as[D](v[3]))
	}, erase(a), erase(b), erase(c), erase(d))
}

func Combine5[A, B, C, D, E, S any](grace time.Duration, a Source[A], b Source[B], c Source[C], d Source[D], e Source[E], fn func(A, B, C, D, E) S) *Combined[S] {
	return newCombined(grace, func(v []any) S {
		return fn(as[A](v[0]), as[B](v[1]), as[C](v[2]), as[D](v[3]), as[E](v[4]))
	}, erase(a), erase(b), erase(c), erase(d), erase(e))
}
