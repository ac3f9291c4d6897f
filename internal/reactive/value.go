// Package reactive holds the small set of stream primitives the study views
// are built from: replay-one values, trigger-driven queries and a combiner
// that merges several sources into one snapshot.
package reactive

import (
	"sync"
)

// Source is anything that can be observed.
type Source[T any] interface {
	Subscribe() *Subscription[T]
}

// Subscription delivers values on C until Close is called. C is closed after Close.
type Subscription[T any] struct {
	C <-chan T

	once   sync.Once
	cancel func()
}

func (s *Subscription[T]) Close() {
	s.once.Do(s.cancel)
}

func newSubscription[T any](c <-chan T, cancel func()) *Subscription[T] {
	return &Subscription[T]{C: c, cancel: cancel}
}

// Option configures a Value.
type Option func(*options)

type options struct {
	conflate bool
}

// Conflate makes slow subscribers skip intermediate values and only see the latest.
func Conflate() Option {
	return func(o *options) { o.conflate = true }
}

// Value is a replay-one observable. New subscribers receive the current
// value (if any) and then every subsequent Set, in order. Set never blocks
// on a subscriber.
type Value[T any] struct {
	mu     sync.Mutex
	cur    T
	has    bool
	nextID uint64
	subs   map[uint64]*mailbox[T]
	opts   options
}

func NewValue[T any](initial T, opts ...Option) *Value[T] {
	v := newEmptyValue[T](opts...)
	v.cur = initial
	v.has = true
	return v
}

func newEmptyValue[T any](opts ...Option) *Value[T] {
	v := &Value[T]{subs: make(map[uint64]*mailbox[T])}
	for _, opt := range opts {
		opt(&v.opts)
	}
	return v
}

func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setLocked(val)
}

// Update applies fn to the current value atomically and publishes the result.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := fn(v.cur)
	v.setLocked(next)
	return next
}

func (v *Value[T]) setLocked(val T) {
	v.cur = val
	v.has = true
	for _, mb := range v.subs {
		mb.put(val)
	}
}

func (v *Value[T]) Get() T {
	val, _ := v.Load()
	return val
}

// Load reports whether a value has been published yet.
func (v *Value[T]) Load() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur, v.has
}

func (v *Value[T]) Subscribe() *Subscription[T] {
	mb := newMailbox[T](v.opts.conflate)

	v.mu.Lock()
	id := v.nextID
	v.nextID++
	if v.has {
		mb.put(v.cur)
	}
	v.subs[id] = mb
	v.mu.Unlock()

	return newSubscription(mb.out, func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
		mb.close()
	})
}

func (v *Value[T]) SubscriberCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// mailbox is an unbounded per-subscriber queue drained by its own goroutine,
// so producers never wait on consumers.
type mailbox[T any] struct {
	mu       sync.Mutex
	queue    []T
	conflate bool
	notify   chan struct{}
	done     chan struct{}
	out      chan T
	once     sync.Once
}

func newMailbox[T any](conflate bool) *mailbox[T] {
	mb := &mailbox[T]{
		conflate: conflate,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		out:      make(chan T),
	}
	go mb.pump()
	return mb
}

func (mb *mailbox[T]) put(val T) {
	mb.mu.Lock()
	if mb.conflate {
		mb.queue = mb.queue[:0]
	}
	mb.queue = append(mb.queue, val)
	mb.mu.Unlock()

	select {
	case mb.notify <- struct{}{}:
	default:
	}
}

func (mb *mailbox[T]) pump() {
	defer close(mb.out)
	for {
		mb.mu.Lock()
		if len(mb.queue) == 0 {
			mb.mu.Unlock()
			select {
			case <-mb.notify:
				continue
			case <-mb.done:
				return
			}
		}
		val := mb.queue[0]
		var zero T
		mb.queue[0] = zero
		mb.queue = mb.queue[1:]
		mb.mu.Unlock()

		select {
		case mb.out <- val:
		case <-mb.done:
			return
		}
	}
}

func (mb *mailbox[T]) close() {
	mb.once.Do(func() { close(mb.done) })
}
