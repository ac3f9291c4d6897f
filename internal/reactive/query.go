package reactive

import (
	"context"
)

// Query re-runs load every time trigger emits and publishes the result.
// Each subscription runs its own loader loop; failed loads are reported to
// onErr and skipped so the previous result stays current.
type Query[T any] struct {
	trigger Source[uint64]
	load    func(context.Context) (T, error)
	onErr   func(error)
}

func NewQuery[T any](trigger Source[uint64], load func(context.Context) (T, error), onErr func(error)) *Query[T] {
	return &Query[T]{trigger: trigger, load: load, onErr: onErr}
}

func (q *Query[T]) Subscribe() *Subscription[T] {
	ctx, cancel := context.WithCancel(context.Background())
	mb := newMailbox[T](true)
	triggers := q.trigger.Subscribe()

	go func() {
		defer triggers.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-triggers.C:
				if !ok {
					return
				}
				val, err := q.load(ctx)
				if err != nil {
					if ctx.Err() == nil && q.onErr != nil {
						q.onErr(err)
					}
					continue
				}
				mb.put(val)
			}
		}
	}()

	return newSubscription(mb.out, func() {
		cancel()
		mb.close()
	})
}
