package repository

import (
	"fmt"
	"sync"
)

// keyedMutex serializes writers that touch the same entity id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func subjectKey(id int64) string { return fmt.Sprintf("subject:%d", id) }
func taskKey(id int64) string    { return fmt.Sprintf("task:%d", id) }
func sessionKey(id int64) string { return fmt.Sprintf("session:%d", id) }
