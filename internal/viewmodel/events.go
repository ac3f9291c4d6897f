package viewmodel

import (
	"sync"

	"github.com/google/uuid"
)

type NoticeDuration int

const (
	Short NoticeDuration = iota
	Long
)

type NoticeKind int

const (
	KindInfo NoticeKind = iota
	KindValidation
	KindPersistence
)

func (k NoticeKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPersistence:
		return "persistence"
	default:
		return "info"
	}
}

// Event is something a screen should react to once.
type Event interface {
	isEvent()
}

// Notice is a transient user-facing message.
type Notice struct {
	ID       uuid.UUID
	Message  string
	Duration NoticeDuration
	Kind     NoticeKind
}

// NavigateUp asks the screen to return to where it came from.
type NavigateUp struct{}

func (Notice) isEvent()     {}
func (NavigateUp) isEvent() {}

const eventBuffer = 16

// Events delivers each event at most once to the listener currently
// attached. Events emitted while nobody listens, or while the listener's
// buffer is full, are dropped.
type Events struct {
	mu      sync.Mutex
	current chan Event
}

// Listen attaches a new listener, closing the channel of the previous one.
// The returned func detaches it.
func (e *Events) Listen() (<-chan Event, func()) {
	ch := make(chan Event, eventBuffer)

	e.mu.Lock()
	if e.current != nil {
		close(e.current)
	}
	e.current = ch
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.current == ch {
				close(ch)
				e.current = nil
			}
		})
	}
}

func (e *Events) emit(ev Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return false
	}
	select {
	case e.current <- ev:
		return true
	default:
		return false
	}
}

func newNotice(message string, d NoticeDuration, k NoticeKind) Notice {
	return Notice{ID: uuid.New(), Message: message, Duration: d, Kind: k}
}
