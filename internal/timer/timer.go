// Package timer runs the study session stopwatch. A single background
// goroutine owns the elapsed time, the state and the bound subject; callers
// only send commands and observe snapshots.
package timer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/reactive"
)

// Interval is the tick period.
const Interval = time.Second

type State int

const (
	StateIdle State = iota
	StateStarted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "STARTED"
	case StateStopped:
		return "STOPPED"
	default:
		return "IDLE"
	}
}

// Action is a user command for the timer.
type Action int

const (
	ActionStart Action = iota
	ActionStop
	ActionCancel
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "START"
	case ActionStop:
		return "STOP"
	case ActionCancel:
		return "CANCEL"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "START":
		return ActionStart, nil
	case "STOP":
		return ActionStop, nil
	case "CANCEL":
		return ActionCancel, nil
	}
	return 0, fmt.Errorf("unknown timer action %q", s)
}

// Snapshot is one consistent reading of the timer.
type Snapshot struct {
	State          State
	ElapsedSeconds int64
	Formatted      string
	SubjectID      int64
}

// CanFinish reports whether the elapsed time is long enough to be saved as a session.
func (s Snapshot) CanFinish() bool {
	return s.ElapsedSeconds >= models.MinSessionSeconds
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdCancel
	cmdBind
)

type command struct {
	kind      commandKind
	subjectID int64
	reply     chan Snapshot
}

type Timer struct {
	clock Clock
	log   *slog.Logger

	cmds chan command
	quit chan struct{}
	done chan struct{}

	snapshots *reactive.Value[Snapshot]
}

// New starts the timer goroutine in the IDLE state. Close stops it.
func New(clock Clock, log *slog.Logger) *Timer {
	if clock == nil {
		clock = RealClock()
	}
	t := &Timer{
		clock:     clock,
		log:       log,
		cmds:      make(chan command),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		snapshots: reactive.NewValue(Snapshot{State: StateIdle, Formatted: models.FormatHMS(0)}),
	}
	go t.run()
	return t
}

func (t *Timer) Start() Snapshot  { return t.send(command{kind: cmdStart}) }
func (t *Timer) Stop() Snapshot   { return t.send(command{kind: cmdStop}) }
func (t *Timer) Cancel() Snapshot { return t.send(command{kind: cmdCancel}) }

// Bind records which subject the running session belongs to.
func (t *Timer) Bind(subjectID int64) Snapshot {
	return t.send(command{kind: cmdBind, subjectID: subjectID})
}

func (t *Timer) Dispatch(a Action) Snapshot {
	switch a {
	case ActionStart:
		return t.Start()
	case ActionStop:
		return t.Stop()
	case ActionCancel:
		return t.Cancel()
	}
	return t.Snapshot()
}

func (t *Timer) Snapshot() Snapshot {
	return t.snapshots.Get()
}

// Subscribe replays the current snapshot and then delivers every change in order.
func (t *Timer) Subscribe() *reactive.Subscription[Snapshot] {
	return t.snapshots.Subscribe()
}

// Close stops ticking and ends the goroutine. Later commands return the last snapshot.
func (t *Timer) Close() {
	select {
	case <-t.quit:
	default:
		close(t.quit)
	}
	<-t.done
}

func (t *Timer) send(cmd command) Snapshot {
	cmd.reply = make(chan Snapshot, 1)
	select {
	case t.cmds <- cmd:
		return <-cmd.reply
	case <-t.done:
		return t.Snapshot()
	}
}

func (t *Timer) run() {
	defer close(t.done)

	var ticker Ticker
	var ticks <-chan time.Time
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, ticks = nil, nil
		}
	}
	defer func() { stopTicker() }()

	snap := t.snapshots.Get()
	for {
		select {
		case <-t.quit:
			return

		case <-ticks:
			snap.ElapsedSeconds++
			snap.Formatted = models.FormatHMS(snap.ElapsedSeconds)
			t.snapshots.Set(snap)

		case cmd := <-t.cmds:
			prev := snap
			switch cmd.kind {
			case cmdStart:
				if snap.State != StateStarted {
					ticker = t.clock.NewTicker(Interval)
					ticks = ticker.C()
					snap.State = StateStarted
				}
			case cmdStop:
				if snap.State == StateStarted {
					stopTicker()
					snap.State = StateStopped
				}
			case cmdCancel:
				if snap.State != StateIdle {
					stopTicker()
					snap = Snapshot{State: StateIdle, Formatted: models.FormatHMS(0), SubjectID: snap.SubjectID}
				}
			case cmdBind:
				snap.SubjectID = cmd.subjectID
			}

			if snap != prev {
				t.snapshots.Set(snap)
				if snap.State != prev.State {
					t.log.Debug("timer transition",
						"from", prev.State.String(),
						"to", snap.State.String(),
						"elapsed_seconds", snap.ElapsedSeconds,
					)
				}
			}
			cmd.reply <- snap
		}
	}
}
