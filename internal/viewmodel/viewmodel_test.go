package viewmodel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emilianohg/studytrack/internal/db"
	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/presence"
	"github.com/emilianohg/studytrack/internal/reactive"
	"github.com/emilianohg/studytrack/internal/repository"
	"github.com/emilianohg/studytrack/internal/timer"
	"github.com/emilianohg/studytrack/internal/timer/timertest"
)

const waitTimeout = 2 * time.Second

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// testStore is a real sqlite store that counts session inserts and can be
// told to fail them.
type testStore struct {
	*repository.Store
	inserts      atomic.Int32
	insertErr    error
	deleteSubErr error
}

func (s *testStore) InsertSession(ctx context.Context, session *models.Session) error {
	s.inserts.Add(1)
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.Store.InsertSession(ctx, session)
}

func (s *testStore) DeleteSubject(ctx context.Context, id int64) error {
	if s.deleteSubErr != nil {
		return s.deleteSubErr
	}
	return s.Store.DeleteSubject(ctx, id)
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	conn, err := db.OpenAndMigrate(filepath.Join(t.TempDir(), "vm.sqlite"))
	if err != nil {
		t.Fatalf("open and migrate: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testStore{Store: repository.NewStore(conn, discard)}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Grace = 50 * time.Millisecond
	return opts
}

func addSubject(t *testing.T, s Store, name string, goal float64) models.Subject {
	t.Helper()
	subject := models.Subject{Name: name, GoalHours: goal, Colors: []string{"#123456"}}
	if err := s.UpsertSubject(context.Background(), &subject); err != nil {
		t.Fatalf("add subject: %v", err)
	}
	return subject
}

func addSession(t *testing.T, s Store, subject models.Subject, seconds int64) {
	t.Helper()
	session := models.Session{SubjectID: subject.ID, SubjectName: subject.Name, StartDate: time.Now().UnixMilli(), DurationSeconds: seconds}
	if err := s.InsertSession(context.Background(), &session); err != nil {
		t.Fatalf("add session: %v", err)
	}
}

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for event")
	}
	return nil
}

func nextNotice(t *testing.T, ch <-chan Event) Notice {
	t.Helper()
	ev := nextEvent(t, ch)
	n, ok := ev.(Notice)
	if !ok {
		t.Fatalf("expected a notice, got %#v", ev)
	}
	return n
}

func waitState[S any](t *testing.T, c *reactive.Combined[S], match func(S) bool) S {
	t.Helper()
	sub := c.Subscribe()
	defer sub.Close()

	deadline := time.After(waitTimeout)
	var last S
	for {
		select {
		case v := <-sub.C:
			last = v
			if match(v) {
				return v
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot, last %+v", last)
			return last
		}
	}
}

type sessionFixture struct {
	store   *testStore
	clock   *timertest.Clock
	timer   *timer.Timer
	vm      *Session
	subject models.Subject
	events  <-chan Event
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	store := newTestStore(t)
	clock := timertest.NewClock()
	tm := timer.New(clock, discard)
	ctrl := presence.NewController(tm, presence.LogSink{Log: discard}, discard)
	vm := NewSession(store, discard, testOptions(), ctrl)
	events, stop := vm.Events().Listen()
	t.Cleanup(func() {
		stop()
		vm.Close()
		ctrl.Close()
		tm.Close()
	})

	subject := addSubject(t, store, "Math", 10)
	vm.SelectSubject(subject)
	return &sessionFixture{store: store, clock: clock, timer: tm, vm: vm, subject: subject, events: events}
}

// run starts the timer and lets n seconds pass.
func (f *sessionFixture) run(n int) {
	f.vm.Start()
	f.clock.TickN(n)
	// Commands are handled after pending ticks, so this returns once the ticks are published.
	f.timer.Bind(f.subject.ID)
}

func TestFinishBelowThresholdKeepsTimer(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t)
	f.run(35)

	f.vm.Finish()
	f.vm.Wait()

	n := nextNotice(t, f.events)
	if n.Kind != KindValidation || n.Duration != Short {
		t.Fatalf("expected a short validation notice, got %+v", n)
	}
	if got := f.store.inserts.Load(); got != 0 {
		t.Fatalf("insert called %d times for a 35 second session", got)
	}
	snap := f.timer.Snapshot()
	if snap.State != timer.StateStarted || snap.ElapsedSeconds != 35 {
		t.Fatalf("timer changed by a rejected finish: %+v", snap)
	}
}

func TestFinishAtThresholdSavesThenCancels(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t)
	f.run(36)

	f.vm.Finish()
	f.vm.Wait()

	n := nextNotice(t, f.events)
	if n.Kind != KindInfo {
		t.Fatalf("expected success notice, got %+v", n)
	}
	if got := f.store.inserts.Load(); got != 1 {
		t.Fatalf("insert called %d times", got)
	}
	snap := f.timer.Snapshot()
	if snap.State != timer.StateIdle || snap.ElapsedSeconds != 0 {
		t.Fatalf("timer should be cancelled after a saved session: %+v", snap)
	}

	state := waitState(t, f.vm.State(), func(s SessionState) bool { return len(s.Sessions) == 1 })
	saved := state.Sessions[0]
	if saved.DurationSeconds != 36 || saved.SubjectID != f.subject.ID || saved.SubjectName != "Math" {
		t.Fatalf("saved session = %+v", saved)
	}
}

func TestFinishPersistenceFailureKeepsTimer(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t)
	f.store.insertErr = errors.New("disk full")
	f.run(40)

	f.vm.Finish()
	f.vm.Wait()

	n := nextNotice(t, f.events)
	if n.Kind != KindPersistence || n.Duration != Long {
		t.Fatalf("expected a long persistence notice, got %+v", n)
	}
	snap := f.timer.Snapshot()
	if snap.State != timer.StateStarted || snap.ElapsedSeconds != 40 {
		t.Fatalf("failed save must leave the timer alone: %+v", snap)
	}
}

func TestStartRequiresSubject(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	tm := timer.New(timertest.NewClock(), discard)
	ctrl := presence.NewController(tm, presence.LogSink{Log: discard}, discard)
	vm := NewSession(store, discard, testOptions(), ctrl)
	t.Cleanup(func() {
		vm.Close()
		ctrl.Close()
		tm.Close()
	})
	events, stop := vm.Events().Listen()
	defer stop()

	vm.Start()
	if n := nextNotice(t, events); n.Kind != KindValidation {
		t.Fatalf("expected validation notice, got %+v", n)
	}
	if tm.Snapshot().State != timer.StateIdle {
		t.Fatalf("timer started without a subject")
	}
}

func TestSubjectCannotChangeWhileRunning(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t)
	f.run(3)
	other := addSubject(t, f.store, "Physics", 5)

	f.vm.SelectSubject(other)
	if n := nextNotice(t, f.events); n.Kind != KindValidation {
		t.Fatalf("expected validation notice, got %+v", n)
	}
	if f.vm.Form().SubjectID != f.subject.ID || f.timer.Snapshot().SubjectID != f.subject.ID {
		t.Fatalf("subject changed during a running session")
	}
}

func TestSessionScreenRestoresRunningSubject(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t)
	f.run(2)

	ctrl := presence.NewController(f.timer, presence.LogSink{Log: discard}, discard)
	reopened := NewSession(f.store, discard, testOptions(), ctrl)
	defer reopened.Close()
	reopened.Wait()

	if got := reopened.Form(); got.SubjectID != f.subject.ID || got.SubjectName != "Math" {
		t.Fatalf("restored form = %+v", got)
	}
}

func TestDeleteSubjectCascadesAndNavigatesUp(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	subject := addSubject(t, store, "Math", 10)
	addSession(t, store, subject, 60)
	task := models.Task{Title: "read", SubjectID: subject.ID, RelatedSubjectName: subject.Name}
	if err := store.UpsertTask(context.Background(), &task); err != nil {
		t.Fatalf("add task: %v", err)
	}

	vm := NewSubject(store, discard, testOptions(), subject.ID)
	defer vm.Close()
	vm.Wait()
	events, stop := vm.Events().Listen()
	defer stop()

	vm.DeleteSubject()
	vm.Wait()

	if n := nextNotice(t, events); n.Kind != KindInfo {
		t.Fatalf("expected success notice, got %+v", n)
	}
	if _, ok := nextEvent(t, events).(NavigateUp); !ok {
		t.Fatalf("expected navigate up after delete")
	}

	state := waitState(t, vm.State(), func(s SubjectState) bool {
		return len(s.Upcoming) == 0 && len(s.RecentSessions) == 0
	})
	if state.StudiedHours != 0 {
		t.Fatalf("studied hours after delete = %v", state.StudiedHours)
	}
	if got, _ := store.GetSubjectByID(context.Background(), subject.ID); got != nil {
		t.Fatalf("subject still stored")
	}
}

func TestDeleteSubjectFailureIsLongNotice(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	subject := addSubject(t, store, "Math", 10)
	store.deleteSubErr = errors.New("database is locked")

	vm := NewSubject(store, discard, testOptions(), subject.ID)
	defer vm.Close()
	vm.Wait()
	events, stop := vm.Events().Listen()
	defer stop()

	vm.DeleteSubject()
	vm.Wait()

	n := nextNotice(t, events)
	if n.Kind != KindPersistence || n.Duration != Long {
		t.Fatalf("expected long persistence notice, got %+v", n)
	}
	select {
	case ev := <-events:
		t.Fatalf("unexpected event after a failed delete: %#v", ev)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestDeleteMissingSubjectIsRejected(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	vm := NewSubject(store, discard, testOptions(), 404)
	defer vm.Close()
	vm.Wait()
	events, stop := vm.Events().Listen()
	defer stop()

	vm.DeleteSubject()
	if n := nextNotice(t, events); n.Kind != KindValidation || n.Message != "No subject to delete." {
		t.Fatalf("got %+v", n)
	}
}

func TestSubjectProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		goal     float64
		seconds  int64
		studied  float64
		progress float64
	}{
		{"partial", 10, 3600, 1, 0.1},
		{"clamped at one", 1, 7200, 2, 1},
		{"nothing studied", 5, 0, 0, 0},
		{"rounded hours", 10, 5000, 1.39, 0.139},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newTestStore(t)
			subject := addSubject(t, store, "Math", tt.goal)
			if tt.seconds > 0 {
				addSession(t, store, subject, tt.seconds)
			}

			vm := NewSubject(store, discard, testOptions(), subject.ID)
			defer vm.Close()

			state := waitState(t, vm.State(), func(s SubjectState) bool {
				return s.Form.ID == subject.ID && s.StudiedHours == tt.studied
			})
			if math.Abs(state.Progress-tt.progress) > 1e-9 {
				t.Fatalf("progress = %v, want %v", state.Progress, tt.progress)
			}
		})
	}
}

func TestUpdateSubjectKeepsIdentity(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	subject := addSubject(t, store, "Math", 10)

	vm := NewSubject(store, discard, testOptions(), subject.ID)
	defer vm.Close()
	vm.Wait()
	events, stop := vm.Events().Listen()
	defer stop()

	vm.SetName("Calculus")
	vm.SetGoalHours("20")
	vm.UpdateSubject()
	vm.Wait()

	if n := nextNotice(t, events); n.Kind != KindInfo {
		t.Fatalf("got %+v", n)
	}
	got, err := store.GetSubjectByID(context.Background(), subject.ID)
	if err != nil || got == nil || got.Name != "Calculus" || got.GoalHours != 20 {
		t.Fatalf("subject after update = %+v, %v", got, err)
	}
}

func TestDashboardAggregates(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	math := addSubject(t, store, "Math", 10)
	physics := addSubject(t, store, "Physics", 5)
	addSession(t, store, math, 1800)
	addSession(t, store, physics, 1800)

	vm := NewDashboard(store, discard, testOptions())
	defer vm.Close()

	state := waitState(t, vm.State(), func(s DashboardState) bool {
		return s.SubjectCount == 2 && s.StudiedHours == 1
	})
	if state.GoalHours != 15 || len(state.Subjects) != 2 {
		t.Fatalf("dashboard state = %+v", state)
	}

	sessions := waitState(t, vm.RecentSessions(), func(s []models.Session) bool { return len(s) == 2 })
	if sessions[0].DurationSeconds != 1800 {
		t.Fatalf("recent sessions = %+v", sessions)
	}
}

func TestDashboardSaveSubject(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	vm := NewDashboard(store, discard, testOptions())
	defer vm.Close()
	events, stop := vm.Events().Listen()
	defer stop()

	vm.SetSubjectName("Chemistry")
	vm.SetGoalHours("abc")
	vm.SaveSubject()
	vm.Wait()
	if n := nextNotice(t, events); n.Kind != KindValidation {
		t.Fatalf("bad goal hours should be a validation notice, got %+v", n)
	}

	vm.SetGoalHours("12.5")
	vm.SaveSubject()
	vm.Wait()
	if n := nextNotice(t, events); n.Kind != KindInfo {
		t.Fatalf("got %+v", n)
	}
	if form := vm.Form(); form.Name != "" || form.GoalHours != "" || len(form.Colors) == 0 {
		t.Fatalf("form not reset after save: %+v", form)
	}

	state := waitState(t, vm.State(), func(s DashboardState) bool { return s.SubjectCount == 1 })
	if state.Subjects[0].Name != "Chemistry" || state.GoalHours != 12.5 {
		t.Fatalf("dashboard state = %+v", state)
	}
}

func TestDashboardToggleTask(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	subject := addSubject(t, store, "Math", 10)
	task := models.Task{Title: "read", SubjectID: subject.ID, RelatedSubjectName: subject.Name}
	if err := store.UpsertTask(context.Background(), &task); err != nil {
		t.Fatalf("add task: %v", err)
	}

	vm := NewDashboard(store, discard, testOptions())
	defer vm.Close()
	events, stop := vm.Events().Listen()
	defer stop()

	waitState(t, vm.UpcomingTasks(), func(v []models.Task) bool { return len(v) == 1 })
	vm.ToggleTask(task)
	vm.Wait()
	if n := nextNotice(t, events); n.Message != "Task marked as completed." {
		t.Fatalf("got %+v", n)
	}
	waitState(t, vm.UpcomingTasks(), func(v []models.Task) bool { return len(v) == 0 })

	vm.ToggleTask(models.Task{ID: 999})
	vm.Wait()
	if n := nextNotice(t, events); n.Kind != KindValidation {
		t.Fatalf("toggling a missing task should be rejected, got %+v", n)
	}
}

func TestTaskSaveRequiresSubject(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	vm := NewTask(store, discard, testOptions(), 0, 0)
	defer vm.Close()
	events, stop := vm.Events().Listen()
	defer stop()

	vm.SetTitle("essay")
	vm.SaveTask()
	vm.Wait()
	if n := nextNotice(t, events); n.Kind != KindValidation || n.Message != "Please select a related subject." {
		t.Fatalf("got %+v", n)
	}

	vm.DeleteTask()
	vm.Wait()
	if n := nextNotice(t, events); n.Message != "No task to delete." {
		t.Fatalf("got %+v", n)
	}
}

func TestTaskSaveAndEdit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	subject := addSubject(t, store, "Math", 10)

	vm := NewTask(store, discard, testOptions(), 0, subject.ID)
	defer vm.Close()
	vm.Wait()
	vm.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	events, stop := vm.Events().Listen()
	defer stop()

	vm.SetTitle("essay")
	vm.SetPriority(models.PriorityHigh)
	vm.SaveTask()
	vm.Wait()
	if n := nextNotice(t, events); n.Kind != KindInfo {
		t.Fatalf("got %+v", n)
	}
	if _, ok := nextEvent(t, events).(NavigateUp); !ok {
		t.Fatalf("expected navigate up after save")
	}

	saved, err := store.GetTaskByID(context.Background(), vm.Form().ID)
	if err != nil || saved == nil {
		t.Fatalf("saved task missing: %v", err)
	}
	if saved.RelatedSubjectName != "Math" || saved.Priority != models.PriorityHigh || saved.DueDate != 1_700_000_000_000 {
		t.Fatalf("saved task = %+v", saved)
	}

	edit := NewTask(store, discard, testOptions(), saved.ID, 0)
	defer edit.Close()
	edit.Wait()
	if form := edit.Form(); form.Title != "essay" || form.SubjectID != subject.ID {
		t.Fatalf("edit form = %+v", form)
	}
}

func TestEventsAreDroppedWithoutListener(t *testing.T) {
	t.Parallel()

	var e Events
	if e.emit(newNotice("lost", Short, KindInfo)) {
		t.Fatalf("emit without listener reported delivery")
	}

	first, stopFirst := e.Listen()
	second, stopSecond := e.Listen()
	defer stopSecond()

	if _, ok := <-first; ok {
		t.Fatalf("previous listener should be closed when a new one attaches")
	}
	stopFirst()

	if !e.emit(NavigateUp{}) {
		t.Fatalf("emit with listener was dropped")
	}
	if _, ok := (<-second).(NavigateUp); !ok {
		t.Fatalf("listener did not receive the event")
	}

	stopSecond()
	if e.emit(NavigateUp{}) {
		t.Fatalf("emit after detach reported delivery")
	}
}
