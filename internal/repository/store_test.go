package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/emilianohg/studytrack/internal/db"
	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/reactive"
)

const waitTimeout = 2 * time.Second

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.OpenAndMigrate(filepath.Join(t.TempDir(), "store.sqlite"))
	if err != nil {
		t.Fatalf("open and migrate: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// waitFor reads from src until match accepts a value.
func waitFor[T any](t *testing.T, src reactive.Source[T], match func(T) bool) T {
	t.Helper()
	sub := src.Subscribe()
	defer sub.Close()

	deadline := time.After(waitTimeout)
	var last T
	for {
		select {
		case v := <-sub.C:
			last = v
			if match(v) {
				return v
			}
		case <-deadline:
			t.Fatalf("timed out waiting for stream value, last %+v", last)
			return last
		}
	}
}

func mustSubject(t *testing.T, s *Store, name string) models.Subject {
	t.Helper()
	subject := models.Subject{Name: name, GoalHours: 10, Colors: []string{"#FF0000", "#00FF00"}}
	if err := s.UpsertSubject(context.Background(), &subject); err != nil {
		t.Fatalf("upsert subject: %v", err)
	}
	return subject
}

func mustTask(t *testing.T, s *Store, subject models.Subject, title string) models.Task {
	t.Helper()
	task := models.Task{
		Title:              title,
		Description:        "read chapter",
		DueDate:            time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC).UnixMilli(),
		Priority:           models.PriorityHigh,
		SubjectID:          subject.ID,
		RelatedSubjectName: subject.Name,
	}
	if err := s.UpsertTask(context.Background(), &task); err != nil {
		t.Fatalf("upsert task: %v", err)
	}
	return task
}

func mustSession(t *testing.T, s *Store, subject models.Subject, seconds int64, start time.Time) models.Session {
	t.Helper()
	session := models.Session{
		SubjectID:       subject.ID,
		SubjectName:     subject.Name,
		StartDate:       start.UnixMilli(),
		DurationSeconds: seconds,
	}
	if err := s.InsertSession(context.Background(), &session); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	return session
}

func TestInsertSessionAppearsInStream(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	math := mustSubject(t, s, "Math")
	session := mustSession(t, s, math, 120, time.Now())

	got := waitFor(t, s.StreamAllSessions(), func(v []models.Session) bool { return len(v) == 1 })
	if got[0] != session {
		t.Fatalf("stream returned %+v, want %+v", got[0], session)
	}

	total := waitFor(t, s.StreamTotalDuration(), func(v int64) bool { return v == 120 })
	if total != 120 {
		t.Fatalf("total duration = %d", total)
	}
}

func TestInsertSessionRejectsShortDuration(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	math := mustSubject(t, s, "Math")

	session := models.Session{SubjectID: math.ID, SubjectName: math.Name, DurationSeconds: 35}
	err := s.InsertSession(context.Background(), &session)
	if !errors.Is(err, models.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}

	sessions, err := s.ListSessions(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("short session was stored: %+v", sessions)
	}
}

func TestDeleteSubjectCascades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	math := mustSubject(t, s, "Math")
	physics := mustSubject(t, s, "Physics")

	mustTask(t, s, math, "algebra")
	mustTask(t, s, math, "geometry")
	mustTask(t, s, physics, "optics")
	now := time.Now()
	for i := 0; i < 3; i++ {
		mustSession(t, s, math, 60, now.Add(time.Duration(i)*time.Minute))
	}
	mustSession(t, s, physics, 90, now)

	waitFor(t, s.StreamUpcomingTasksForSubject(math.ID), func(v []models.Task) bool { return len(v) == 2 })
	waitFor(t, s.StreamRecentSessionsForSubject(math.ID, 10), func(v []models.Session) bool { return len(v) == 3 })

	if err := s.DeleteSubject(ctx, math.ID); err != nil {
		t.Fatalf("delete subject: %v", err)
	}

	waitFor(t, s.StreamUpcomingTasksForSubject(math.ID), func(v []models.Task) bool { return len(v) == 0 })
	waitFor(t, s.StreamRecentSessionsForSubject(math.ID, 10), func(v []models.Session) bool { return len(v) == 0 })
	waitFor(t, s.StreamTotalDurationForSubject(math.ID), func(v int64) bool { return v == 0 })
	waitFor(t, s.StreamSubjectCount(), func(v int) bool { return v == 1 })

	subject, err := s.GetSubjectByID(ctx, math.ID)
	if err != nil {
		t.Fatalf("get subject: %v", err)
	}
	if subject != nil {
		t.Fatalf("subject still present: %+v", subject)
	}

	// Other subjects are untouched.
	tasks, err := s.ListUpcomingTasks(ctx, physics.ID)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("physics tasks = %v, %v", tasks, err)
	}
	total, err := s.TotalDurationForSubject(ctx, physics.ID)
	if err != nil || total != 90 {
		t.Fatalf("physics total = %d, %v", total, err)
	}
}

func TestDeleteSubjectIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	math := mustSubject(t, s, "Math")

	if err := s.DeleteSubject(ctx, math.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := s.DeleteSubject(ctx, math.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if err := s.DeleteSubject(ctx, 4242); err != nil {
		t.Fatalf("delete of unknown id: %v", err)
	}
}

func TestToggleTaskCompleteOnlyFlipsFlag(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	math := mustSubject(t, s, "Math")
	task := mustTask(t, s, math, "algebra")

	toggled, err := s.ToggleTaskComplete(ctx, task.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	want := task
	want.IsComplete = true
	if *toggled != want {
		t.Fatalf("toggle changed more than the flag: got %+v, want %+v", *toggled, want)
	}

	waitFor(t, s.StreamCompletedTasksForSubject(math.ID), func(v []models.Task) bool { return len(v) == 1 })
	waitFor(t, s.StreamAllUpcomingTasks(), func(v []models.Task) bool { return len(v) == 0 })

	toggled, err = s.ToggleTaskComplete(ctx, task.ID)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if *toggled != task {
		t.Fatalf("toggle back = %+v, want %+v", *toggled, task)
	}
}

func TestToggleMissingTask(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.ToggleTaskComplete(context.Background(), 77)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertSubjectUpdatesExistingRow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	math := mustSubject(t, s, "Math")

	math.Name = "Calculus"
	math.GoalHours = 25
	math.Colors = []string{"#0000FF"}
	if err := s.UpsertSubject(ctx, &math); err != nil {
		t.Fatalf("update subject: %v", err)
	}

	got := waitFor(t, s.StreamAllSubjects(), func(v []models.Subject) bool {
		return len(v) == 1 && v[0].Name == "Calculus"
	})
	if got[0].GoalHours != 25 || len(got[0].Colors) != 1 || got[0].Colors[0] != "#0000FF" {
		t.Fatalf("subject not fully updated: %+v", got[0])
	}
	waitFor(t, s.StreamTotalGoalHours(), func(v float64) bool { return v == 25 })
}

func TestUpsertSubjectValidates(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	bad := models.Subject{Name: " ", GoalHours: 10, Colors: []string{"#FFFFFF"}}
	if err := s.UpsertSubject(context.Background(), &bad); !errors.Is(err, models.ErrInvalidSubject) {
		t.Fatalf("expected ErrInvalidSubject, got %v", err)
	}
	if bad.ID != 0 {
		t.Fatalf("invalid subject got an id")
	}
}

func TestRenamingSubjectKeepsDenormalizedNames(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	math := mustSubject(t, s, "Math")
	task := mustTask(t, s, math, "algebra")
	mustSession(t, s, math, 60, time.Now())

	math.Name = "Mathematics"
	if err := s.UpsertSubject(ctx, &math); err != nil {
		t.Fatalf("rename: %v", err)
	}

	stored, err := s.GetTaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if stored.RelatedSubjectName != "Math" {
		t.Fatalf("task subject name = %q, want the name at save time", stored.RelatedSubjectName)
	}
	sessions, err := s.ListSessions(ctx, math.ID, 0)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SubjectName != "Math" {
		t.Fatalf("session subject name changed: %+v", sessions)
	}
}

func TestRecentSessionsNewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	math := mustSubject(t, s, "Math")
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		mustSession(t, s, math, int64(40+i), base.Add(time.Duration(i)*time.Hour))
	}

	got := waitFor(t, s.StreamRecentSessions(5), func(v []models.Session) bool { return len(v) == 5 })
	for i, session := range got {
		if want := int64(46 - i); session.DurationSeconds != want {
			t.Fatalf("position %d has duration %d, want %d", i, session.DurationSeconds, want)
		}
	}
}

func TestDeleteTaskAndSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	math := mustSubject(t, s, "Math")
	task := mustTask(t, s, math, "algebra")
	session := mustSession(t, s, math, 60, time.Now())

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := s.DeleteSession(ctx, session); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	waitFor(t, s.StreamAllUpcomingTasks(), func(v []models.Task) bool { return len(v) == 0 })
	waitFor(t, s.StreamAllSessions(), func(v []models.Session) bool { return len(v) == 0 })

	// Subject can now be deleted without the cascade having anything to do.
	if err := s.DeleteSubject(ctx, math.ID); err != nil {
		t.Fatalf("delete subject: %v", err)
	}
}
